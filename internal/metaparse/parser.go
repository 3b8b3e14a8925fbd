// Package metaparse decodes the protocol's pipe/comma/base64/bitflag
// contract metadata string. Three recognizers are tried in priority
// order — encryption-short-form, standard-with-folders, legacy — each
// returning a fully populated result or "does not match" so the caller
// falls through to the next. No recognizer ever errors outright; a
// metadata string that matches nothing structural still yields an
// empty-but-valid ParsedMetadata so files fall back to root with
// name=cid.
package metaparse

import (
	"sort"
	"strings"
)

// FileMeta is one file's slice of the parsed metadata, aligned by
// position to the content-id-sorted data-file map.
type FileMeta struct {
	CID string
	Name string
	Extension string
	FolderIndex byte
	ThumbCID string
	Flags int
	License string
	Labels string
	Parsed bool // false => caller should use Name = CID (unparseable group)
}

// ParsedMetadata is the structured result of parsing one contract's
// metadata string against its sorted data-file map.
type ParsedMetadata struct {
	AutoRenew bool
	Grants []Grant
	Folders *FolderTree
	Files []FileMeta
	Recognizer string // which recognizer matched, for diagnostics/logging
}

// FolderFullPath resolves a file's FolderIndex to a directory path.
func (m *ParsedMetadata) FolderFullPath(fm FileMeta) string {
	if m.Folders == nil {
		return "/"
	}
	return m.Folders.FullPath(fm.FolderIndex)
}

// Parse decodes meta against the data-file map cids (unsorted; Parse
// sorts a copy). cids may be empty for metadata-only inspection.
func Parse(meta string, cids []string) *ParsedMetadata {
	sorted := append([]string(nil), cids...)
	sort.Strings(sorted)

	if pm, ok := recognizeEncryptionShort(meta, sorted); ok {
		pm.Recognizer = "encryption-short-form"
		return pm
	}
	if pm, ok := recognizeStandard(meta, sorted); ok {
		pm.Recognizer = "standard-with-folders"
		return pm
	}
	pm := recognizeLegacy(meta, sorted)
	pm.Recognizer = "legacy"
	return pm
}

// decodeFlags decodes a single base64 flags character into its bit
// value, or 0 if c is not in the block alphabet.
func decodeFlags(c byte) int {
	v := blockDigitValue[c]
	if v < 0 {
		return 0
	}
	return int(v)
}

const autoRenewBit = 1 << 0

// recognizeEncryptionShort matches meta strings that begin with '#' and
// contain no '|' — the whole prefix up to the first username is a
// `#...@<user>` grant list, and every file defaults to root.
func recognizeEncryptionShort(meta string, cids []string) (*ParsedMetadata, bool) {
	if !strings.HasPrefix(meta, "#") || strings.Contains(meta, "|") {
		return nil, false
	}
	parts := strings.SplitN(meta, ",", 2)
	grants := parseGrants(strings.TrimPrefix(parts[0], "#"))
	if len(grants) == 0 {
		return nil, false
	}
	pm := &ParsedMetadata{Grants: grants, Folders: newFolderTree()}
	var rest string
	if len(parts) == 2 {
		rest = parts[1]
	}
	pm.Files = parseFileGroups(rest, cids, pm.Folders)
	return pm, true
}

// recognizeStandard matches the primary grammar:
// <flags>[#<encData>]|<folder1>|<folder2>|..., comma, then file groups.
func recognizeStandard(meta string, cids []string) (*ParsedMetadata, bool) {
	if meta == "" {
		return nil, false
	}
	headerAndRest := strings.SplitN(meta, ",", 2)
	header := headerAndRest[0]
	if header == "" {
		return nil, false
	}

	flagsByte := header[0]
	if blockDigitValue[flagsByte] < 0 {
		return nil, false // not a recognizable flags char — fall through
	}
	flagVal := decodeFlags(flagsByte)
	remainder := header[1:]

	var encData string
	if strings.HasPrefix(remainder, "#") {
		pipeIdx := strings.IndexByte(remainder, '|')
		if pipeIdx >= 0 {
			encData = remainder[:pipeIdx]
			remainder = remainder[pipeIdx:]
		} else {
			encData = remainder
			remainder = ""
		}
	}

	var folderEntries []string
	if strings.HasPrefix(remainder, "|") {
		folderEntries = strings.Split(remainder[1:], "|")
	} else if remainder != "" {
		// Header has trailing content that isn't a folder pipe-list —
		// not a standard-form match.
		return nil, false
	}

	pm := &ParsedMetadata{
		AutoRenew: flagVal&autoRenewBit != 0,
		Grants: parseGrants(strings.TrimPrefix(encData, "#")),
		Folders: parseFolderList(folderEntries),
	}

	var rest string
	if len(headerAndRest) == 2 {
		rest = headerAndRest[1]
	}
	pm.Files = parseFileGroups(rest, cids, pm.Folders)
	return pm, true
}

// recognizeLegacy is the fallback for metadata that matches neither of
// the above: the whole string is treated as a bare folder pipe-list (no
// leading flags byte, no encryption) if it contains '|', otherwise as a
// flat list of file groups at root. This never reports "no match" — it
// is the last recognizer in priority order.
func recognizeLegacy(meta string, cids []string) *ParsedMetadata {
	pm := &ParsedMetadata{Folders: newFolderTree()}
	if meta == "" {
		pm.Files = parseFileGroups("", cids, pm.Folders)
		return pm
	}
	if strings.Contains(meta, "|") {
		headerAndRest := strings.SplitN(meta, ",", 2)
		folderEntries := strings.Split(headerAndRest[0], "|")
		pm.Folders = parseFolderList(folderEntries)
		var rest string
		if len(headerAndRest) == 2 {
			rest = headerAndRest[1]
		}
		pm.Files = parseFileGroups(rest, cids, pm.Folders)
		return pm
	}
	pm.Files = parseFileGroups(meta, cids, pm.Folders)
	return pm
}

// parseFileGroups walks rest in groups of four comma-delimited fields,
// assigning each group to the next cid in the content-id-sorted order.
// A group with too few fields is recorded as unparsed (name=cid) but
// does not stop the scan.
func parseFileGroups(rest string, cids []string, folders *FolderTree) []FileMeta {
	var fields []string
	if rest != "" {
		fields = strings.Split(rest, ",")
	}

	out := make([]FileMeta, len(cids))
	for i, cid := range cids {
		out[i] = FileMeta{CID: cid, Name: cid}
		base := i * 4
		if base+4 > len(fields) {
			continue
		}
		group := fields[base : base+4]
		name, extFolder, thumb, flagsLicenseLabels := group[0], group[1], group[2], group[3]
		if name == "" {
			continue
		}
		fm := FileMeta{CID: cid, Name: name, ThumbCID: thumb, Parsed: true}

		ext := extFolder
		folderIdx := byte('1')
		if dot := strings.LastIndexByte(extFolder, '.'); dot >= 0 {
			ext = extFolder[:dot]
			idxStr := extFolder[dot+1:]
			if len(idxStr) == 1 {
				folderIdx = idxStr[0]
			}
		}
		fm.Extension = ext
		fm.FolderIndex = folderIdx

		sub := strings.SplitN(flagsLicenseLabels, "-", 3)
		if len(sub) > 0 {
			fm.Flags = int(ParseLeadingInt(sub[0]))
		}
		if len(sub) > 1 {
			fm.License = sub[1]
		}
		if len(sub) > 2 {
			fm.Labels = sub[2]
		}
		out[i] = fm
	}
	_ = folders
	return out
}
