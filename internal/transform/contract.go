package transform

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/disregardfiat/honeygraph/internal/accountcache"
	"github.com/disregardfiat/honeygraph/internal/metaparse"
	"github.com/disregardfiat/honeygraph/internal/types"
)

// transformContract is the densest operation in the system: it resolves
// identity, ensures the purchaser/owner accounts, builds the
// StorageContract entity, then walks its files and extensions.
func (t *Transformer) transformContract(ctx context.Context, op Op, block BlockInfo, b *batch, abatch accountcache.BatchMutations) error {
	data, _ := op.Data.(map[string]any)

	// Step 1: determine contractId, purchaser, owner.
	contractID, purchaser, owner, ok := contractIdentity(op.Path, data)
	if !ok {
		return errMalformedPath
	}

	// Step 2: ensure purchaser/owner accounts.
	purchaserRef, err := t.ensureAccountBucket(ctx, purchaser, b, abatch)
	if err != nil {
		return err
	}
	ownerRef := purchaserRef
	if owner != purchaser {
		ownerRef, err = t.ensureAccountBucket(ctx, owner, b, abatch)
		if err != nil {
			return err
		}
	}

	// Step 3: build the StorageContract entity.
	contractBlank := "contract_" + types.SanitizeBlankLabel(contractID)
	dataFiles, _ := data["df"].(map[string]any)
	nodeTotal := coerceInt(data["nt"])
	power := coerceInt(data["p"])

	contractEntity := Entity{
		"uid": "_:" + contractBlank,
		"id": contractID,
		"purchaser": refValue(purchaserRef),
		"owner": refValue(ownerRef),
		"status": coerceInt(data["status"]),
		"authorized": coerceInt(data["a"]),
		"broker": jsonStringify(data["broker"]),
		"power": power,
		"refunded": coerceInt(data["r"]),
		"utilized": coerceInt(data["u"]),
		"verified": truthy(data["v"]),
		"nodeTotal": nodeTotal,
		"fileCount": len(dataFiles),
		"isUnderstored": nodeTotal < power,
	}

	// Step 4: data.e ("expiresBlock:chronId") and data.m via the metadata
	// parser, against the sorted content-id set.
	if e, ok := data["e"].(string); ok {
		expBlock, chronID := splitExpires(e)
		contractEntity["expiresBlock"] = expBlock
		if chronID != "" {
			contractEntity["expiresChronId"] = chronID
		}
	}

	cids := make([]string, 0, len(dataFiles))
	for cid := range dataFiles {
		cids = append(cids, cid)
	}
	sort.Strings(cids)

	metaStr, _ := data["m"].(string)
	parsed := metaparse.Parse(metaStr, cids)
	contractEntity["metadata"] = metaStr

	b.contracts = append(b.contracts, contractEntity)

	// Step 5: one ContractFile (+ Path, unless hidden) per content id, in
	// cid-sorted order.
	owner2 := contractOwnerHint(contractID)
	for _, fm := range parsed.Files {
		t.emitContractFile(op, contractID, contractBlank, owner2, fm, parsed, b)
	}

	var encKeyRefs []string
	for _, g := range parsed.Grants {
		keyBlank := "enckey_" + types.SanitizeBlankLabel(contractID+"_"+g.Username)
		b.other = append(b.other, Entity{
			"uid": "_:" + keyBlank,
			"keyContract": "_:" + contractBlank,
			"sharedWith": g.Username,
			"encryptedKey": g.EncryptedKey,
		})
		encKeyRefs = append(encKeyRefs, "_:"+keyBlank)
	}
	if len(encKeyRefs) > 0 {
		contractEntity["encryptionKeys"] = encKeyRefs
	}

	// Step 6: data.n (node number -> account) into StorageNodeValidation.
	var nodeRefs []string
	if n, ok := data["n"].(string); ok {
		for _, pair := range strings.Split(n, ",") {
			num, acct, ok := splitNodePair(pair)
			if !ok {
				continue
			}
			nodeAcctRef, err := t.ensureAccountBucket(ctx, acct, b, abatch)
			if err != nil {
				continue
			}
			nodeBlank := "storagenode_" + types.SanitizeBlankLabel(contractID+"_"+strconv.Itoa(num))
			b.other = append(b.other, Entity{
				"uid": "_:" + nodeBlank,
				"contract": "_:" + contractBlank,
				"nodeAccount": refValue(nodeAcctRef),
				"nodeNumber": num,
			})
			nodeRefs = append(nodeRefs, "_:"+nodeBlank)
		}
	}
	if len(nodeRefs) > 0 {
		contractEntity["storageNodes"] = nodeRefs
	}

	// Step 7: data.ex ("paidBy:amount:startBlock-endBlock,...").
	var extRefs []string
	if ex, ok := data["ex"].(string); ok {
		for i, entry := range strings.Split(ex, ",") {
			paidBy, amount, start, end, ok := splitExtension(entry)
			if !ok {
				continue
			}
			paidByRef, err := t.ensureAccountBucket(ctx, paidBy, b, abatch)
			if err != nil {
				continue
			}
			extBlank := "extension_" + types.SanitizeBlankLabel(contractID) + "_" + strconv.Itoa(i)
			b.other = append(b.other, Entity{
				"uid": "_:" + extBlank,
				"contract": "_:" + contractBlank,
				"paidBy": refValue(paidByRef),
				"amount": amount,
				"startBlock": start,
				"endBlock": end,
			})
			extRefs = append(extRefs, "_:"+extBlank)
		}
	}
	if len(extRefs) > 0 {
		contractEntity["extensions"] = extRefs
	}

	return nil
}

// emitContractFile builds the ContractFile entity for fm and, unless
// hidden, the Path entities for its directory chain, registering the
// file with the Path Accumulator.
func (t *Transformer) emitContractFile(op Op, contractID, contractBlank, owner string, fm metaparse.FileMeta, parsed *metaparse.ParsedMetadata, b *batch) {
	fileBlank := "file_" + types.SanitizeBlankLabel(fm.CID)
	hidden := fm.Flags&types.FileFlagHidden != 0

	fileEntity := Entity{
		"uid": "_:" + fileBlank,
		"cid": fm.CID,
		"name": fm.Name,
		"extension": fm.Extension,
		"flags": fm.Flags,
		"license": fm.License,
		"labels": fm.Labels,
		"thumbnail": fm.ThumbCID,
		"contract": "_:" + contractBlank,
		"cidValid": metaparse.ValidCID(fm.CID),
	}

	if hidden {
		b.files = append(b.files, fileEntity)
		return
	}

	filePath := parsed.FolderFullPath(fm)
	fileEntity["path"] = filePath
	b.files = append(b.files, fileEntity)

	t.registerPathChain(owner, filePath, fm.Name, fileBlank, op.BlockNum, b)
}

// contractOwnerHint extracts the purchaser segment from a contract id
// of the form purchaser:type:blockHeight-txid, used as the Path owner.
func contractOwnerHint(contractID string) string {
	if idx := strings.IndexByte(contractID, ':'); idx >= 0 {
		return contractID[:idx]
	}
	return contractID
}

// registerPathChain lazily creates every ancestor directory Path of
// folderPath (under owner), stamping the target directory itself with
// the file's currentFile/newestBlockNumber, then creates a distinct
// file-type Path at folderPath+"/"+name. The file is registered with the
// Path Accumulator under its containing directory only, not under its
// own leaf.
func (t *Transformer) registerPathChain(owner, folderPath, name, fileBlank string, blockNum uint64, b *batch) {
	var segments []string
	if trimmed := strings.Trim(folderPath, "/"); trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}

	cur := "/"
	for _, seg := range segments {
		parent := cur
		if cur == "/" {
			cur = "/" + seg
		} else {
			cur = cur + "/" + seg
		}
		t.Paths.AddChildDir(owner, parent, cur)

		isTarget := cur == folderPath
		existingID, known := t.Paths.PathID(owner, cur)
		if known && !isTarget {
			// Ancestor directories besides the target folder itself don't
			// need a currentFile/newestBlockNumber bump just because a new
			// file landed a level or more below them.
			continue
		}

		var uid any
		if known {
			uid = refValue(existingID)
		} else {
			dirBlank := "path_" + types.SanitizeBlankLabel(owner+"_"+cur)
			t.Paths.RegisterPath(owner, cur, types.LocalRef(dirBlank))
			uid = "_:" + dirBlank
		}

		e := Entity{
			"uid": uid,
			"owner": owner,
			"fullPath": cur,
			"type": int(types.PathDirectory),
			"pathName": seg,
		}
		if parentID, ok := t.Paths.PathID(owner, parent); ok {
			e["parent"] = refValue(parentID)
		}
		if isTarget {
			e["currentFile"] = "_:" + fileBlank
			e["newestBlockNumber"] = blockNum
		}
		b.paths = append(b.paths, e)
	}

	t.Paths.AddFileToPath(owner, folderPath, fileBlank, types.LocalRef(fileBlank))

	filePath := name
	if folderPath != "/" {
		filePath = folderPath + "/" + name
	} else {
		filePath = "/" + name
	}

	fileLeafBlank := "pathfile_" + types.SanitizeBlankLabel(owner+"_"+filePath)
	leafEntity := Entity{
		"uid": "_:" + fileLeafBlank,
		"owner": owner,
		"fullPath": filePath,
		"type": int(types.PathFile),
		"pathName": name,
		"currentFile": "_:" + fileBlank,
		"newestBlockNumber": blockNum,
	}
	if parentID, ok := t.Paths.PathID(owner, folderPath); ok {
		leafEntity["parent"] = refValue(parentID)
	}
	b.paths = append(b.paths, leafEntity)
}

func splitExpires(s string) (uint64, string) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return metaparse.DecodeBlockNumber(s), ""
	}
	return metaparse.DecodeBlockNumber(s[:idx]), s[idx+1:]
}

func splitNodePair(s string) (int, string, bool) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(s[:idx])
	if err != nil {
		return 0, "", false
	}
	acct := s[idx+1:]
	if acct == "" {
		return 0, "", false
	}
	return n, acct, true
}

func splitExtension(s string) (paidBy string, amount int64, start, end uint64, ok bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return "", 0, 0, 0, false
	}
	paidBy = parts[0]
	amount = metaparse.ParseLeadingInt(parts[1])
	se := strings.SplitN(parts[2], "-", 2)
	if len(se) != 2 {
		return "", 0, 0, 0, false
	}
	start = metaparse.DecodeBlockNumber(se[0])
	end = metaparse.DecodeBlockNumber(se[1])
	return paidBy, amount, start, end, true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && t != "false"
	default:
		return false
	}
}

// contractIdentity parses a contract path into its id, purchaser, and owner.
func contractIdentity(path []string, data map[string]any) (contractID, purchaser, owner string, ok bool) {
	if len(path) < 2 || path[0] != "contract" {
		return "", "", "", false
	}
	if len(path) >= 3 {
		second := path[1]
		blockHeightTxID := path[2]
		purchaser = stringField(data, "f", second)
		owner = stringField(data, "t", second)
		contractType := stringField(data, "ct", "0")
		contractID = purchaser + ":" + contractType + ":" + blockHeightTxID
		return contractID, purchaser, owner, true
	}
	fullID := path[1]
	purchaser = fullID
	if idx := strings.IndexByte(fullID, ':'); idx >= 0 {
		purchaser = fullID[:idx]
	}
	owner = stringField(data, "t", purchaser)
	return fullID, purchaser, owner, true
}

func stringField(data map[string]any, key, fallback string) string {
	if data == nil {
		return fallback
	}
	if s, ok := data[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
