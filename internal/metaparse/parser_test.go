package metaparse

import "testing"

func TestDecodeBlockNumberRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 65, 4095, 1 << 20, 123456789}
	for _, n := range cases {
		enc := EncodeBlockNumber(n)
		got := DecodeBlockNumber(enc)
		if got != n {
			t.Errorf("round trip failed for %d: encoded %q, decoded %d", n, enc, got)
		}
	}
}

func TestSplitAmountBlock(t *testing.T) {
	amount, _ := SplitAmountBlock("80975487,5qUoh")
	if amount != 80975487 {
		t.Fatalf("expected amount 80975487, got %d", amount)
	}
	reenc := EncodeBlockNumber(DecodeBlockNumber("5qUoh"))
	if DecodeBlockNumber(reenc) != DecodeBlockNumber("5qUoh") {
		t.Fatalf("block decode not stable under re-encode")
	}
}

func TestParseStandardWithFolders(t *testing.T) {
	cids := []string{"QmA2", "QmA1"} // intentionally unsorted
	pm := Parse("1|TestFolder,file1,txt,,0,file2,txt,,0", cids)
	if pm.Recognizer != "standard-with-folders" {
		t.Fatalf("expected standard-with-folders, got %s", pm.Recognizer)
	}
	if len(pm.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(pm.Files))
	}
	for _, fm := range pm.Files {
		path := pm.FolderFullPath(fm)
		if path != "/TestFolder" {
			t.Errorf("file %s: expected /TestFolder, got %s", fm.Name, path)
		}
	}
	if pm.Files[0].CID != "QmA1" || pm.Files[1].CID != "QmA2" {
		t.Fatalf("files must be assigned in cid-sorted order, got %+v", pm.Files)
	}
}

func TestParseHiddenFileExcludedPath(t *testing.T) {
	cids := []string{"QmPhoto", "QmThumb"}
	pm := Parse("1|Pics,photo,jpg.3,QmThumb,0--,thumb,jpg.3,,2--", cids)
	if len(pm.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(pm.Files))
	}
	var photo, thumb FileMeta
	for _, fm := range pm.Files {
		switch fm.Name {
		case "photo":
			photo = fm
		case "thumb":
			thumb = fm
		}
	}
	if photo.Flags&1 != 0 {
		t.Fatalf("photo should not be encrypted-flagged in this example")
	}
	if thumb.Flags&2 == 0 {
		t.Fatalf("expected thumb hidden bit set, flags=%d", thumb.Flags)
	}
	// Only one top-level folder ("Pics") was declared, so the
	// single-declared-folder fallback routes both files there
	// regardless of the literal (ambiguous) folder index byte in this
	// illustrative example.
	if got := pm.FolderFullPath(photo); got != "/Pics" {
		t.Fatalf("expected /Pics, got %s", got)
	}
}

func TestRecognizeEncryptionShortForm(t *testing.T) {
	pm := Parse("#abc123@alice;#def456@bob,file1,txt,,0", nil)
	if pm.Recognizer != "encryption-short-form" {
		t.Fatalf("expected encryption-short-form, got %s", pm.Recognizer)
	}
	if len(pm.Grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(pm.Grants))
	}
	if pm.Grants[0].Username != "alice" || pm.Grants[1].Username != "bob" {
		t.Fatalf("unexpected grants: %+v", pm.Grants)
	}
}

func TestParseUnparseableGroupFallsBackToCID(t *testing.T) {
	cids := []string{"QmXYZ"}
	pm := Parse("1|Folder,onlyname", cids)
	if pm.Files[0].Parsed {
		t.Fatalf("expected unparsed group (too few fields)")
	}
	if pm.Files[0].Name != "QmXYZ" {
		t.Fatalf("expected name fallback to cid, got %s", pm.Files[0].Name)
	}
}
