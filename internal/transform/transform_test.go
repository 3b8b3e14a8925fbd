package transform

import (
	"context"
	"testing"

	"github.com/disregardfiat/honeygraph/internal/accountcache"
	"github.com/disregardfiat/honeygraph/internal/pathacc"
	"github.com/disregardfiat/honeygraph/internal/types"
)

func newTransformer() *Transformer {
	return New(accountcache.New(nil), pathacc.New(), nil)
}

func findEntity(entities []Entity, uid string) Entity {
	for _, e := range entities {
		if e["uid"] == uid {
			return e
		}
	}
	return nil
}

// lastDirEntity returns the last directory-type Path entity at fullPath
// among entities, mirroring "last write in the batch wins" semantics.
func lastDirEntity(entities []Entity, fullPath string) Entity {
	var last Entity
	for _, e := range entities {
		if fp, _ := e["fullPath"].(string); fp != fullPath {
			continue
		}
		if typ, _ := e["type"].(int); typ != int(types.PathDirectory) {
			continue
		}
		last = e
	}
	return last
}

// TestHiddenFileCreatesNoPath verifies that a hidden file (the hidden
// bit set in its flags nibble) produces a ContractFile but no Path
// entity.
func TestHiddenFileCreatesNoPath(t *testing.T) {
	tr := newTransformer()
	op := Op{
		Type: OpPut,
		Path: []string{"contract", "alice", "12345-abcde"},
		Data: map[string]any{
			"df": map[string]any{
				"QmHiddenCid123": map[string]any{},
			},
			"m": "0,hidden.txt,txt.1,,2--",
		},
		BlockNum: 100,
	}
	result := tr.Transform(context.Background(), []Op{op}, BlockInfo{BlockNum: 100})
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops: %+v", result.Skipped)
	}
	var pathCount int
	for _, e := range result.Mutations {
		if _, ok := e["fullPath"]; ok {
			pathCount++
		}
	}
	if pathCount != 0 {
		t.Fatalf("expected no Path entities for a hidden file, got %d", pathCount)
	}

	fileEntity := findEntity(result.Mutations, "_:file_QmHiddenCid123")
	if fileEntity == nil {
		t.Fatalf("expected a ContractFile entity for the hidden cid")
	}
}

// TestVisibleAndHiddenFilesInSameContract mirrors a contract with one
// visible photo and one hidden thumbnail sharing a declared folder: the
// visible file gets a directory-type Path at the folder plus a
// file-type Path at its own leaf,
// the hidden file gets none, and the directory's itemCount reflects
// only the visible file.
func TestVisibleAndHiddenFilesInSameContract(t *testing.T) {
	tr := newTransformer()
	op := Op{
		Type: OpPut,
		Path: []string{"contract", "alice", "12345-abcde"},
		Data: map[string]any{
			"f": "alice",
			"df": map[string]any{
				"QmPhoto": map[string]any{},
				"QmThumb": map[string]any{},
			},
			"m": "1|Pics,photo,jpg.3,QmThumb,0--,thumb,jpg.3,,2--",
		},
		BlockNum: 200,
	}
	result := tr.Transform(context.Background(), []Op{op}, BlockInfo{BlockNum: 200})
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops: %+v", result.Skipped)
	}

	var fileCount int
	for _, e := range result.Mutations {
		if _, ok := e["cid"]; ok {
			fileCount++
		}
	}
	if fileCount != 2 {
		t.Fatalf("expected 2 ContractFile entities, got %d", fileCount)
	}

	photoLeaf := findEntity(result.Mutations, "_:pathfile_alice__Pics_photo")
	if photoLeaf == nil {
		t.Fatalf("expected a file-type Path entity at /Pics/photo")
	}
	if photoLeaf["type"] != int(types.PathFile) {
		t.Fatalf("expected /Pics/photo to be type file, got %+v", photoLeaf["type"])
	}

	if e := findEntity(result.Mutations, "_:pathfile_alice__Pics_thumb"); e != nil {
		t.Fatalf("expected no Path entity for the hidden thumbnail, got %+v", e)
	}

	dir := lastDirEntity(result.Mutations, "/Pics")
	if dir == nil {
		t.Fatalf("expected a directory Path entity for /Pics")
	}
	if dir["itemCount"] != 1 {
		t.Fatalf("expected /Pics.itemCount = 1 (only the visible file), got %v", dir["itemCount"])
	}
}

// TestFolderAccumulationAcrossContractsComputesItemCount covers two
// contracts appending files to the same directory across separate
// Transform calls: the directory's itemCount must reflect the
// accumulated file count and its currentFile must track the latest one.
func TestFolderAccumulationAcrossContractsComputesItemCount(t *testing.T) {
	tr := newTransformer()

	opA := Op{
		Type: OpPut,
		Path: []string{"contract", "alice", "100-aaa"},
		Data: map[string]any{
			"f": "alice",
			"df": map[string]any{
				"QmA1": map[string]any{},
				"QmA2": map[string]any{},
			},
			"m": "1|TestFolder,file1,txt,,0,file2,txt,,0",
		},
		BlockNum: 100,
	}
	resultA := tr.Transform(context.Background(), []Op{opA}, BlockInfo{BlockNum: 100})
	if len(resultA.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops in contract A: %+v", resultA.Skipped)
	}

	opB := Op{
		Type: OpPut,
		Path: []string{"contract", "alice", "101-bbb"},
		Data: map[string]any{
			"f": "alice",
			"df": map[string]any{
				"QmA3": map[string]any{},
			},
			"m": "1|TestFolder,file3,txt,,0",
		},
		BlockNum: 101,
	}
	resultB := tr.Transform(context.Background(), []Op{opB}, BlockInfo{BlockNum: 101})
	if len(resultB.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops in contract B: %+v", resultB.Skipped)
	}

	dir := lastDirEntity(resultB.Mutations, "/TestFolder")
	if dir == nil {
		t.Fatalf("expected a directory Path entity for /TestFolder in contract B's mutations")
	}
	if dir["itemCount"] != 3 {
		t.Fatalf("expected itemCount 3 after both contracts, got %v", dir["itemCount"])
	}
	if dir["currentFile"] != "_:file_QmA3" {
		t.Fatalf("expected currentFile to reference contract B's file, got %v", dir["currentFile"])
	}
}

type fakeAccountStore struct{ ids map[string]string }

func (f *fakeAccountStore) LookupAccountID(ctx context.Context, username string) (string, bool, error) {
	id, ok := f.ids[username]
	return id, ok, nil
}

// TestAccountDedupAcrossBatchesWithPreExistingRow verifies that a
// username already resolved to a stored id is reused across Transform
// calls rather than re-minted, and that fields written in separate
// batches land on the same entity reference.
func TestAccountDedupAcrossBatchesWithPreExistingRow(t *testing.T) {
	store := &fakeAccountStore{ids: map[string]string{"alice": "0xabc"}}
	tr := New(accountcache.New(store), pathacc.New(), nil)

	batch1 := Op{Type: OpPut, Path: []string{"balances", "alice"}, Data: float64(1000), BlockNum: 10}
	result1 := tr.Transform(context.Background(), []Op{batch1}, BlockInfo{BlockNum: 10})
	if len(result1.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops: %+v", result1.Skipped)
	}
	for _, e := range result1.Mutations {
		if _, ok := e["username"]; ok {
			t.Fatalf("a pre-existing account must not get a fresh create mutation, got %+v", e)
		}
	}

	batch2 := Op{Type: OpPut, Path: []string{"spkb", "alice"}, Data: float64(500), BlockNum: 11}
	result2 := tr.Transform(context.Background(), []Op{batch2}, BlockInfo{BlockNum: 11})
	if len(result2.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops: %+v", result2.Skipped)
	}
	for _, e := range result2.Mutations {
		if _, ok := e["username"]; ok {
			t.Fatalf("a pre-existing account must not get a fresh create mutation, got %+v", e)
		}
	}

	var sawBalances, sawSpkb bool
	for _, e := range append(result1.Mutations, result2.Mutations...) {
		if e["uid"] != "0xabc" {
			continue
		}
		if _, ok := e["balances.balances"]; ok {
			sawBalances = true
		}
		if _, ok := e["balances.spkb"]; ok {
			sawSpkb = true
		}
	}
	if !sawBalances || !sawSpkb {
		t.Fatalf("expected both balance fields written against uid 0xabc, sawBalances=%v sawSpkb=%v", sawBalances, sawSpkb)
	}
}

// TestBrocaBlockNumberDecodes verifies that a broca field of the form
// "NNN,<base64block>" decodes to a separate amount and lastUpdate
// block number.
func TestBrocaBlockNumberDecodes(t *testing.T) {
	tr := newTransformer()
	op := Op{
		Type: OpPut,
		Path: []string{"broca", "bob"},
		Data: "500,B",
		BlockNum: 10,
	}
	result := tr.Transform(context.Background(), []Op{op}, BlockInfo{BlockNum: 10})
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops: %+v", result.Skipped)
	}
	var found bool
	for _, e := range result.Mutations {
		if amt, ok := e["brocaAmount"]; ok {
			found = true
			if amt.(int64) != 500 {
				t.Fatalf("expected brocaAmount 500, got %v", amt)
			}
			if e["brocaLastUpdate"].(uint64) != 1 {
				t.Fatalf("expected brocaLastUpdate decoded from 'B' (value 1), got %v", e["brocaLastUpdate"])
			}
		}
	}
	if !found {
		t.Fatalf("expected a broca mutation")
	}
}

// TestDexPartialFillThenCancellation verifies that an order partially
// filled then cancelled ends up CANCELLED with a cancellation record
// emitted alongside it.
func TestDexPartialFillThenCancellation(t *testing.T) {
	tr := newTransformer()
	fillOp := Op{
		Type: OpPut,
		Path: []string{"dex", "hive", "sell", "1.5:txid1"},
		Data: map[string]any{
			"from": "carol",
			"a": float64(1000),
			"f": float64(400),
		},
		BlockNum: 50,
	}
	cancelOp := Op{
		Type: OpDel,
		Path: []string{"dex", "hive", "sell", "1.5:txid1"},
		BlockNum: 51,
	}

	result := tr.Transform(context.Background(), []Op{fillOp, cancelOp}, BlockInfo{BlockNum: 51})
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped ops: %+v", result.Skipped)
	}

	orderUID := "_:order_LARYNX_HIVE_sell_1_5_txid1"
	var lastStatus string
	var sawCancellation bool
	for _, e := range result.Mutations {
		if e["uid"] == orderUID {
			if s, ok := e["status"].(string); ok {
				lastStatus = s
			}
		}
		if _, ok := e["cancelled"]; ok {
			sawCancellation = true
		}
	}
	if lastStatus != "CANCELLED" {
		t.Fatalf("expected the last order mutation to carry status CANCELLED, got %q", lastStatus)
	}
	if !sawCancellation {
		t.Fatalf("expected an OrderCancellation entity to be emitted")
	}
}
