package pathacc

import (
	"testing"

	"github.com/disregardfiat/honeygraph/internal/types"
)

// TestAccumulationAcrossBatches covers two contracts appending files to
// the same directory across batch boundaries: the accumulator must
// hold the superset rather than overwrite.
func TestAccumulationAcrossBatches(t *testing.T) {
	acc := New()

	acc.StartBatch()
	acc.RegisterPath("alice", "/TestFolder", types.LocalRef("path_alice_TestFolder"))
	acc.AddFileToPath("alice", "/TestFolder", "QmA1", types.LocalRef("file_QmA1"))
	acc.AddFileToPath("alice", "/TestFolder", "QmA2", types.LocalRef("file_QmA2"))
	acc.EndBatch()

	acc.StartBatch()
	acc.AddFileToPath("alice", "/TestFolder", "QmA3", types.LocalRef("file_QmA3"))
	acc.EndBatch()

	files := acc.GetPathFiles("alice", "/TestFolder")
	if len(files) != 3 {
		t.Fatalf("expected 3 accumulated files, got %d: %+v", len(files), files)
	}
	if acc.FileCount("alice", "/TestFolder") != 3 {
		t.Fatalf("expected FileCount 3")
	}
}

func TestAddFileToPathDedupesByKey(t *testing.T) {
	acc := New()
	acc.StartBatch()
	acc.AddFileToPath("bob", "/Pics", "QmX", types.LocalRef("file_v1"))
	acc.AddFileToPath("bob", "/Pics", "QmX", types.LocalRef("file_v2")) // last-writer-wins on same key
	acc.EndBatch()

	files := acc.GetPathFiles("bob", "/Pics")
	if len(files) != 1 {
		t.Fatalf("expected dedup to 1 file, got %d", len(files))
	}
	if files[0].LocalID != "file_v2" {
		t.Fatalf("expected latest write to win, got %+v", files[0])
	}
}

func TestPathIDUnknownReturnsFalse(t *testing.T) {
	acc := New()
	if _, ok := acc.PathID("nobody", "/x"); ok {
		t.Fatalf("expected no path id for unregistered path")
	}
}
