package feedparse

import (
	"testing"

	"github.com/disregardfiat/honeygraph/internal/types"
)

func TestParseEntry(t *testing.T) {
	e := ParseEntry("100:abcde")
	if e.BlockNum != 100 || e.TxID != "abcde" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestParseEntryMalformed(t *testing.T) {
	e := ParseEntry("not-a-feed-key")
	if e.BlockNum != 0 || e.TxID != "not-a-feed-key" {
		t.Fatalf("expected raw passthrough, got %+v", e)
	}
}

func TestClassifyTokenTransferObject(t *testing.T) {
	tx := Classify(ParseEntry("10:tx1"), map[string]any{
		"amount": float64(500),
		"to": "bob",
		"token": "LARYNX",
	})
	if tx.Category != types.TxTokenTransfer {
		t.Fatalf("expected TOKEN_TRANSFER, got %s", tx.Category)
	}
	if tx.Amount != 500 || tx.To != "bob" {
		t.Fatalf("unexpected fields: %+v", tx)
	}
}

func TestClassifyDexOrder(t *testing.T) {
	tx := Classify(ParseEntry("10:tx2"), map[string]any{
		"rate": "100.000000",
		"amount": float64(500),
	})
	if tx.Category != types.TxDexOrder {
		t.Fatalf("expected DEX_ORDER, got %s", tx.Category)
	}
}

func TestClassifyUnknownPassthrough(t *testing.T) {
	tx := Classify(ParseEntry("10:tx3"), map[string]any{"weird": true})
	if tx.Category != types.TxUnknown {
		t.Fatalf("expected UNKNOWN, got %s", tx.Category)
	}
	if tx.Raw == nil {
		t.Fatalf("expected raw payload preserved")
	}
}

func TestClassifyStringShorthand(t *testing.T) {
	tx := Classify(ParseEntry("10:tx4"), "LARYNX 250 alice memo-text")
	if tx.Category != types.TxTokenTransfer {
		t.Fatalf("expected TOKEN_TRANSFER, got %s", tx.Category)
	}
	if tx.Amount != 250 || tx.To != "alice" || tx.Memo != "memo-text" {
		t.Fatalf("unexpected fields: %+v", tx)
	}
}
