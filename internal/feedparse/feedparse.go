// Package feedparse implements the Feed Parser: classification of
// feed entries ("<blockNum>:<txId>" plus a payload) into transaction
// categories. Pure classification, no I/O — it is called
// from inside a transform pass and must never block (suspension
// points explicitly exclude feed-parser calls).
package feedparse

import (
	"strconv"
	"strings"

	"github.com/disregardfiat/honeygraph/internal/types"
)

// Entry is one decoded feed key, "<blockNum>:<txId>".
type Entry struct {
	BlockNum uint64
	TxID string
}

// ParseEntry splits a feed key into its block number and transaction id.
// A malformed key (no ':' or non-numeric block) still returns an Entry
// with TxID set to the whole raw key and BlockNum 0 — feed parsing never
// errors ("never throw" philosophy applies equally here).
func ParseEntry(key string) Entry {
	idx := strings.IndexByte(key, ':')
	if idx < 0 {
		return Entry{TxID: key}
	}
	n, err := strconv.ParseUint(key[:idx], 10, 64)
	if err != nil {
		return Entry{TxID: key}
	}
	return Entry{BlockNum: n, TxID: key[idx+1:]}
}

// Classify inspects payload (typically a JSON-decoded map, a string, or
// nil) and returns a Transaction with its category and whatever
// category-specific fields it can extract. Unknown shapes pass through
// as UNKNOWN with the raw payload preserved.
func Classify(entry Entry, payload any) types.Transaction {
	tx := types.Transaction{
		BlockNum: entry.BlockNum,
		TxID: entry.TxID,
		Category: types.TxUnknown,
		Raw: payload,
	}

	switch v := payload.(type) {
	case string:
		classifyString(&tx, v)
	case map[string]any:
		classifyObject(&tx, v)
	}
	return tx
}

func classifyString(tx *types.Transaction, s string) {
	// A bare string payload on the feed is the legacy token-transfer
	// shorthand: "<token> <amount> <to> <memo?>".
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return
	}
	tx.Category = types.TxTokenTransfer
	tx.Token = fields[0]
	tx.Amount = types.ParseLeadingAmount(fields[1])
	tx.To = fields[2]
	if len(fields) > 3 {
		tx.Memo = strings.Join(fields[3:], " ")
	}
}

func classifyObject(tx *types.Transaction, m map[string]any) {
	switch {
	case has(m, "orderType"), has(m, "rate") && has(m, "amount"):
		tx.Category = types.TxDexOrder
	case has(m, "trade"), has(m, "matched"):
		tx.Category = types.TxDexTrade
	case has(m, "nftId"), has(m, "setId"):
		tx.Category = types.TxNFT
	case has(m, "powerUp"):
		tx.Category = types.TxPowerUp
	case has(m, "powerDown"):
		tx.Category = types.TxPowerDown
	case has(m, "contractId") && has(m, "df"):
		tx.Category = types.TxStorageUpload
	case has(m, "contractId") && has(m, "cancel"):
		tx.Category = types.TxStorageCancel
	case has(m, "amount") && (has(m, "to") || has(m, "from")):
		tx.Category = types.TxTokenTransfer
	default:
		return
	}

	if s, ok := m["token"].(string); ok {
		tx.Token = s
	}
	if s, ok := m["from"].(string); ok {
		tx.From = s
	}
	if s, ok := m["to"].(string); ok {
		tx.To = s
	}
	if s, ok := m["memo"].(string); ok {
		tx.Memo = s
	}
	if s, ok := m["contractId"].(string); ok {
		tx.ContractID = s
	}
	if s, ok := m["nftId"].(string); ok {
		tx.NFTID = s
	}
	if s, ok := m["orderType"].(string); ok {
		tx.OrderType = s
	}
	switch amt := m["amount"].(type) {
	case float64:
		tx.Amount = int64(amt)
	case string:
		tx.Amount = types.ParseLeadingAmount(amt)
	}
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
