package transform

import (
	"context"
	"strconv"
	"strings"

	"github.com/disregardfiat/honeygraph/internal/accountcache"
	"github.com/disregardfiat/honeygraph/internal/metaparse"
	"github.com/disregardfiat/honeygraph/internal/types"
)

// dexPrefixToken is the inverse of types.DexPrefix.
func dexPrefixToken(prefix string) types.Token {
	switch prefix {
	case "dexs":
		return types.TokenSPK
	case "dexb":
		return types.TokenBROCA
	default:
		return types.TokenLARYNX
	}
}

// transformDex handles the dex/dexb/dexs prefixes: a market is
// identified by token+quote, under it sit buy/sell order books keyed
// "rate:txid", and a "days" bucket keyed by block holds OHLC candles.
// Path shapes follow the same quote-scoped layout the balance/broca
// family uses elsewhere in the dispatch table:
//
//	[prefix, quote, "buy"|"sell", "rate:txid"] -> DexOrder
//	[prefix, quote, "days", bucketKey] -> OHLCData
func (t *Transformer) transformDex(ctx context.Context, op Op, block BlockInfo, b *batch, abatch accountcache.BatchMutations) error {
	if len(op.Path) < 3 {
		return errMalformedPath
	}
	token := dexPrefixToken(op.Path[0])
	quote := types.Quote(strings.ToUpper(op.Path[1]))
	marketKey := string(token) + "_" + string(quote)
	marketBlank := "market_" + types.SanitizeBlankLabel(marketKey)

	b.dexMarkets = append(b.dexMarkets, Entity{
		"uid": "_:" + marketBlank,
		"token": string(token),
		"quote": string(quote),
	})

	switch op.Path[2] {
	case "buy", "sell":
		if len(op.Path) < 4 {
			return errMalformedPath
		}
		return t.transformDexOrder(ctx, op, marketKey, marketBlank, op.Path[2], op.Path[3], b, abatch)
	case "days":
		if len(op.Path) < 4 {
			return errMalformedPath
		}
		return t.transformDexOHLC(op, marketKey, marketBlank, op.Path[3], b)
	default:
		return nil
	}
}

// transformDexOrder builds one DexOrder entity for a "rate:txid"-keyed
// order book entry.
func (t *Transformer) transformDexOrder(ctx context.Context, op Op, marketKey, marketBlank, side, rateTxid string, b *batch, abatch accountcache.BatchMutations) error {
	rateStr, txid, ok := splitRateTxID(rateTxid)
	if !ok {
		return errMalformedPath
	}
	rate := parseRate(rateStr)

	data, _ := op.Data.(map[string]any)
	fromUsername := stringField(data, "from", "")
	var fromRef types.Ref
	if fromUsername != "" {
		var err error
		fromRef, err = t.ensureAccountBucket(ctx, fromUsername, b, abatch)
		if err != nil {
			return err
		}
	}

	order := types.DexOrder{
		ID: marketKey + ":" + rateTxid,
		Side: strings.ToUpper(side),
		Rate: rate,
		Amount: coerceInt(data["a"]),
		Filled: coerceInt(data["f"]),
		From: fromRef,
	}
	if e, ok := data["e"].(string); ok {
		order.ExpireBlock = metaparse.DecodeBlockNumber(e)
	}
	order.Recompute()

	orderBlank := "order_" + types.SanitizeBlankLabel(marketKey+"_"+side+"_"+rateTxid)
	e := Entity{
		"uid": "_:" + orderBlank,
		"id": order.ID,
		"market": "_:" + marketBlank,
		"side": order.Side,
		"txId": txid,
		"rate": order.Rate,
		"amount": order.Amount,
		"filled": order.Filled,
		"remaining": order.Remaining,
		"tokenAmount": order.TokenAmount,
		"status": string(order.Status),
		"expireBlock": order.ExpireBlock,
	}
	if !fromRef.IsZero() {
		e["from"] = refValue(fromRef)
	}
	b.orders = append(b.orders, e)
	return nil
}

// transformDexOHLC builds one OHLCData candle from a "days" bucket entry:
// {o,t,b,c,d,v} -> open,high,low,close,volumeQuote,volumeToken.
func (t *Transformer) transformDexOHLC(op Op, marketKey, marketBlank, bucketKey string, b *batch) error {
	data, _ := op.Data.(map[string]any)
	if data == nil {
		return errMalformedPath
	}
	blockBucket := metaparse.DecodeBlockNumber(bucketKey)
	ohlcBlank := "ohlc_" + types.SanitizeBlankLabel(marketKey+"_"+bucketKey)
	b.ohlc = append(b.ohlc, Entity{
		"uid": "_:" + ohlcBlank,
		"market": "_:" + marketBlank,
		"blockBucket": blockBucket,
		"open": parseRate(jsonStringify(data["o"])),
		"high": parseRate(jsonStringify(data["t"])),
		"low": parseRate(jsonStringify(data["b"])),
		"close": parseRate(jsonStringify(data["c"])),
		"volumeQuote": parseRate(jsonStringify(data["d"])),
		"volumeToken": parseRate(jsonStringify(data["v"])),
	})
	return nil
}

// transformDexCancellation handles a delete under dex/dexb/dexs: the
// referenced order is marked CANCELLED and an OrderCancellation record
// is emitted, covering the partial-fill-then-cancellation case.
func (t *Transformer) transformDexCancellation(op Op, b *batch) error {
	if len(op.Path) < 4 {
		return nil
	}
	token := dexPrefixToken(op.Path[0])
	quote := types.Quote(strings.ToUpper(op.Path[1]))
	marketKey := string(token) + "_" + string(quote)
	side := op.Path[2]
	rateTxid := op.Path[3]

	orderBlank := "order_" + types.SanitizeBlankLabel(marketKey+"_"+side+"_"+rateTxid)
	b.orders = append(b.orders, Entity{
		"uid": "_:" + orderBlank,
		"status": string(types.OrderCancelled),
	})
	b.other = append(b.other, Entity{
		"uid": "_:cancel_" + types.SanitizeBlankLabel(marketKey+"_"+side+"_"+rateTxid),
		"order": "_:" + orderBlank,
		"blockNum": op.BlockNum,
		"cancelled": true,
	})
	return nil
}

func splitRateTxID(s string) (rate, txid string, ok bool) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

// parseRate parses a decimal rate string, tolerating the empty/malformed
// input the numeric-coercion pass must never fail on.
func parseRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return float64(metaparse.ParseLeadingInt(s))
	}
	return f
}
