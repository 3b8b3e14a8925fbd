package transform

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/disregardfiat/honeygraph/internal/metaparse"
)

// errMalformedPath marks an op whose path doesn't match the shape its
// prefix requires (MalformedOperation).
var errMalformedPath = errors.New("path does not match expected shape for this prefix")

// coerceInt implements the numeric coercion pass: strings of the form
// "NNN,..." coerce to their leading integer, objects coerce to 0,
// floats floor, null/undefined coerce to 0.
func coerceInt(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(math.Floor(t))
	case string:
		return metaparse.ParseLeadingInt(t)
	case map[string]any, []any:
		return 0
	default:
		return 0
	}
}

// coerceAmountBlock handles the "NNN,base64block" split form shared by
// balances/spk/broca-family fields: it returns the amount, the
// decoded block number, and whether a block component was present.
func coerceAmountBlock(v any) (amount int64, block uint64, hasBlock bool) {
	s, ok := v.(string)
	if !ok {
		return coerceInt(v), 0, false
	}
	if !strings.Contains(s, ",") {
		return metaparse.ParseLeadingInt(s), 0, false
	}
	a, lastUpdate := metaparse.SplitAmountBlock(s)
	return a, lastUpdate, true
}

// jsonStringify renders v as a JSON string for string-typed fields that
// received an object value (final coercion rule).
func jsonStringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
