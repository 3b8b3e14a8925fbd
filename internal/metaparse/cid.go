package metaparse

import (
	cidpkg "github.com/ipfs/go-cid"
)

// ValidCID reports whether s parses as a CIDv0 or CIDv1. A ContractFile
// whose cid fails this check is still stored but flagged
// CIDValid=false for downstream diagnostics.
func ValidCID(s string) bool {
	_, err := cidpkg.Decode(s)
	return err == nil
}
