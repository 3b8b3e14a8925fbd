package graphstore

import (
	"context"
	"encoding/json"
)

// These four convenience methods are the access paths the core must
// keep queryable regardless of what the outer read-API layer does with
// them (external interfaces): by (owner, fullPath), by
// ContractFile.cid, by StorageContract.id, and by (DexOrder.status,
// market). Each is a thin parameterized-query wrapper over Query.

// QueryByOwnerPath resolves the Path entity at (owner, fullPath).
func (s *Store) QueryByOwnerPath(ctx context.Context, owner, fullPath string) (json.RawMessage, error) {
	const q = `query byOwnerPath($owner: string, $path: string) {
		path(func: eq(owner, $owner)) @filter(eq(fullPath, $path)) {
			uid owner fullPath type pathName itemCount parent children currentFile newestBlockNumber
		}
	}`
	return s.Query(ctx, q, map[string]string{"$owner": owner, "$path": fullPath})
}

// QueryByCID resolves the ContractFile entity with the given cid.
func (s *Store) QueryByCID(ctx context.Context, cid string) (json.RawMessage, error) {
	const q = `query byCID($cid: string) {
		file(func: eq(cid, $cid)) {
			uid cid size name extension mimeType flags license labels thumbnail path contract contractBlockNumber cidValid
		}
	}`
	return s.Query(ctx, q, map[string]string{"$cid": cid})
}

// QueryByContractID resolves the StorageContract entity with the given
// id (purchaser:contractType:blockHeight-txid).
func (s *Store) QueryByContractID(ctx context.Context, contractID string) (json.RawMessage, error) {
	const q = `query byContractID($id: string) {
		contract(func: eq(id, $id)) {
			uid id purchaser owner status authorized broker power refunded utilized verified nodeTotal fileCount expiresBlock expiresChronId metadata encryptionKeys storageNodes extensions blockNumber
		}
	}`
	return s.Query(ctx, q, map[string]string{"$id": contractID})
}

// QueryOrdersByMarketStatus resolves DexOrder entities for a market
// filtered by status (OPEN/PARTIAL/FILLED/CANCELLED).
func (s *Store) QueryOrdersByMarketStatus(ctx context.Context, marketUID, status string) (json.RawMessage, error) {
	const q = `query ordersByMarketStatus($market: string, $status: string) {
		orders(func: eq(market, $market)) @filter(eq(status, $status)) {
			uid id market side rate amount filled remaining tokenAmount status from expireBlock
		}
	}`
	return s.Query(ctx, q, map[string]string{"$market": marketUID, "$status": status})
}
