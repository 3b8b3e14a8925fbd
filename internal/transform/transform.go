package transform

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/internal/accountcache"
	"github.com/disregardfiat/honeygraph/internal/feedparse"
	"github.com/disregardfiat/honeygraph/internal/metaparse"
	"github.com/disregardfiat/honeygraph/internal/pathacc"
	"github.com/disregardfiat/honeygraph/internal/types"
)

// Transformer converts operations into entity mutations. Holds the
// cross-batch Account Cache and Path Accumulator by reference — both
// outlive any single Transform call.
type Transformer struct {
	Accounts *accountcache.Cache
	Paths *pathacc.Accumulator
	Log *logrus.Logger
}

// New constructs a Transformer over the given (process-lifetime) caches.
func New(accounts *accountcache.Cache, paths *pathacc.Accumulator, log *logrus.Logger) *Transformer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Transformer{Accounts: accounts, Paths: paths, Log: log}
}

// batch accumulates entities into the output-ordering buckets required
// by accounts (new only) -> contracts -> files -> paths ->
// transactions -> dex markets -> orders -> ohlc -> other.
type batch struct {
	accountBlankIDs map[string]bool
	accounts []Entity
	contracts []Entity
	files []Entity
	paths []Entity
	transactions []Entity
	dexMarkets []Entity
	orders []Entity
	ohlc []Entity
	other []Entity
}

func newBatch() *batch {
	return &batch{accountBlankIDs: make(map[string]bool)}
}

func (b *batch) flatten() []Entity {
	total := len(b.accounts) + len(b.contracts) + len(b.files) + len(b.paths) +
		len(b.transactions) + len(b.dexMarkets) + len(b.orders) + len(b.ohlc) + len(b.other)
	out := make([]Entity, 0, total)
	out = append(out, b.accounts...)
	out = append(out, b.contracts...)
	out = append(out, b.files...)
	out = append(out, b.paths...)
	out = append(out, b.transactions...)
	out = append(out, b.dexMarkets...)
	out = append(out, b.orders...)
	out = append(out, b.ohlc...)
	out = append(out, b.other...)
	return out
}

// Transform converts a block's operations into an ordered mutation
// list. Operations within a block are processed in order; a malformed
// op is logged and dropped without aborting the rest of the batch.
func (t *Transformer) Transform(ctx context.Context, ops []Op, block BlockInfo) Result {
	b := newBatch()
	abatch := accountcache.NewBatch()
	var skipped []SkippedOp

	t.Paths.StartBatch()

	for _, op := range ops {
		if op.Type == OpWriteMarker {
			continue // batch terminator, produces no mutations
		}
		if len(op.Path) == 0 {
			skipped = append(skipped, SkippedOp{Op: op, Reason: "empty path"})
			continue
		}
		if err := t.dispatch(ctx, op, block, b, abatch); err != nil {
			t.Log.WithError(err).WithField("path", op.Path).Warn("transform: dropping malformed operation")
			skipped = append(skipped, SkippedOp{Op: op, Reason: err.Error()})
		}
	}

	t.stampItemCounts(b)
	t.Paths.EndBatch()

	return Result{Mutations: b.flatten(), Skipped: skipped}
}

// stampItemCounts computes each directory Path entity's itemCount from
// the Path Accumulator and writes it onto the entity, processed
// deepest-first so every directory's own children have already
// registered themselves (files via dispatch, subdirectories via
// registerPathChain) by the time its count is read.
func (t *Transformer) stampItemCounts(b *batch) {
	order := make([]int, len(b.paths))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return pathDepth(b.paths[order[i]]) > pathDepth(b.paths[order[j]])
	})

	for _, i := range order {
		e := b.paths[i]
		typ, _ := e["type"].(int)
		if typ != int(types.PathDirectory) {
			continue
		}
		owner, _ := e["owner"].(string)
		fullPath, _ := e["fullPath"].(string)
		e["itemCount"] = t.Paths.ItemCount(owner, fullPath)
	}
}

func pathDepth(e Entity) int {
	fullPath, _ := e["fullPath"].(string)
	trimmed := strings.Trim(fullPath, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

// skippedPrefixes are internal-state predicates with no graph
// representation (dispatch table).
var skippedPrefixes = map[string]bool{
	"witness": true, "rand": true, "IPFS": true, "cPointers": true,
	"escrow": true, "chain": true, "chrono": true, "forks": true,
	"temp": true, "validation": true,
}

func (t *Transformer) dispatch(ctx context.Context, op Op, block BlockInfo, b *batch, abatch accountcache.BatchMutations) error {
	prefix := op.Path[0]

	if skippedPrefixes[prefix] {
		return nil
	}

	if op.Type == OpDel {
		return t.dispatchDelete(ctx, op, b)
	}

	switch prefix {
	case "authorities":
		return t.transformAuthorities(ctx, op, b, abatch)
	case "balances", "spk", "spkb", "spkp", "cbalances", "cbroca", "cspk", "lbroca", "sbroca", "vbroca", "nomention":
		return t.transformBalanceField(ctx, op, b, abatch, prefix)
	case "broca":
		return t.transformBroca(ctx, op, b, abatch)
	case "bpow":
		return t.transformAccountIntField(ctx, op, b, abatch, "brocaPower")
	case "pow":
		return t.transformPow(ctx, op, b, abatch)
	case "granted", "granting":
		return t.transformGrant(ctx, op, b, abatch, prefix)
	case "contract":
		return t.transformContract(ctx, op, block, b, abatch)
	case "contracts":
		return t.transformContractsList(ctx, op, b, abatch)
	case "feed":
		return t.transformFeed(op, b)
	case "services", "list":
		return t.transformServiceList(ctx, op, b, abatch, prefix)
	case "service":
		return nil
	case "market":
		return t.transformMarketNode(ctx, op, b, abatch)
	case "proffer":
		return t.transformProffer(ctx, op, b, abatch)
	case "dex", "dexb", "dexs":
		return t.transformDex(ctx, op, block, b, abatch)
	case "spkVote":
		return t.transformSpkVote(ctx, op, b, abatch)
	case "val":
		return t.transformValidator(ctx, op, b, abatch)
	case "stats":
		return t.transformStats(op, b)
	case "delegations":
		return t.transformDelegation(ctx, op, b, abatch)
	default:
		return t.transformGeneric(op, b)
	}
}

func (t *Transformer) dispatchDelete(ctx context.Context, op Op, b *batch) error {
	if op.Path[0] == "feed" {
		return nil // history preserved, deletions are a no-op
	}
	if op.Path[0] == "dex" || op.Path[0] == "dexb" || op.Path[0] == "dexs" {
		return t.transformDexCancellation(op, b)
	}
	b.other = append(b.other, Entity{
		"uid": "_:del_" + types.SanitizeBlankLabel(strings.Join(op.Path, "_")),
		"deleted": true,
		"path": strings.Join(op.Path, "/"),
		"blockNum": op.BlockNum,
	})
	return nil
}

// ensureAccountBucket ensures the account exists via the cache and, if
// freshly minted, adds it to the "new only" accounts bucket per the
// output ordering rule.
func (t *Transformer) ensureAccountBucket(ctx context.Context, username string, b *batch, abatch accountcache.BatchMutations) (types.Ref, error) {
	ref, existing, err := t.Accounts.EnsureAccount(ctx, username, abatch)
	if err != nil {
		return types.Ref{}, err
	}
	if !existing && ref.Kind == types.RefLocal && !b.accountBlankIDs[ref.LocalID] {
		b.accountBlankIDs[ref.LocalID] = true
		b.accounts = append(b.accounts, Entity{
			"uid": "_:" + ref.LocalID,
			"username": username,
		})
	}
	return ref, nil
}

func refValue(r types.Ref) any {
	switch r.Kind {
	case types.RefLocal:
		return "_:" + r.LocalID
	case types.RefStored:
		return r.StoredID
	case types.RefName:
		return map[string]string{"name": r.Name}
	default:
		return nil
	}
}

// transformAuthorities writes either a plain public key string or an
// authority-data object to the named account ("string vs
// object").
func (t *Transformer) transformAuthorities(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	e := Entity{"uid": refValue(ref)}
	switch v := op.Data.(type) {
	case string:
		e["publicKey"] = v
	default:
		e["authorityData"] = jsonStringify(v)
	}
	b.other = append(b.other, e)
	return nil
}

// transformBalanceField covers the flat integer-or-"amount,block"
// account fields.
func (t *Transformer) transformBalanceField(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations, field string) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	amount, lastUpdate, hasBlock := coerceAmountBlock(op.Data)
	e := Entity{"uid": refValue(ref), "balances." + field: amount}
	if hasBlock {
		e["balances."+field+".lastUpdate"] = lastUpdate
	}
	b.other = append(b.other, e)
	return nil
}

func (t *Transformer) transformBroca(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	amount, lastUpdate, _ := coerceAmountBlock(op.Data)
	b.other = append(b.other, Entity{
		"uid": refValue(ref),
		"brocaAmount": amount,
		"brocaLastUpdate": lastUpdate,
	})
	return nil
}

func (t *Transformer) transformAccountIntField(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations, field string) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	b.other = append(b.other, Entity{"uid": refValue(ref), field: coerceInt(op.Data)})
	return nil
}

// transformPow handles `pow`: an object becomes a POWReport entity,
// otherwise it's a plain Account.power write.
func (t *Transformer) transformPow(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	if m, ok := op.Data.(map[string]any); ok {
		b.other = append(b.other, Entity{
			"uid": "_:powreport_" + types.SanitizeBlankLabel(username+"_"+strconv.FormatUint(op.BlockNum, 10)),
			"account": refValue(ref),
			"report": jsonStringify(m),
		})
		return nil
	}
	b.other = append(b.other, Entity{"uid": refValue(ref), "power": coerceInt(op.Data)})
	return nil
}

// transformGrant handles `granted`/`granting`: the 't' key is the
// aggregate total on the Account; any other key is a specific
// grantor:grantee pair, but only handled once, under `granted`.
func (t *Transformer) transformGrant(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations, field string) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	if len(op.Path) >= 3 && op.Path[2] == "t" {
		totalField := "powerGranted"
		if field == "granting" {
			totalField = "powerGranting"
		}
		b.other = append(b.other, Entity{"uid": refValue(ref), totalField: coerceInt(op.Data)})
		return nil
	}
	if field != "granted" || len(op.Path) < 3 {
		return nil // specific grants are only materialized once, under granted
	}
	other := op.Path[2]
	b.other = append(b.other, Entity{
		"uid": "_:powergrant_" + types.SanitizeBlankLabel(username+"_"+other),
		"grantor": username,
		"grantee": other,
		"amount": coerceInt(op.Data),
	})
	return nil
}

func (t *Transformer) transformContractsList(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	b.other = append(b.other, Entity{
		"uid": "_:dexcontracts_" + types.SanitizeBlankLabel(username),
		"purchaser": refValue(ref),
		"data": jsonStringify(op.Data),
	})
	return nil
}

func (t *Transformer) transformFeed(op Op, b *batch) error {
	if len(op.Path) < 2 {
		return errMalformedPath
	}
	entry := feedparse.ParseEntry(op.Path[1])
	tx := feedparse.Classify(entry, op.Data)
	b.transactions = append(b.transactions, Entity{
		"uid": "_:tx_" + types.SanitizeBlankLabel(entry.TxID),
		"blockNum": tx.BlockNum,
		"txId": tx.TxID,
		"category": string(tx.Category),
		"amount": tx.Amount,
		"token": tx.Token,
		"from": tx.From,
		"to": tx.To,
		"memo": tx.Memo,
		"orderType": tx.OrderType,
		"nftId": tx.NFTID,
		"contractId": tx.ContractID,
	})
	return nil
}

func (t *Transformer) transformServiceList(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations, field string) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	b.other = append(b.other, Entity{
		"uid": "_:" + field + "_" + types.SanitizeBlankLabel(username),
		"provider": refValue(ref),
		"kind": field,
		"data": jsonStringify(op.Data),
	})
	return nil
}

func (t *Transformer) transformMarketNode(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	if len(op.Path) < 2 || op.Path[1] != "node" {
		return nil
	}
	b.other = append(b.other, Entity{
		"uid": "_:marketbid_" + types.SanitizeBlankLabel(strings.Join(op.Path, "_")),
		"data": jsonStringify(op.Data),
	})
	return nil
}

func (t *Transformer) transformProffer(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	b.other = append(b.other, Entity{
		"uid": "_:proffer_" + types.SanitizeBlankLabel(strings.Join(op.Path, "_")),
		"data": jsonStringify(op.Data),
	})
	return nil
}

func (t *Transformer) transformSpkVote(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	username, ok := pathAccount(op.Path)
	if !ok {
		return errMalformedPath
	}
	ref, err := t.ensureAccountBucket(ctx, username, b, abatch)
	if err != nil {
		return err
	}
	s, _ := op.Data.(string)
	choices := splitValidatorCodes(s)
	b.other = append(b.other, Entity{"uid": refValue(ref), "spkVote": s, "spkVoteChoices": choices})
	return nil
}

// splitValidatorCodes splits a spkVote string into two-character
// validator codes.
func splitValidatorCodes(s string) []string {
	var out []string
	for i := 0; i+2 <= len(s); i += 2 {
		out = append(out, s[i:i+2])
	}
	return out
}

func (t *Transformer) transformValidator(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	if len(op.Path) < 2 {
		return errMalformedPath
	}
	code := op.Path[1]
	account, _ := op.Data.(string)
	var votingPower int64
	if m, ok := op.Data.(map[string]any); ok {
		if a, ok := m["account"].(string); ok {
			account = a
		}
		votingPower = coerceInt(m["votingPower"])
	}
	var ref types.Ref
	var err error
	if account != "" {
		ref, err = t.ensureAccountBucket(ctx, account, b, abatch)
		if err != nil {
			return err
		}
	}
	b.other = append(b.other, Entity{
		"uid": "_:validator_" + types.SanitizeBlankLabel(code),
		"code": code,
		"account": refValue(ref),
		"votingPower": votingPower,
	})
	return nil
}

func (t *Transformer) transformStats(op Op, b *batch) error {
	b.other = append(b.other, Entity{
		"uid": "_:stats_" + types.SanitizeBlankLabel(strings.Join(op.Path, "_")),
		"data": jsonStringify(op.Data),
	})
	return nil
}

func (t *Transformer) transformDelegation(ctx context.Context, op Op, b *batch, abatch accountcache.BatchMutations) error {
	b.other = append(b.other, Entity{
		"uid": "_:delegation_" + types.SanitizeBlankLabel(strings.Join(op.Path, "_")),
		"data": jsonStringify(op.Data),
	})
	return nil
}

func (t *Transformer) transformGeneric(op Op, b *batch) error {
	b.other = append(b.other, Entity{
		"uid": "_:op_" + types.SanitizeBlankLabel(strings.Join(op.Path, "_")),
		"path": strings.Join(op.Path, "/"),
		"data": jsonStringify(op.Data),
	})
	return nil
}

// pathAccount extracts the username from a two-segment path
// [prefix, username], the shape most account-scoped fields use.
func pathAccount(path []string) (string, bool) {
	if len(path) < 2 || path[1] == "" {
		return "", false
	}
	return path[1], true
}
