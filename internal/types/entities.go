// Package types holds the semantic data model shared by the ingest
// pipeline (pathacc, accountcache, metaparse, feedparse, transform,
// worker) and the store/read boundary (graphstore). Struct-per-entity
// with json tags, no ORM.
package types

// ContractStatus is the lifecycle stage of a StorageContract.
type ContractStatus int

const (
	StatusPending ContractStatus = iota
	StatusUploading
	StatusProcessing
	StatusActive
	StatusExpired
	StatusCancelled
)

// FileFlag bits per protocol constants.
const (
	FileFlagEncrypted = 1 << 0
	FileFlagHidden = 1 << 1
)

// Account is the unique-per-user entity; identity is Username.
type Account struct {
	Ref Ref `json:"uid"`

	Username string `json:"username"`

	// Balances are milli-unit integers keyed by token symbol.
	Balances map[string]int64 `json:"balances"` // token -> amount
	Power int64 `json:"power"`
	BrocaAmount int64 `json:"brocaAmount"`
	BrocaLastUpdate int64 `json:"brocaLastUpdate"`
	BrocaPower int64 `json:"brocaPower"`

	VoteString string `json:"voteString"`
	VoteChoices []string `json:"voteChoices"`
	SpkVote string `json:"spkVote"`
	PowerGranted int64 `json:"powerGranted"`
	PowerGranting int64 `json:"powerGranting"`
	PublicKey string `json:"publicKey,omitempty"`
	AuthorityData string `json:"authorityData,omitempty"`

	LastUpdateBlock uint64 `json:"lastUpdateBlock"`

	// IsExisting is true when this Account was resolved to a prior
	// stored id rather than freshly minted — the worker must not emit
	// a duplicate create for it.
	IsExisting bool `json:"-"`
}

// EncryptionKey is a per-grant sharing record.
type EncryptionKey struct {
	Ref Ref `json:"uid"`
	KeyContract Ref `json:"keyContract"`
	SharedWith string `json:"sharedWith"`
	EncryptedKey string `json:"encryptedKey"`
	KeyType string `json:"keyType"`
}

// StorageNodeValidation records a node pledged against a contract.
type StorageNodeValidation struct {
	Ref Ref `json:"uid"`
	NodeAccount Ref `json:"nodeAccount"`
	NodeNumber int `json:"nodeNumber"`
}

// ContractExtension is a parsed `data.ex` entry.
type ContractExtension struct {
	Ref Ref `json:"uid"`
	PaidBy Ref `json:"paidBy"`
	Amount int64 `json:"amount"`
	StartBlock uint64 `json:"startBlock"`
	EndBlock uint64 `json:"endBlock"`
}

// StorageContract is identified by purchaser:contractType:blockHeight-txid.
type StorageContract struct {
	Ref Ref `json:"uid"`
	ID string `json:"id"`

	Purchaser Ref `json:"purchaser"`
	Owner Ref `json:"owner"`

	Status ContractStatus `json:"status"`
	Authorized int64 `json:"authorized"`
	Broker string `json:"broker,omitempty"`
	Power int64 `json:"power"`
	Refunded int64 `json:"refunded"`
	Utilized int64 `json:"utilized"`
	Verified bool `json:"verified"`
	NodeTotal int64 `json:"nodeTotal"`
	FileCount int `json:"fileCount"`
	ExpiresBlock uint64 `json:"expiresBlock"`
	ExpiresChron string `json:"expiresChronId,omitempty"`
	Metadata string `json:"metadata"`

	EncryptionKeys []Ref `json:"encryptionKeys,omitempty"`
	StorageNodes []Ref `json:"storageNodes,omitempty"`
	Extensions []Ref `json:"extensions,omitempty"`

	BlockNumber uint64 `json:"blockNumber"`
}

// IsUnderstored is a pure function of (nodeTotal, power).
func (c StorageContract) IsUnderstored() bool { return c.NodeTotal < c.Power }

// ContractFile's identity is its content id (cid).
type ContractFile struct {
	Ref Ref `json:"uid"`
	CID string `json:"cid"`

	Size int64 `json:"size"`
	Name string `json:"name"`
	Extension string `json:"extension"`
	MimeType string `json:"mimeType,omitempty"`
	Flags int `json:"flags"`
	License string `json:"license,omitempty"`
	Labels string `json:"labels,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`

	Path string `json:"path"`

	Contract Ref `json:"contract"`
	ContractBlockNumber uint64 `json:"contractBlockNumber"`

	CIDValid bool `json:"cidValid"`
}

// Hidden reports whether bit 1 (hidden/thumbnail) is set.
func (f ContractFile) Hidden() bool { return f.Flags&FileFlagHidden != 0 }

// Encrypted reports whether bit 0 is set.
func (f ContractFile) Encrypted() bool { return f.Flags&FileFlagEncrypted != 0 }

// PathType distinguishes directory vs file Path entities.
type PathType int

const (
	PathDirectory PathType = iota
	PathFile
)

// Path identity is (Owner, FullPath).
type Path struct {
	Ref Ref `json:"uid"`

	Owner string `json:"owner"`
	FullPath string `json:"fullPath"`
	Type PathType `json:"type"`
	PathName string `json:"pathName"`

	ItemCount int `json:"itemCount"`

	Parent Ref `json:"parent,omitempty"`
	Children []Ref `json:"children,omitempty"`

	CurrentFile Ref `json:"currentFile,omitempty"`
	NewestBlockNumber uint64 `json:"newestBlockNumber"`
}

// IsRoot reports whether this Path is the owner's root "/" entry.
func (p Path) IsRoot() bool { return p.FullPath == "/" }

// Service / ServiceList entities.
type Service struct {
	Ref Ref `json:"uid"`
	Provider Ref `json:"provider"`
	Type string `json:"serviceType"`
	API string `json:"api"`
	Enabled bool `json:"enabled"`
	Memo string `json:"memo,omitempty"`
	IPFSID string `json:"ipfsId,omitempty"`
	Cost int64 `json:"cost"`
}

type ServiceList struct {
	Ref Ref `json:"uid"`
	Provider Ref `json:"provider"`
	Services []Ref `json:"services,omitempty"`
}

// Validator maps a two-character code to an Account.
type Validator struct {
	Ref Ref `json:"uid"`
	Code string `json:"code"`
	Account Ref `json:"account"`
	VotingPower int64 `json:"votingPower"`
}

// Token and quote enumerations for the DEX sub-model.
type Token string

const (
	TokenLARYNX Token = "LARYNX"
	TokenSPK Token = "SPK"
	TokenBROCA Token = "BROCA"
)

type Quote string

const (
	QuoteHBD Quote = "HBD"
	QuoteHIVE Quote = "HIVE"
)

// DexPrefix returns the wire path prefix used for a token.
func DexPrefix(t Token) string {
	switch t {
	case TokenSPK:
		return "dexs"
	case TokenBROCA:
		return "dexb"
	default:
		return "dex"
	}
}

type DexMarket struct {
	Ref Ref `json:"uid"`
	Token Token `json:"token"`
	Quote Quote `json:"quote"`

	BuyOrders []Ref `json:"buyOrders,omitempty"`
	SellOrders []Ref `json:"sellOrders,omitempty"`
	OHLC []Ref `json:"ohlc,omitempty"`

	Tick string `json:"tick,omitempty"`
}

// OrderStatus values for DexOrder.
type OrderStatus string

const (
	OrderOpen OrderStatus = "OPEN"
	OrderPartial OrderStatus = "PARTIAL"
	OrderFilled OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// DexOrder identity is market:rate:txid.
type DexOrder struct {
	Ref Ref `json:"uid"`
	ID string `json:"id"`

	Market Ref `json:"market"`
	Side string `json:"side"` // "BUY" or "SELL"

	Rate float64 `json:"rate"`
	Amount int64 `json:"amount"`
	Filled int64 `json:"filled"`
	Remaining int64 `json:"remaining"`
	TokenAmount int64 `json:"tokenAmount"`
	Status OrderStatus `json:"status"`

	From Ref `json:"from"`
	ExpireBlock uint64 `json:"expireBlock"`
}

// Recompute derives Status, Remaining, TokenAmount from Amount/Filled/Rate —
// call after every mutation to an order.
func (o *DexOrder) Recompute() {
	if o.Amount > 0 {
		remaining := o.Amount - o.Filled
		if remaining < 0 {
			remaining = 0
		}
		o.Remaining = remaining
		switch {
		case o.Filled >= o.Amount:
			o.Status = OrderFilled
		case o.Filled > 0:
			o.Status = OrderPartial
		default:
			if o.Status != OrderCancelled {
				o.Status = OrderOpen
			}
		}
	}
	if o.Rate > 0 {
		o.TokenAmount = int64(float64(o.Amount) / o.Rate)
	}
}

// OHLCData is keyed by (market, blockBucket).
type OHLCData struct {
	Ref Ref `json:"uid"`

	Market Ref `json:"market"`
	BlockBucket uint64 `json:"blockBucket"`

	Open float64 `json:"open"`
	High float64 `json:"high"`
	Low float64 `json:"low"`
	Close float64 `json:"close"`
	VolumeQuote float64 `json:"volumeQuote"`
	VolumeToken float64 `json:"volumeToken"`
}

// TxCategory classifies a parsed feed entry.
type TxCategory string

const (
	TxTokenTransfer TxCategory = "TOKEN_TRANSFER"
	TxDexOrder TxCategory = "DEX_ORDER"
	TxDexTrade TxCategory = "DEX_TRADE"
	TxNFT TxCategory = "NFT"
	TxPowerUp TxCategory = "POWER_UP"
	TxPowerDown TxCategory = "POWER_DOWN"
	TxStorageUpload TxCategory = "STORAGE_UPLOAD"
	TxStorageCancel TxCategory = "STORAGE_CANCEL"
	TxUnknown TxCategory = "UNKNOWN"
)

// Transaction is a parsed feed entry.
type Transaction struct {
	Ref Ref `json:"uid"`

	BlockNum uint64 `json:"blockNum"`
	TxID string `json:"txId"`
	Category TxCategory `json:"category"`

	Amount int64 `json:"amount,omitempty"`
	Token string `json:"token,omitempty"`
	From string `json:"from,omitempty"`
	To string `json:"to,omitempty"`
	Memo string `json:"memo,omitempty"`
	OrderType string `json:"orderType,omitempty"`
	NFTID string `json:"nftId,omitempty"`
	ContractID string `json:"contractId,omitempty"`

	// Raw preserves the unclassified payload verbatim (unknown
	// formats pass through with category UNKNOWN).
	Raw any `json:"raw,omitempty"`
}

// ForkStatus values.
type ForkStatus string

const (
	ForkActive ForkStatus = "ACTIVE"
	ForkOrphaned ForkStatus = "ORPHANED"
	ForkFinalized ForkStatus = "FINALIZED"
)

// Fork identity is forkId (a hash).
type Fork struct {
	ForkID string `json:"forkId"`
	TipBlock uint64 `json:"tipBlock"`
	TipHash string `json:"tipHash"`
	Status ForkStatus `json:"status"`
	ParentFork string `json:"parentFork,omitempty"`
}

// Checkpoint records a finalized position in the chain.
type Checkpoint struct {
	BlockNum uint64 `json:"blockNum"`
	BlockHash string `json:"blockHash"`
	ForkID string `json:"forkId"`
	StateHash string `json:"stateHash"`
	SnapshotHandle string `json:"snapshotHandle,omitempty"`
}
