package types

import "strings"

// RefKind distinguishes the three ways a mutation can point at another
// entity before and after the store resolves blank nodes.
type RefKind uint8

const (
	// RefLocal is an id minted by this process for an entity that has not
	// yet been committed — a "blank node" in the store's vocabulary.
	RefLocal RefKind = iota
	// RefStored is an id already resolved by the store on a prior commit.
	RefStored
	// RefName is a lookup key (e.g. a username) to be resolved by the
	// store at mutate time rather than by us.
	RefName
)

// Ref is a tagged union over the three reference forms the transformer
// can emit. Exactly one of LocalID, StoredID, Name is meaningful,
// selected by Kind. Keeping this as a single struct (rather than an
// interface) keeps mutation batches trivially JSON/RLP encodable.
type Ref struct {
	Kind RefKind `json:"kind"`
	LocalID string `json:"localId,omitempty"`
	StoredID string `json:"storedId,omitempty"`
	Name string `json:"name,omitempty"`
}

// LocalRef builds a blank-node reference. label is sanitized the same way
// account blank nodes are (see accountcache), so it is safe to pass a raw
// username or cid straight through.
func LocalRef(label string) Ref { return Ref{Kind: RefLocal, LocalID: SanitizeBlankLabel(label)} }

// StoredRef builds a reference to an already-resolved store id.
func StoredRef(id string) Ref { return Ref{Kind: RefStored, StoredID: id} }

// NameRef builds a reference the store resolves by unique name at mutate
// time. The transformer does not emit such references; accounts are
// resolved through accountcache instead.
func NameRef(name string) Ref { return Ref{Kind: RefName, Name: name} }

// IsZero reports whether r was never assigned.
func (r Ref) IsZero() bool {
	return r.Kind == RefLocal && r.LocalID == "" && r.StoredID == "" && r.Name == ""
}

// SanitizeBlankLabel replaces every non-alphanumeric rune with '_' so the
// result is safe to use as a blank-node label. It never touches the
// underlying field value the label was derived from — per // only the blank-node label is mangled, the username field itself is not.
func SanitizeBlankLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
