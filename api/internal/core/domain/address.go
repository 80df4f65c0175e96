package domain

import "context"

// Table names a relation holding encrypted address columns.
type Table string

const (
	TableProfiles Table = "profiles"
	TableBooks    Table = "books"
	TableOrders   Table = "orders"
)

// Valid reports whether t is one of the known address tables.
func (t Table) Valid() bool {
	switch t {
	case TableProfiles, TableBooks, TableOrders:
		return true
	}
	return false
}

// AddressType is the caller-facing kind of address. Only pickup and shipping
// map to real columns; delivery is reserved.
type AddressType string

const (
	AddressPickup   AddressType = "pickup"
	AddressShipping AddressType = "shipping"
	AddressDelivery AddressType = "delivery"
)

// Column is an encrypted-bundle column name.
type Column string

const (
	ColumnPickup   Column = "pickup_address_encrypted"
	ColumnShipping Column = "shipping_address_encrypted"
	ColumnDelivery Column = "delivery_address_encrypted"
)

// VersionColumn records the default key version of a row.
const VersionColumn = "address_encryption_version"

// DefaultKeyVersion applies when neither bundle nor record carries a version.
const DefaultKeyVersion = 1

// ResolveColumn maps an address type onto the column it is stored in.
func ResolveColumn(table Table, addressType AddressType) Column {
	switch table {
	case TableBooks:
		return ColumnPickup
	case TableOrders:
		return ColumnShipping
	}
	if addressType == AddressShipping {
		return ColumnShipping
	}
	return ColumnPickup
}

// EncryptedBundle is the at-rest form of one encrypted address.
// Binary fields are standard base64.
type EncryptedBundle struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	AAD        string `json:"aad,omitempty"`
	Version    int    `json:"version"`
}

// EffectiveVersion returns the bundle version, falling back to recordVersion
// and then to DefaultKeyVersion.
func (b EncryptedBundle) EffectiveVersion(recordVersion int) int {
	if b.Version > 0 {
		return b.Version
	}
	if recordVersion > 0 {
		return recordVersion
	}
	return DefaultKeyVersion
}

// AddressObject is a decrypted address. Field names are whatever the writer used.
type AddressObject map[string]any

// AddressTarget identifies one encrypted column of one row.
type AddressTarget struct {
	Table       Table
	TargetID    string
	AddressType AddressType
	Column      Column
}

// NewAddressTarget resolves the column for the given triple.
func NewAddressTarget(table Table, targetID string, addressType AddressType) AddressTarget {
	return AddressTarget{
		Table:       table,
		TargetID:    targetID,
		AddressType: addressType,
		Column:      ResolveColumn(table, addressType),
	}
}

// Binding is the associated data that ties a bundle to its row and column.
func (t AddressTarget) Binding() []byte {
	return []byte(string(t.Table) + ":" + t.TargetID + ":" + string(t.Column))
}

// RequestShape records which wire format a decrypt request arrived in.
type RequestShape string

const (
	ShapeDirect RequestShape = "direct"
	ShapeNested RequestShape = "nested"
	ShapeFlat   RequestShape = "flat"
	ShapeFetch  RequestShape = "fetch"
	ShapeLegacy RequestShape = "legacy"
)

// DecryptRequest is a normalized decrypt request: either InlineRequest or
// LookupRequest.
type DecryptRequest interface {
	RequestShape() RequestShape
	decryptRequest()
}

// InlineRequest carries the bundle in the request body.
type InlineRequest struct {
	Bundle EncryptedBundle
	Shape  RequestShape
}

func (r InlineRequest) RequestShape() RequestShape { return r.Shape }
func (InlineRequest) decryptRequest()              {}

// LookupRequest names a stored bundle to fetch.
type LookupRequest struct {
	Target AddressTarget
	Shape  RequestShape
}

func (r LookupRequest) RequestShape() RequestShape { return r.Shape }
func (LookupRequest) decryptRequest()              {}

// StoredAddress is what the store holds for one target.
type StoredAddress struct {
	// Bundle is the raw column value: JSON text or a decoded JSON object.
	Bundle        any
	RecordVersion int
}

// AddressRepository reads and overwrites encrypted address columns.
type AddressRepository interface {
	// FetchBundle returns ErrNotFound when the row is missing or the column is null.
	FetchBundle(ctx context.Context, target AddressTarget) (*StoredAddress, error)
	// SaveBundle overwrites the target column and the row's key version.
	SaveBundle(ctx context.Context, target AddressTarget, bundle string, version int) error
}

// ListingRepository answers the seller-inventory predicate.
type ListingRepository interface {
	HasAvailableListing(ctx context.Context, sellerID string) (bool, error)
}
