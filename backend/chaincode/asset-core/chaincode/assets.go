package chaincode

import "errors"

// Asset is the ledger record stored at its own id key in world state.
type Asset struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Value       int    `json:"value"`
	Description string `json:"description"`
	LastUpdated string `json:"lastUpdated"`
}

// HistoryEntry is one step of an asset's append-only audit trail.
// Timestamp is advisory display data; entries are ordered by append
// position, never by wall clock.
type HistoryEntry struct {
	TxID      string `json:"txId"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	AssetID   string `json:"assetId"`
	NewOwner  string `json:"newOwner"`
	OldOwner  string `json:"oldOwner,omitempty"`
	Value     int    `json:"value"`
}

// History entry kinds
const (
	TxCreate   = "CREATE"
	TxTransfer = "TRANSFER"
	TxUpdate   = "UPDATE"
	TxDelete   = "DELETE"
)

var (
	// ErrNotFound is returned when an operation targets an id with no record.
	ErrNotFound = errors.New("asset does not exist")
	// ErrAlreadyExists is returned when CreateAsset targets an occupied id.
	ErrAlreadyExists = errors.New("asset already exists")
	// ErrValidation is returned when a numeric argument fails to parse.
	ErrValidation = errors.New("invalid argument")
)
