package models

import "time"

type CreateAssetRequest struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Value       int    `json:"value"`
	Description string `json:"description"`
}

type UpdateAssetRequest struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Value       int    `json:"value"`
	Description string `json:"description"`
}

type TransferRequest struct {
	ID       string `json:"id"`
	NewOwner string `json:"newOwner"`
}

// Invocation is the off-chain audit row written for every submitted
// transaction.
type Invocation struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	AssetID   string    `json:"asset_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
