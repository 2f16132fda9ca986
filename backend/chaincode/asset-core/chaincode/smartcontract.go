package chaincode

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract provides functions for managing assets and their audit trail
type SmartContract struct {
	contractapi.Contract
}

const (
	// historyObjectType namespaces the per-entry composite keys. One entry
	// per mutating transaction, keyed by asset id plus append sequence, so
	// appends touch disjoint keys instead of rewriting one growing blob.
	historyObjectType = "history"

	// historySeqPrefix derives the per-asset sequence counter key. Every
	// mutating operation already rewrites the asset record key, so bumping
	// the counter adds no new conflict surface. The prefix is a reserved id
	// namespace: CreateAsset rejects asset ids that carry it, or they would
	// collide with another asset's counter.
	historySeqPrefix = "HISTORY-"

	transferEventName = "TransferAsset"
)

// InitLedger seeds the ledger with a couple of sample assets
func (s *SmartContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	seeds := []struct {
		id, owner, value, description string
	}{
		{"asset1", "Org1Admin", "5000", "Laptop"},
		{"asset2", "Org2Admin", "3000", "Server"},
	}

	for _, seed := range seeds {
		if _, err := s.CreateAsset(ctx, seed.id, seed.owner, seed.value, seed.description); err != nil {
			return err
		}
	}
	return nil
}

// CreateAsset writes a new asset record and the CREATE entry of its audit
// trail. The value arrives as a decimal string at the invocation boundary.
func (s *SmartContract) CreateAsset(ctx contractapi.TransactionContextInterface, id string, owner string, value string, description string) (*Asset, error) {
	if strings.HasPrefix(id, historySeqPrefix) {
		return nil, fmt.Errorf("%w: id %q uses the reserved %s prefix", ErrValidation, id, historySeqPrefix)
	}

	exists, err := s.AssetExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: value %q is not numeric", ErrValidation, value)
	}

	asset := &Asset{
		ID:          id,
		Owner:       owner,
		Value:       val,
		Description: description,
		LastUpdated: now(),
	}
	if err := s.putAsset(ctx, asset); err != nil {
		return nil, err
	}

	if _, err := s.appendHistory(ctx, id, TxCreate, owner, "", val); err != nil {
		return nil, err
	}
	return asset, nil
}

// TransferAsset hands the asset to a new owner. Value and description are
// untouched; only owner and lastUpdated change.
func (s *SmartContract) TransferAsset(ctx contractapi.TransactionContextInterface, id string, newOwner string) (*Asset, error) {
	asset, err := s.readAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	oldOwner := asset.Owner
	asset.Owner = newOwner
	asset.LastUpdated = now()
	if err := s.putAsset(ctx, asset); err != nil {
		return nil, err
	}

	entry, err := s.appendHistory(ctx, id, TxTransfer, newOwner, oldOwner, asset.Value)
	if err != nil {
		return nil, err
	}

	entryJSON, _ := json.Marshal(entry)
	ctx.GetStub().SetEvent(transferEventName, entryJSON)

	return asset, nil
}

// UpdateAsset replaces the mutable fields of an existing asset.
func (s *SmartContract) UpdateAsset(ctx contractapi.TransactionContextInterface, id string, owner string, value string, description string) (*Asset, error) {
	asset, err := s.readAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: value %q is not numeric", ErrValidation, value)
	}

	oldOwner := asset.Owner
	asset.Owner = owner
	asset.Value = val
	asset.Description = description
	asset.LastUpdated = now()
	if err := s.putAsset(ctx, asset); err != nil {
		return nil, err
	}

	if _, err := s.appendHistory(ctx, id, TxUpdate, owner, oldOwner, val); err != nil {
		return nil, err
	}
	return asset, nil
}

// DeleteAsset removes the asset record. The audit trail and its sequence
// counter stay in world state: deletion is itself recorded as a DELETE
// entry, and the history survives a later re-create of the same id.
func (s *SmartContract) DeleteAsset(ctx contractapi.TransactionContextInterface, id string) error {
	asset, err := s.readAsset(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.appendHistory(ctx, id, TxDelete, "", asset.Owner, asset.Value); err != nil {
		return err
	}

	if err := ctx.GetStub().DelState(id); err != nil {
		return fmt.Errorf("failed to delete asset %s: %v", id, err)
	}
	return nil
}

// QueryAsset returns the current record for id. Pure read.
func (s *SmartContract) QueryAsset(ctx contractapi.TransactionContextInterface, id string) (*Asset, error) {
	return s.readAsset(ctx, id)
}

// GetAssetHistory returns the asset's audit trail in append order.
// Existence is checked against the asset key, not the history keys; an
// existing asset with no recorded entries yields an empty sequence.
func (s *SmartContract) GetAssetHistory(ctx contractapi.TransactionContextInterface, id string) ([]HistoryEntry, error) {
	exists, err := s.AssetExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	iter, err := ctx.GetStub().GetStateByPartialCompositeKey(historyObjectType, []string{id})
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %v", id, err)
	}
	defer iter.Close()

	entries := []HistoryEntry{}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read history for %s: %v", id, err)
		}
		var entry HistoryEntry
		if err := json.Unmarshal(kv.Value, &entry); err != nil {
			return nil, fmt.Errorf("corrupt history entry for %s: %v", id, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetAllAssets returns every asset record in world state
func (s *SmartContract) GetAllAssets(ctx contractapi.TransactionContextInterface) ([]*Asset, error) {
	iter, err := ctx.GetStub().GetStateByRange("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	defer iter.Close()

	assets := []*Asset{}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read from world state: %v", err)
		}
		// Composite keys live in a zero-byte namespace; sequence counters
		// carry the history prefix. Neither holds an asset record.
		if strings.HasPrefix(kv.Key, "\x00") || strings.HasPrefix(kv.Key, historySeqPrefix) {
			continue
		}
		var asset Asset
		if err := json.Unmarshal(kv.Value, &asset); err != nil {
			return nil, fmt.Errorf("corrupt asset record at %s: %v", kv.Key, err)
		}
		assets = append(assets, &asset)
	}
	return assets, nil
}

// AssetExists returns true when a record with the given id is in world
// state. Absence and an explicitly empty value read the same.
func (s *SmartContract) AssetExists(ctx contractapi.TransactionContextInterface, id string) (bool, error) {
	data, err := ctx.GetStub().GetState(id)
	if err != nil {
		return false, fmt.Errorf("failed to read from world state: %v", err)
	}
	return len(data) > 0, nil
}

func (s *SmartContract) readAsset(ctx contractapi.TransactionContextInterface, id string) (*Asset, error) {
	data, err := ctx.GetStub().GetState(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var asset Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, fmt.Errorf("corrupt asset record at %s: %v", id, err)
	}
	return &asset, nil
}

func (s *SmartContract) putAsset(ctx contractapi.TransactionContextInterface, asset *Asset) error {
	assetJSON, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(asset.ID, assetJSON); err != nil {
		return fmt.Errorf("failed to write asset %s: %v", asset.ID, err)
	}
	return nil
}

// appendHistory writes the next audit entry for an asset under its own
// composite key and bumps the per-asset sequence counter.
func (s *SmartContract) appendHistory(ctx contractapi.TransactionContextInterface, assetID string, kind string, newOwner string, oldOwner string, value int) (*HistoryEntry, error) {
	stub := ctx.GetStub()

	seqKey := historySeqPrefix + assetID
	raw, err := stub.GetState(seqKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read history sequence for %s: %v", assetID, err)
	}
	seq := 0
	if len(raw) > 0 {
		if seq, err = strconv.Atoi(string(raw)); err != nil {
			return nil, fmt.Errorf("corrupt history sequence for %s: %v", assetID, err)
		}
	}

	key, err := stub.CreateCompositeKey(historyObjectType, []string{assetID, fmt.Sprintf("%010d", seq)})
	if err != nil {
		return nil, err
	}

	entry := &HistoryEntry{
		TxID:      stub.GetTxID(),
		Timestamp: now(),
		Type:      kind,
		AssetID:   assetID,
		NewOwner:  newOwner,
		OldOwner:  oldOwner,
		Value:     value,
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	if err := stub.PutState(key, entryJSON); err != nil {
		return nil, fmt.Errorf("failed to append history for %s: %v", assetID, err)
	}
	if err := stub.PutState(seqKey, []byte(strconv.Itoa(seq+1))); err != nil {
		return nil, fmt.Errorf("failed to advance history sequence for %s: %v", assetID, err)
	}
	return entry, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
