package chaincode

import (
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContract(t *testing.T) (*SmartContract, *contractapi.TransactionContext, *shimtest.MockStub) {
	t.Helper()
	stub := shimtest.NewMockStub("asset-core", nil)
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(stub)
	return &SmartContract{}, ctx, stub
}

// inTx runs one contract call inside its own mock transaction, the way the
// platform dispatches one operation per transaction context.
func inTx[T any](stub *shimtest.MockStub, txID string, fn func() (T, error)) (T, error) {
	stub.MockTransactionStart(txID)
	defer stub.MockTransactionEnd(txID)
	return fn()
}

func createAsset(contract *SmartContract, ctx *contractapi.TransactionContext, stub *shimtest.MockStub, txID, id, owner, value, description string) (*Asset, error) {
	return inTx(stub, txID, func() (*Asset, error) {
		return contract.CreateAsset(ctx, id, owner, value, description)
	})
}

func transferAsset(contract *SmartContract, ctx *contractapi.TransactionContext, stub *shimtest.MockStub, txID, id, newOwner string) (*Asset, error) {
	return inTx(stub, txID, func() (*Asset, error) {
		return contract.TransferAsset(ctx, id, newOwner)
	})
}

func TestCreateAndQueryAsset(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	created, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "asset1", created.ID)
	assert.Equal(t, "Org1Admin", created.Owner)
	assert.Equal(t, 5000, created.Value)
	assert.Equal(t, "Laptop", created.Description)
	assert.NotEmpty(t, created.LastUpdated)

	queried, err := contract.QueryAsset(ctx, "asset1")
	require.NoError(t, err)
	assert.Equal(t, created, queried)
}

func TestCreateAssetRejectsDuplicate(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)

	// Re-creation is a one-time transition, not an upsert, even with
	// identical arguments.
	_, err = createAsset(contract, ctx, stub, "tx2", "asset1", "Org1Admin", "5000", "Laptop")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = createAsset(contract, ctx, stub, "tx3", "asset1", "Org2Admin", "9999", "Desktop")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// The original record is untouched.
	asset, err := contract.QueryAsset(ctx, "asset1")
	require.NoError(t, err)
	assert.Equal(t, "Org1Admin", asset.Owner)
	assert.Equal(t, 5000, asset.Value)

	history, err := contract.GetAssetHistory(ctx, "asset1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCreateAssetRejectsNonNumericValue(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "lots", "Laptop")
	assert.ErrorIs(t, err, ErrValidation)

	exists, err := contract.AssetExists(ctx, "asset1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateAssetRejectsReservedIDPrefix(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	// "HISTORY-foo" is the sequence counter key of asset "foo"; an asset
	// record there would corrupt foo's audit trail.
	_, err := createAsset(contract, ctx, stub, "tx1", "HISTORY-foo", "Org1Admin", "5000", "Laptop")
	assert.ErrorIs(t, err, ErrValidation)

	// The rejected id never reaches world state, so foo's trail still works.
	_, err = createAsset(contract, ctx, stub, "tx2", "foo", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)
	_, err = transferAsset(contract, ctx, stub, "tx3", "foo", "Org2Admin")
	require.NoError(t, err)

	history, err := contract.GetAssetHistory(ctx, "foo")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestTransferAssetUpdatesOwnerOnly(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	created, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)

	updated, err := transferAsset(contract, ctx, stub, "tx2", "asset1", "Org2Admin")
	require.NoError(t, err)
	assert.Equal(t, "Org2Admin", updated.Owner)
	assert.Equal(t, created.Value, updated.Value)
	assert.Equal(t, created.Description, updated.Description)

	queried, err := contract.QueryAsset(ctx, "asset1")
	require.NoError(t, err)
	assert.Equal(t, updated, queried)
}

func TestNotFoundPropagation(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := contract.QueryAsset(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = transferAsset(contract, ctx, stub, "tx1", "ghost", "Org2Admin")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = contract.GetAssetHistory(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = inTx(stub, "tx2", func() (*Asset, error) {
		return contract.UpdateAsset(ctx, "ghost", "Org2Admin", "1", "x")
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = inTx(stub, "tx3", func() (any, error) {
		return nil, contract.DeleteAsset(ctx, "ghost")
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryOrderedAppendOnly(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)
	_, err = transferAsset(contract, ctx, stub, "tx2", "asset1", "Org2Admin")
	require.NoError(t, err)
	_, err = transferAsset(contract, ctx, stub, "tx3", "asset1", "Org3Admin")
	require.NoError(t, err)

	history, err := contract.GetAssetHistory(ctx, "asset1")
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, TxCreate, history[0].Type)
	assert.Equal(t, "tx1", history[0].TxID)
	assert.Empty(t, history[0].OldOwner)
	assert.Equal(t, "Org1Admin", history[0].NewOwner)

	assert.Equal(t, TxTransfer, history[1].Type)
	assert.Equal(t, "tx2", history[1].TxID)
	assert.Equal(t, "Org1Admin", history[1].OldOwner)
	assert.Equal(t, "Org2Admin", history[1].NewOwner)

	assert.Equal(t, TxTransfer, history[2].Type)
	assert.Equal(t, "tx3", history[2].TxID)
	assert.Equal(t, "Org2Admin", history[2].OldOwner)
	assert.Equal(t, "Org3Admin", history[2].NewOwner)

	for _, entry := range history {
		assert.Equal(t, "asset1", entry.AssetID)
		assert.Equal(t, 5000, entry.Value)
		assert.NotEmpty(t, entry.Timestamp)
	}
}

func TestHistoryEmptyWhenNoEntriesRecorded(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	// A record written outside the contract's operations has no trail.
	stub.MockTransactionStart("setup")
	err := stub.PutState("orphan", []byte(`{"id":"orphan","owner":"Org1Admin","value":1,"description":"x"}`))
	stub.MockTransactionEnd("setup")
	require.NoError(t, err)

	history, err := contract.GetAssetHistory(ctx, "orphan")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestEmptyValueReadsAsAbsent(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	stub.MockTransactionStart("setup")
	stub.PutState("cleared", []byte{})
	stub.MockTransactionEnd("setup")

	exists, err := contract.AssetExists(ctx, "cleared")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = contract.QueryAsset(ctx, "cleared")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAssetReplacesMutableFields(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)

	updated, err := inTx(stub, "tx2", func() (*Asset, error) {
		return contract.UpdateAsset(ctx, "asset1", "Org2Admin", "7500", "Refurbished laptop")
	})
	require.NoError(t, err)
	assert.Equal(t, "Org2Admin", updated.Owner)
	assert.Equal(t, 7500, updated.Value)
	assert.Equal(t, "Refurbished laptop", updated.Description)

	_, err = inTx(stub, "tx3", func() (*Asset, error) {
		return contract.UpdateAsset(ctx, "asset1", "Org2Admin", "cheap", "Refurbished laptop")
	})
	assert.ErrorIs(t, err, ErrValidation)

	history, err := contract.GetAssetHistory(ctx, "asset1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, TxUpdate, history[1].Type)
	assert.Equal(t, "Org1Admin", history[1].OldOwner)
	assert.Equal(t, "Org2Admin", history[1].NewOwner)
	assert.Equal(t, 7500, history[1].Value)
}

func TestDeleteAssetPreservesAuditTrail(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)

	_, err = inTx(stub, "tx2", func() (any, error) {
		return nil, contract.DeleteAsset(ctx, "asset1")
	})
	require.NoError(t, err)

	_, err = contract.QueryAsset(ctx, "asset1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = contract.GetAssetHistory(ctx, "asset1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Re-creating the id picks the trail back up: CREATE, DELETE, CREATE.
	_, err = createAsset(contract, ctx, stub, "tx3", "asset1", "Org2Admin", "100", "Salvage")
	require.NoError(t, err)

	history, err := contract.GetAssetHistory(ctx, "asset1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, TxCreate, history[0].Type)
	assert.Equal(t, TxDelete, history[1].Type)
	assert.Equal(t, "Org1Admin", history[1].OldOwner)
	assert.Empty(t, history[1].NewOwner)
	assert.Equal(t, TxCreate, history[2].Type)
	assert.Equal(t, "Org2Admin", history[2].NewOwner)
}

func TestGetAllAssetsSkipsBookkeepingKeys(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := inTx(stub, "tx1", func() (any, error) {
		return nil, contract.InitLedger(ctx)
	})
	require.NoError(t, err)

	assets, err := contract.GetAllAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	byID := map[string]*Asset{}
	for _, a := range assets {
		byID[a.ID] = a
	}
	require.Contains(t, byID, "asset1")
	require.Contains(t, byID, "asset2")
	assert.Equal(t, "Org1Admin", byID["asset1"].Owner)
	assert.Equal(t, 5000, byID["asset1"].Value)
	assert.Equal(t, "Org2Admin", byID["asset2"].Owner)
	assert.Equal(t, 3000, byID["asset2"].Value)
}

func TestTransferEventEmitted(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := createAsset(contract, ctx, stub, "tx1", "asset1", "Org1Admin", "5000", "Laptop")
	require.NoError(t, err)
	_, err = transferAsset(contract, ctx, stub, "tx2", "asset1", "Org2Admin")
	require.NoError(t, err)

	require.NotNil(t, stub.ChaincodeEventsChannel)
	event := <-stub.ChaincodeEventsChannel
	assert.Equal(t, transferEventName, event.EventName)
	assert.Contains(t, string(event.Payload), `"newOwner":"Org2Admin"`)
}

func TestManyTransfersKeepSequence(t *testing.T) {
	contract, ctx, stub := newTestContract(t)

	_, err := createAsset(contract, ctx, stub, "tx0", "asset1", "owner0", "42", "token")
	require.NoError(t, err)

	for i := 1; i <= 25; i++ {
		_, err := transferAsset(contract, ctx, stub, fmt.Sprintf("tx%d", i), "asset1", fmt.Sprintf("owner%d", i))
		require.NoError(t, err)
	}

	history, err := contract.GetAssetHistory(ctx, "asset1")
	require.NoError(t, err)
	require.Len(t, history, 26)
	for i := 1; i <= 25; i++ {
		assert.Equal(t, fmt.Sprintf("owner%d", i-1), history[i].OldOwner)
		assert.Equal(t, fmt.Sprintf("owner%d", i), history[i].NewOwner)
	}
}
