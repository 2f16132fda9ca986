// Package fabricclient wraps the Fabric SDK gateway behind the two calls
// the services actually make: submit and evaluate.
package fabricclient

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

// Config carries everything needed to reach one contract on one channel.
type Config struct {
	ProfilePath string // connection profile (yaml or json)
	Channel     string
	Contract    string
	MSPID       string
	CertPath    string
	KeyPath     string
	Identity    string // wallet label, defaults to "appUser"
	WalletDir   string // defaults to "wallet"
}

type Client struct {
	gw       *gateway.Gateway
	network  *gateway.Network
	contract *gateway.Contract
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Identity == "" {
		cfg.Identity = "appUser"
	}
	if cfg.WalletDir == "" {
		cfg.WalletDir = "wallet"
	}

	wallet, err := gateway.NewFileSystemWallet(cfg.WalletDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %v", err)
	}

	if !wallet.Exists(cfg.Identity) {
		if err := enrollIdentity(wallet, cfg); err != nil {
			return nil, fmt.Errorf("failed to populate wallet: %v", err)
		}
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(filepath.Clean(cfg.ProfilePath))),
		gateway.WithIdentity(wallet, cfg.Identity),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gateway: %v", err)
	}

	network, err := gw.GetNetwork(cfg.Channel)
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("failed to get network %s: %v", cfg.Channel, err)
	}

	return &Client{
		gw:       gw,
		network:  network,
		contract: network.GetContract(cfg.Contract),
	}, nil
}

// SubmitTransaction sends an invocation through ordering and waits for commit.
func (c *Client) SubmitTransaction(name string, args ...string) ([]byte, error) {
	return c.contract.SubmitTransaction(name, args...)
}

// EvaluateTransaction runs a read-only invocation against a single peer.
func (c *Client) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	return c.contract.EvaluateTransaction(name, args...)
}

// ChaincodeEvents subscribes to named chaincode events. The returned stop
// function deregisters the listener and must be called when done.
func (c *Client) ChaincodeEvents(eventName string) (<-chan *fab.CCEvent, func(), error) {
	reg, notifier, err := c.contract.RegisterEvent(eventName)
	if err != nil {
		return nil, nil, err
	}
	stop := func() { c.contract.Unregister(reg) }
	return notifier, stop, nil
}

func (c *Client) Close() {
	c.gw.Close()
}

func enrollIdentity(wallet *gateway.Wallet, cfg Config) error {
	cert, err := os.ReadFile(filepath.Clean(cfg.CertPath))
	if err != nil {
		return err
	}

	key, err := os.ReadFile(filepath.Clean(cfg.KeyPath))
	if err != nil {
		return err
	}

	identity := gateway.NewX509Identity(cfg.MSPID, string(cert), string(key))

	return wallet.Put(cfg.Identity, identity)
}
