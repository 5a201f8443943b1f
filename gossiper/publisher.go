package gossiper

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/morph-dev/portal-state-network-utils/portal"
	"github.com/morph-dev/portal-state-network-utils/storage"
)

// DefaultTimeout bounds a single gossip call.
const DefaultTimeout = 5 * time.Second

// Ack is the collaborator's answer to an accepted record.
type Ack struct {
	// Peers the record was offered to.
	Peers int
}

// Publisher hands one encoded record to the network or a store.
type Publisher interface {
	Publish(ctx context.Context, key portal.ContentKey, value []byte) (Ack, error)
}

// RPCPublisher gossips records through the JSON-RPC API of a Portal client.
type RPCPublisher struct {
	client  *rpc.Client
	timeout time.Duration
}

// DialRPCPublisher connects to the Portal client at url.
func DialRPCPublisher(ctx context.Context, url string, timeout time.Duration) (*RPCPublisher, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial portal client %s: %w", url, err)
	}
	return NewRPCPublisher(client, timeout), nil
}

func NewRPCPublisher(client *rpc.Client, timeout time.Duration) *RPCPublisher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RPCPublisher{client: client, timeout: timeout}
}

// Publish calls portal_historyGossip or portal_stateGossip, depending on
// the network of key, and returns the number of peers reported.
func (p *RPCPublisher) Publish(ctx context.Context, key portal.ContentKey, value []byte) (Ack, error) {
	method, err := gossipMethod(key.Network())
	if err != nil {
		return Ack{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var peers int
	if err := p.client.CallContext(ctx, &peers, method, hexutil.Encode(key.Encode()), hexutil.Encode(value)); err != nil {
		return Ack{}, err
	}
	return Ack{Peers: peers}, nil
}

func (p *RPCPublisher) Close() {
	p.client.Close()
}

func gossipMethod(network portal.Network) (string, error) {
	switch network {
	case portal.HistoryNetwork:
		return "portal_historyGossip", nil
	case portal.StateNetwork:
		return "portal_stateGossip", nil
	default:
		return "", fmt.Errorf("no gossip method for network %s", network)
	}
}

// StorePublisher writes records into a local content store.
type StorePublisher struct {
	store *storage.ContentStore
}

func NewStorePublisher(store *storage.ContentStore) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Publish(ctx context.Context, key portal.ContentKey, value []byte) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	if err := p.store.Put(key, value); err != nil {
		return Ack{}, err
	}
	return Ack{}, nil
}
