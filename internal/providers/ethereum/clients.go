package ethereum

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/block"
	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Clients holds one ledger client per configured chain
type Clients map[domain.Chain]EthereumClient

// NewClients indexes the given clients by their chain
func NewClients(clients ...EthereumClient) Clients {
	c := make(Clients, len(clients))
	for _, client := range clients {
		c[client.Chain()] = client
	}
	return c
}

// Get returns the client of a chain or domain.ErrUnsupportedChain
func (c Clients) Get(chain domain.Chain) (EthereumClient, error) {
	client, ok := c[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chain)
	}
	return client, nil
}

// Close closes every client
func (c Clients) Close() {
	for _, client := range c {
		client.Close()
	}
}

// DialClients connects one client per chain endpoint.
// Clients dialed before a failure are closed.
func DialClients(ctx context.Context, dialer adapter.EthClientDialer, clock adapter.Clock, endpoints map[domain.Chain]string) (Clients, error) {
	clients := make(Clients, len(endpoints))
	for chain, url := range endpoints {
		ethClient, err := dialer.Dial(ctx, url)
		if err != nil {
			clients.Close()
			return nil, fmt.Errorf("failed to dial %s: %w", chain, err)
		}
		blocks := block.NewBlockProvider(NewBlockFetcher(ethClient), block.DefaultConfig(), clock)
		clients[chain] = NewClient(chain, ethClient, blocks)
	}
	return clients, nil
}
