package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Feed reads a price feed contract.
type Feed interface {
	Read(ctx context.Context, feed common.Address) (*uint256.Int, error)
	ReadWithAge(ctx context.Context, feed common.Address) (*uint256.Int, *uint256.Int, error)
}

// Guard fetches reference prices by name. Every call reads the feed; nothing is cached.
type Guard struct {
	registry *Registry
	feed     Feed
	logger   *zap.Logger
}

func NewGuard(registry *Registry, feed Feed, logger *zap.Logger) (*Guard, error) {
	if feed == nil {
		return nil, fmt.Errorf("price feed is nil")
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{registry: registry, feed: feed, logger: logger}, nil
}

// FetchPrice returns the current price of the named feed.
func (g *Guard) FetchPrice(ctx context.Context, name string) (*uint256.Int, error) {
	addr, err := g.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	price, err := g.feed.Read(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("read oracle %s: %w", name, err)
	}
	g.logger.Debug("oracle price", zap.String("oracle", name), zap.Stringer("price", price))
	return price, nil
}

// FetchPriceWithAge returns the current price of the named feed and the time it was last
// updated, as reported by the feed. Staleness is left to the caller.
func (g *Guard) FetchPriceWithAge(ctx context.Context, name string) (*uint256.Int, *uint256.Int, error) {
	addr, err := g.registry.Resolve(name)
	if err != nil {
		return nil, nil, err
	}
	price, age, err := g.feed.ReadWithAge(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("read oracle %s with age: %w", name, err)
	}
	g.logger.Debug("oracle price", zap.String("oracle", name), zap.Stringer("price", price), zap.Stringer("age", age))
	return price, age, nil
}

// StaticFeed serves fixed prices per feed address.
type StaticFeed struct {
	Prices map[common.Address]*uint256.Int
	Ages   map[common.Address]*uint256.Int
}

func (f *StaticFeed) Read(_ context.Context, feed common.Address) (*uint256.Int, error) {
	price, ok := f.Prices[feed]
	if !ok {
		return nil, fmt.Errorf("no price for feed %s", feed.Hex())
	}
	return new(uint256.Int).Set(price), nil
}

func (f *StaticFeed) ReadWithAge(ctx context.Context, feed common.Address) (*uint256.Int, *uint256.Int, error) {
	price, err := f.Read(ctx, feed)
	if err != nil {
		return nil, nil, err
	}
	age := new(uint256.Int)
	if a, ok := f.Ages[feed]; ok {
		age.Set(a)
	}
	return price, age, nil
}
