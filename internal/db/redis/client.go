// Package redis implements db.Store over rueidis. One Store serves both
// Redis Stack (RediSearch) and valkey-search; Flavor switches the few
// commands they disagree on.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docassist/internal/db"
)

var _ db.Store = (*Store)(nil)

// Flavor selects server-specific behaviour of the FT.* module.
type Flavor string

const (
	// FlavorRedis targets Redis 8+ with RediSearch: TEXT fields, BM25 and bare filter queries.
	FlavorRedis Flavor = "redis"
	// FlavorValkey targets valkey-search, which only answers vector queries.
	FlavorValkey Flavor = "valkey"
)

// ParseFlavor maps a database.driver value to a Flavor. Empty means redis.
func ParseFlavor(s string) (Flavor, error) {
	switch f := Flavor(strings.ToLower(s)); f {
	case "":
		return FlavorRedis, nil
	case FlavorRedis, FlavorValkey:
		return f, nil
	default:
		return "", fmt.Errorf("unknown flavor %q", s)
	}
}

// Config holds connection parameters.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	DB         int
	Flavor     Flavor
	ClientName string
}

// Store is a db.Store backed by a rueidis client.
type Store struct {
	client rueidis.Client
	flavor Flavor
}

// NewStore dials the server. Client-side caching is off and replies are
// forced to RESP2, the shape the FT.SEARCH parser reads.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}
	flavor, err := ParseFlavor(string(cfg.Flavor))
	if err != nil {
		return nil, err
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   cfg.ClientName,
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client, flavor: flavor}, nil
}

// Flavor reports the server flavor the store was opened with.
func (s *Store) Flavor() Flavor { return s.flavor }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

const (
	readyMinDelay = 50 * time.Millisecond
	readyMaxDelay = time.Second
)

// WaitForReady pings until the server answers or timeout expires. The
// delay between attempts doubles up to one second.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := readyMinDelay
	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, lastErr)
		case <-time.After(delay):
		}
		delay = min(delay*2, readyMaxDelay)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

// run executes a command whose reply is only checked for errors.
func (s *Store) run(ctx context.Context, op, key string, cmd rueidis.Completed) error {
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: op, Key: key, Err: err}
	}
	return nil
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server reply whose message contains
// substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
