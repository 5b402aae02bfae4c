package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/cudatel/core/sessionstore"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "cudatel:session:"

var _ sessionstore.Store = (*Store)(nil)

// Client is the subset of go-redis used by Store. *redis.Client satisfies it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store keeps each record as a JSON string under prefix+username.
// Single-key GET/SET/DEL give per-user atomicity.
type Store struct {
	client Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix changes the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires records after d. Zero keeps them until logout.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.ttl = d
		}
	}
}

// New returns a store on client.
func New(client Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Load(ctx context.Context, username string) (sessionstore.Record, error) {
	if username == "" {
		return sessionstore.Record{}, sessionstore.ErrInvalidUsername
	}

	data, err := s.client.Get(ctx, s.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sessionstore.Record{}, sessionstore.ErrNotFound
	}
	if err != nil {
		return sessionstore.Record{}, err
	}
	return sessionstore.Decode(data)
}

func (s *Store) Save(ctx context.Context, username string, rec sessionstore.Record) error {
	if username == "" {
		return sessionstore.ErrInvalidUsername
	}

	data, err := sessionstore.Encode(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(username), data, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, username string) error {
	if username == "" {
		return sessionstore.ErrInvalidUsername
	}
	return s.client.Del(ctx, s.key(username)).Err()
}

func (s *Store) key(username string) string {
	return s.prefix + username
}
