package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	ErrEmptyConnectionURL     = errors.New("empty mongodb connection URL")
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongodb")
	ErrHealthcheckFailed      = errors.New("mongodb healthcheck failed")
)

// Config holds MongoDB client settings. Defaults suit MongoDB Atlas.
type Config struct {
	ConnectionURL   string        `env:"MONGODB_URL,required"`
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryWrites     bool          `env:"MONGODB_RETRY_WRITES" envDefault:"true"`
	RetryReads      bool          `env:"MONGODB_RETRY_READS" envDefault:"true"`
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

// New connects and pings the primary, retrying with exponential backoff
// to ride out cold starts.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetRetryWrites(cfg.RetryWrites).
		SetRetryReads(cfg.RetryReads)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}

	var client *mongo.Client
	attempts := max(cfg.RetryAttempts, 1)
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(max(cfg.RetryInterval, time.Millisecond)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := mongo.Connect(opts)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.WithoutCancel(ctx))
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToConnectToMongo, err)
	}

	return client, nil
}

// NewWithDatabase connects and returns the named database.
func NewWithDatabase(ctx context.Context, cfg Config, database string) (*mongo.Database, error) {
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(database), nil
}

// Healthcheck returns a function that pings the primary.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
