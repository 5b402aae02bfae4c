package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrymomot/cudatel/core/sessionstore"
)

var _ sessionstore.Store = (*Store)(nil)

// S3Client is the part of the S3 API used by Store.
type S3Client interface {
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3aws.HeadBucketInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadBucketOutput, error)
}

// Config describes the bucket holding session objects.
type Config struct {
	Bucket         string `env:"S3_BUCKET"`
	Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	// Endpoint is set for S3-compatible services (MinIO, Wasabi, Spaces).
	Endpoint       string `env:"S3_ENDPOINT"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"`
	KeyPrefix      string `env:"S3_KEY_PREFIX" envDefault:"cudatel/sessions/"`
}

// Store keeps each record as a JSON object at <prefix><escaped username>.json.
// S3 gives last-writer-wins per key, which is enough for one record per user.
type Store struct {
	client S3Client
	bucket string
	prefix string
}

// Option configures New.
type Option func(*options)

type options struct {
	httpClient    *http.Client
	client        S3Client
	configOptions []func(*config.LoadOptions) error
	clientOptions []func(*s3aws.Options)
}

// WithS3Client uses a pre-configured client. Mostly for tests.
func WithS3Client(client S3Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithHTTPClient sets the HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithConfigOption adds an AWS config load option.
func WithConfigOption(option func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.configOptions = append(o.configOptions, option)
	}
}

// WithClientOption adds an S3 client option.
func WithClientOption(option func(*s3aws.Options)) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, option)
	}
}

// New builds a store. Static credentials are used when both keys are set,
// otherwise the default AWS chain applies.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		if o.httpClient != nil {
			loadOpts = append(loadOpts, config.WithHTTPClient(o.httpClient))
		}
		loadOpts = append(loadOpts, o.configOptions...)

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}

		client = s3aws.NewFromConfig(awsCfg, func(so *s3aws.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
			for _, opt := range o.clientOptions {
				opt(so)
			}
		})
	}

	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.KeyPrefix}, nil
}

// Key returns the object key for username.
func (s *Store) Key(username string) string {
	return s.prefix + url.PathEscape(username) + ".json"
}

func (s *Store) Load(ctx context.Context, username string) (sessionstore.Record, error) {
	if username == "" {
		return sessionstore.Record{}, sessionstore.ErrInvalidUsername
	}

	out, err := s.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(username)),
	})
	if err != nil {
		return sessionstore.Record{}, classifyS3Error(err, "get session")
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return sessionstore.Record{}, fmt.Errorf("read session body: %w", err)
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
	_, err = s.client.PutObject(ctx, &s3aws.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.Key(username)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	return classifyS3Error(err, "put session")
}

// Delete is idempotent; S3 does not report missing keys on delete.
func (s *Store) Delete(ctx context.Context, username string) error {
	if username == "" {
		return sessionstore.ErrInvalidUsername
	}

	_, err := s.client.DeleteObject(ctx, &s3aws.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(username)),
	})
	err = classifyS3Error(err, "delete session")
	if errors.Is(err, sessionstore.ErrNotFound) {
		return nil
	}
	return err
}

// Healthcheck verifies the bucket exists and is reachable.
func (s *Store) Healthcheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3aws.HeadBucketInput{Bucket: aws.String(s.bucket)})
	err = classifyS3Error(err, "head bucket")
	if errors.Is(err, sessionstore.ErrNotFound) {
		return ErrBucketNotFound
	}
	return err
}
