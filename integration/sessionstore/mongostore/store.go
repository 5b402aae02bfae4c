package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/cudatel/core/sessionstore"
)

// DefaultCollection holds session documents.
const DefaultCollection = "cudatel_sessions"

var _ sessionstore.Store = (*Store)(nil)

// Collection is the part of *mongo.Collection used by Store.
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...options.Lister[options.ReplaceOptions]) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
}

// document is the stored shape. Record holds the encoded record so server
// fields round-trip without BSON type drift.
type document struct {
	Username      string    `bson:"_id"`
	LastSessionID string    `bson:"last_sessionid"`
	Record        string    `bson:"record"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// Store keeps one document per username.
type Store struct {
	coll Collection
}

// New returns a store on coll.
func New(coll Collection) *Store {
	return &Store{coll: coll}
}

// NewFromDatabase returns a store on the default collection of db.
func NewFromDatabase(db *mongo.Database) *Store {
	return New(db.Collection(DefaultCollection))
}

func (s *Store) Load(ctx context.Context, username string) (sessionstore.Record, error) {
	if username == "" {
		return sessionstore.Record{}, sessionstore.ErrInvalidUsername
	}

	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: username}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sessionstore.Record{}, sessionstore.ErrNotFound
	}
	if err != nil {
		return sessionstore.Record{}, err
	}
	return sessionstore.Decode([]byte(doc.Record))
}

func (s *Store) Save(ctx context.Context, username string, rec sessionstore.Record) error {
	if username == "" {
		return sessionstore.ErrInvalidUsername
	}

	data, err := sessionstore.Encode(rec)
	if err != nil {
		return err
	}
	doc := document{
		Username:      username,
		LastSessionID: rec.LastSessionID,
		Record:        string(data),
		UpdatedAt:     time.Now().UTC(),
	}
	_, err = s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: username}}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Delete(ctx context.Context, username string) error {
	if username == "" {
		return sessionstore.ErrInvalidUsername
	}
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: username}})
	return err
}
