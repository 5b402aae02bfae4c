package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
)

var (
	// ErrNotFound is returned by Load when no record exists for the username.
	ErrNotFound = errors.New("session record not found")

	// ErrInvalidUsername is returned for an empty username.
	ErrInvalidUsername = errors.New("username is required")

	// ErrCorrupted is returned when stored data cannot be decoded.
	ErrCorrupted = errors.New("session record is corrupted")
)

// LastSessionIDKey is the JSON field holding the token in a serialized record.
const LastSessionIDKey = "last_sessionid"

// Store persists one session record per username.
// Implementations guarantee read-after-write consistency for a single username.
type Store interface {
	// Load returns the record for username, or ErrNotFound.
	Load(ctx context.Context, username string) (Record, error)
	// Save replaces the record for username.
	Save(ctx context.Context, username string, rec Record) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, username string) error
}

// Record is the server's login payload plus the token it was issued with.
type Record struct {
	Fields        map[string]any
	LastSessionID string
}

// MarshalJSON flattens Fields and adds last_sessionid.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	maps.Copy(out, r.Fields)
	out[LastSessionIDKey] = r.LastSessionID
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.Join(ErrCorrupted, errors.New("record is not an object"))
	}

	token, _ := raw[LastSessionIDKey].(string)
	delete(raw, LastSessionIDKey)

	r.Fields = raw
	r.LastSessionID = token
	return nil
}

// Clone returns a copy whose top-level Fields map is independent of r.
func (r Record) Clone() Record {
	return Record{Fields: maps.Clone(r.Fields), LastSessionID: r.LastSessionID}
}

// Encode serializes a record for backends that store opaque bytes.
func Encode(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}

// Decode parses bytes written by Encode.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errors.Join(ErrCorrupted, err)
	}
	return rec, nil
}
