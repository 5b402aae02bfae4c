package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrFileAccess wraps filesystem failures of the File store.
var ErrFileAccess = errors.New("session file access failed")

// File keeps all records in a single JSON document:
//
//	{"admin": {"bbx_user_id": 1, "last_sessionid": "..."}}
//
// Writes go to a temporary file that is renamed over the original.
type File struct {
	mu   sync.Mutex
	path string
	perm os.FileMode
}

// FileOption configures a File store.
type FileOption func(*File)

// WithFileMode sets the permission bits of the session file. Default 0600.
func WithFileMode(perm os.FileMode) FileOption {
	return func(f *File) {
		f.perm = perm
	}
}

// NewFile returns a store backed by the document at path.
// The file is created on first Save.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, perm: 0o600}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the location of the session file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(ctx context.Context, username string) (Record, error) {
	if username == "" {
		return Record{}, ErrInvalidUsername
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return Record{}, err
	}
	rec, ok := doc[username]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (f *File) Save(ctx context.Context, username string, rec Record) error {
	if username == "" {
		return ErrInvalidUsername
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc[username] = rec
	return f.write(doc)
}

func (f *File) Delete(ctx context.Context, username string) error {
	if username == "" {
		return ErrInvalidUsername
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := doc[username]; !ok {
		return nil
	}
	delete(doc, username)
	return f.write(doc)
}

// read returns the whole document. A missing or empty file is an empty document.
func (f *File) read() (map[string]Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Record), nil
	}
	if err != nil {
		return nil, errors.Join(ErrFileAccess, err)
	}
	if len(data) == 0 {
		return make(map[string]Record), nil
	}

	doc := make(map[string]Record)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrCorrupted, fmt.Errorf("%s: %w", f.path, err))
	}
	return doc, nil
}

func (f *File) write(doc map[string]Record) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Join(ErrFileAccess, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Join(ErrFileAccess, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Join(ErrFileAccess, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Join(ErrFileAccess, err)
	}
	if err := tmp.Chmod(f.perm); err != nil {
		tmp.Close()
		return errors.Join(ErrFileAccess, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(ErrFileAccess, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Join(ErrFileAccess, err)
	}
	return nil
}
