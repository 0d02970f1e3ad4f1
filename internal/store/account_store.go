/**
 * @description
 * This file implements the persistent account store. The entire collection
 * lives in a single JSON document that is read and rewritten wholesale on
 * every mutation, so the store serializes all access through one mutex and
 * exposes an Update helper that runs load -> mutate -> save under the lock.
 *
 * A missing file is treated as an empty collection (graceful first run); a
 * file that exists but cannot be parsed is a ReadError, never silently
 * coerced to empty.
 */
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/GustavoFMorales/api-login-mentoria/internal/domain"
)

// ReadError indicates the account document exists but could not be read or
// parsed. It is distinct from the empty collection returned for a missing file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading account store %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError indicates the account document could not be persisted. Callers
// must treat it as fatal for the current request.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing account store %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// AccountStore owns the persisted account collection.
type AccountStore struct {
	path string
	mu   sync.Mutex
}

// NewAccountStore creates a store backed by the JSON document at path. The
// file is created on first save.
func NewAccountStore(path string) *AccountStore {
	return &AccountStore{path: path}
}

// LoadAll reads the entire account collection.
func (s *AccountStore) LoadAll(ctx context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAll(ctx)
}

// SaveAll overwrites the entire account collection.
func (s *AccountStore) SaveAll(ctx context.Context, accounts []domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAll(accounts)
}

// Update runs fn with the loaded collection while holding the write lock.
// fn mutates the slice in place and reports whether the result should be
// persisted; its error is returned to the caller after a successful save, so
// an operation can both record a state change (e.g. a failed login attempt)
// and report a failure. Store read/write errors take precedence.
func (s *AccountStore) Update(ctx context.Context, fn func(accounts *[]domain.Account) (save bool, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.loadAll(ctx)
	if err != nil {
		return err
	}

	save, opErr := fn(&accounts)
	if save {
		if err := s.saveAll(accounts); err != nil {
			return err
		}
	}
	return opErr
}

func (s *AccountStore) loadAll(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: no document yet means an empty collection.
			return []domain.Account{}, nil
		}
		return nil, &ReadError{Path: s.path, Err: err}
	}

	if len(data) == 0 {
		return []domain.Account{}, nil
	}

	var accounts []domain.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, &ReadError{Path: s.path, Err: err}
	}
	return accounts, nil
}

func (s *AccountStore) saveAll(accounts []domain.Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	// Write to a temp file and rename so a crash mid-write never truncates
	// the collection.
	tmp, err := os.CreateTemp(dir, ".accounts-*.json")
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	return nil
}
