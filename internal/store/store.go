// Package store persists form documents per scope key on this device.
//
// A Store only loads, saves and clears a single document for a single
// form.ScopeKey. Documents for different production orders, or written under
// different schema versions, never share a slot.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"quality-master/internal/form"
)

// ErrQuotaExceeded is returned when a write would exceed the storage capacity.
// The caller keeps working in memory and may retry on the next edit.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// DefaultQuota mirrors the per-origin capacity of browser local storage.
const DefaultQuota = 5 << 20

// Store loads/saves/clears one document for one scope key.
type Store interface {
	Load(ctx context.Context, key form.ScopeKey) (doc *form.Document, ok bool, err error)
	Save(ctx context.Context, key form.ScopeKey, doc *form.Document) error
	Clear(ctx context.Context, key form.ScopeKey) error
	Keys(ctx context.Context) ([]form.ScopeKey, error)
}

// Backend is the raw key/value medium a Documents store writes through.
type Backend interface {
	Get(id string) ([]byte, bool, error)
	Put(id string, data []byte) error
	Delete(id string) error
	List() ([]string, error)
}

// Documents implements Store on top of a Backend, serialising whole
// documents as JSON.
type Documents struct {
	backend Backend
}

// New returns a Store writing through backend.
func New(backend Backend) *Documents {
	return &Documents{backend: backend}
}

// Load returns the document saved under key. Missing and unreadable values
// both report ok == false; unreadable ones are logged and otherwise ignored.
func (s *Documents) Load(ctx context.Context, key form.ScopeKey) (*form.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	id, err := key.Identifier()
	if err != nil {
		return nil, false, err
	}
	data, ok, err := s.backend.Get(id)
	if err != nil {
		return nil, false, fmt.Errorf("store: load %s: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	doc, err := form.Decode(data)
	if err != nil {
		log.Printf("Store: ignoring unreadable document %s: %v", id, err)
		return nil, false, nil
	}
	return doc, true, nil
}

// Save writes doc under key, replacing any previous value.
func (s *Documents) Save(ctx context.Context, key form.ScopeKey, doc *form.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("store: document is required")
	}
	id, err := key.Identifier()
	if err != nil {
		return err
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := s.backend.Put(id, data); err != nil {
		return fmt.Errorf("store: save %s: %w", id, err)
	}
	return nil
}

// Clear removes only the value stored under key.
func (s *Documents) Clear(ctx context.Context, key form.ScopeKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := key.Identifier()
	if err != nil {
		return err
	}
	if err := s.backend.Delete(id); err != nil {
		return fmt.Errorf("store: clear %s: %w", id, err)
	}
	return nil
}

// Keys lists the scope keys with a stored value, sorted by identifier.
// Values that are not form documents are skipped.
func (s *Documents) Keys(ctx context.Context) ([]form.ScopeKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.backend.List()
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	sort.Strings(ids)
	keys := make([]form.ScopeKey, 0, len(ids))
	for _, id := range ids {
		k, err := form.ParseIdentifier(id)
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}
