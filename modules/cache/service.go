// Package cache keeps JSON documents in Redis for short-lived read models.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-monolith/mono/pkg/storage"
)

// Store is the read-model cache handed to other modules.
type Store interface {
	// Load decodes the document at key into dest. A miss is (false, nil).
	Load(ctx context.Context, key string, dest any) (bool, error)
	Save(ctx context.Context, key string, value any) error
	Evict(ctx context.Context, key string) error
}

type documentStore struct {
	backend   storage.Storage
	namespace string
	ttl       time.Duration
}

// NewStore namespaces every key and expires documents after ttl.
func NewStore(backend storage.Storage, namespace string, ttl time.Duration) Store {
	return &documentStore{backend: backend, namespace: namespace, ttl: ttl}
}

func (s *documentStore) Load(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.backend.GetWithContext(ctx, s.namespace+key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// an undecodable document is dropped so the next read repopulates it
		_ = s.backend.DeleteWithContext(ctx, s.namespace+key)
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *documentStore) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.SetWithContext(ctx, s.namespace+key, raw, s.ttl)
}

func (s *documentStore) Evict(ctx context.Context, key string) error {
	return s.backend.DeleteWithContext(ctx, s.namespace+key)
}
