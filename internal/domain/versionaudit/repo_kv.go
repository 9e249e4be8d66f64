package versionaudit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/farmasalud/fiscal/internal/platform/storage"
)

// KVRepository stores the version record as a JSON document.
type KVRepository struct {
	store storage.Store
}

func NewKVRepository(store storage.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Load(ctx context.Context) (*Record, error) {
	raw, ok, err := r.store.Get(ctx, storage.KeyVersionAudit)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", storage.KeyVersionAudit, err)
	}
	if !ok {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", storage.KeyVersionAudit, err)
	}
	return &rec, nil
}

func (r *KVRepository) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", storage.KeyVersionAudit, err)
	}
	if err := r.store.Set(ctx, storage.KeyVersionAudit, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", storage.KeyVersionAudit, err)
	}
	return nil
}
