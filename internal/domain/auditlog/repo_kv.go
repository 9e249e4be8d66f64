package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/farmasalud/fiscal/internal/platform/storage"
)

// maxStoredEntries bounds the persisted window. Retention policy keeps at
// least 90 days; the window is sized well above daily POS volume so the
// bound only trims entries far past retention.
const maxStoredEntries = 5000

// KVRepository stores the ledger as one JSON document in the KV store.
type KVRepository struct {
	store storage.Store
}

// NewKVRepository creates a Repository backed by the given store.
func NewKVRepository(store storage.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Load(ctx context.Context) ([]*Entry, error) {
	raw, ok, err := r.store.Get(ctx, storage.KeyAuditLog)
	if err != nil {
		return nil, fmt.Errorf("load audit log: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var entries []*Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode audit log: %w", err)
	}
	return entries, nil
}

func (r *KVRepository) Save(ctx context.Context, entries []*Entry) error {
	if len(entries) > maxStoredEntries {
		entries = entries[len(entries)-maxStoredEntries:]
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}
	if err := r.store.Set(ctx, storage.KeyAuditLog, string(raw)); err != nil {
		return fmt.Errorf("persist audit log: %w", err)
	}
	return nil
}
