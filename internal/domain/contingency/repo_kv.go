package contingency

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/farmasalud/fiscal/internal/platform/storage"
)

// KVRepository stores sessions as a JSON array under a single key.
type KVRepository struct {
	store storage.Store
}

func NewKVRepository(store storage.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) Load(ctx context.Context) ([]*Session, error) {
	raw, ok, err := r.store.Get(ctx, storage.KeyContingencySessions)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", storage.KeyContingencySessions, err)
	}
	if !ok {
		return nil, nil
	}

	var sessions []*Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("decode %s: %w", storage.KeyContingencySessions, err)
	}
	return sessions, nil
}

func (r *KVRepository) Save(ctx context.Context, sessions []*Session) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode %s: %w", storage.KeyContingencySessions, err)
	}
	if err := r.store.Set(ctx, storage.KeyContingencySessions, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", storage.KeyContingencySessions, err)
	}
	return nil
}
