package tax

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/farmasalud/fiscal/internal/platform/storage"
)

// KVRepository stores tax state as JSON documents in the key-value store.
type KVRepository struct {
	store storage.Store
}

func NewKVRepository(store storage.Store) *KVRepository {
	return &KVRepository{store: store}
}

func (r *KVRepository) LoadTransactions(ctx context.Context) ([]*Transaction, error) {
	var txs []*Transaction
	if err := r.load(ctx, storage.KeyTaxTransactions, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *KVRepository) SaveTransactions(ctx context.Context, txs []*Transaction) error {
	return r.save(ctx, storage.KeyTaxTransactions, txs)
}

func (r *KVRepository) LoadVouchers(ctx context.Context) ([]*RetentionVoucher, error) {
	var vouchers []*RetentionVoucher
	if err := r.load(ctx, storage.KeyRetentionVouchers, &vouchers); err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (r *KVRepository) SaveVouchers(ctx context.Context, vouchers []*RetentionVoucher) error {
	return r.save(ctx, storage.KeyRetentionVouchers, vouchers)
}

func (r *KVRepository) LoadConfiguration(ctx context.Context) (*Configuration, error) {
	var cfg Configuration
	raw, ok, err := r.store.Get(ctx, storage.KeyTaxConfiguration)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", storage.KeyTaxConfiguration, err)
	}
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", storage.KeyTaxConfiguration, err)
	}
	return &cfg, nil
}

func (r *KVRepository) SaveConfiguration(ctx context.Context, cfg Configuration) error {
	return r.save(ctx, storage.KeyTaxConfiguration, cfg)
}

func (r *KVRepository) load(ctx context.Context, key string, dst interface{}) error {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *KVRepository) save(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
