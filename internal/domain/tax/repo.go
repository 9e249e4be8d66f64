package tax

import "context"

// Repository persists tax state. Implementations store each collection
// wholesale under its own key.
type Repository interface {
	LoadTransactions(ctx context.Context) ([]*Transaction, error)
	SaveTransactions(ctx context.Context, txs []*Transaction) error

	LoadVouchers(ctx context.Context) ([]*RetentionVoucher, error)
	SaveVouchers(ctx context.Context, vouchers []*RetentionVoucher) error

	LoadConfiguration(ctx context.Context) (*Configuration, error)
	SaveConfiguration(ctx context.Context, cfg Configuration) error
}
