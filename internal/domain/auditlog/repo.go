package auditlog

import "context"

// Repository persists the full entry list. The ledger is the single writer;
// Save replaces the stored list wholesale (the KV boundary has no partial
// updates) and Load returns it in sequence order.
type Repository interface {
	Load(ctx context.Context) ([]*Entry, error)
	Save(ctx context.Context, entries []*Entry) error
}
