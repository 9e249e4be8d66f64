// Package storage defines the durable key-value boundary the fiscal core
// persists through. Every compliance record set lives wholesale under a
// single namespaced key as a JSON document; repositories load the full
// document, mutate in memory, and write it back. The interface is small on
// purpose so a browser-storage, file, or database backend can all satisfy it.
package storage

import "context"

// Store is the persistence boundary for all fiscal compliance records.
type Store interface {
	// Get returns the value stored under key. The second return is false
	// when the key has never been written.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set durably stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// Keys for each record set. Each manager owns exactly one key (plus the tax
// manager's configuration key).
const (
	KeyAuditLog            = "fiscal:audit_log"
	KeyContingencySessions = "fiscal:contingency_sessions"
	KeyTaxTransactions     = "fiscal:tax_transactions"
	KeyRetentionVouchers   = "fiscal:retention_vouchers"
	KeyTaxConfiguration    = "fiscal:tax_configuration"
	KeyVersionAudit        = "fiscal:version_audit"
)
