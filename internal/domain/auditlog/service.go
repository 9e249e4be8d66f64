package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmasalud/fiscal/internal/platform/hashchain"
)

// ErrPersistFailed marks a failed write of the ledger. A fiscal record that
// was not durably stored is a compliance violation, so the failed append is
// rolled back and surfaced, never swallowed.
var ErrPersistFailed = errors.New("audit log persist failed: compliance violation")

// Ledger is the append-only, hash-chained audit log. It assumes a single
// logical writer per ledger; the internal mutex serializes appends within
// this process. Multi-process deployments need a database-level atomic
// append (unique sequence constraint) in front of it.
type Ledger struct {
	mu      sync.Mutex
	repo    Repository
	entries []*Entry
	nextSeq int
}

// NewLedger creates an empty ledger over the given repository. Call Load to
// resume a persisted chain.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Load restores the persisted chain and resumes the sequence counter at
// last+1. The returned IntegrityResult reports a broken chain; it is never
// repaired here. The error covers storage and decoding failures only.
func (l *Ledger) Load(ctx context.Context) (IntegrityResult, error) {
	entries, err := l.repo.Load(ctx)
	if err != nil {
		return IntegrityResult{Valid: false, Detail: err.Error()}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = entries
	l.nextSeq = 0
	if n := len(entries); n > 0 {
		l.nextSeq = entries[n-1].SequenceNumber + 1
	}

	return verify(l.entries), nil
}

// Append computes the next entry's chain fields, persists the ledger and
// returns the new entry. Persistence is awaited before success is reported;
// on failure the in-memory append is rolled back.
func (l *Ledger) Append(ctx context.Context, rec Record) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	previousHash := hashchain.Genesis
	if n := len(l.entries); n > 0 {
		previousHash = l.entries[n-1].CurrentHash
	}

	entry := &Entry{
		ID:             uuid.New().String(),
		SequenceNumber: l.nextSeq,
		PreviousHash:   previousHash,
		UserID:         rec.UserID,
		Action:         rec.Action,
		EntityType:     rec.EntityType,
		EntityID:       rec.EntityID,
		Changes:        rec.Changes,
		IPAddress:      rec.IPAddress,
		CreatedAt:      time.Now().UTC(),
	}

	hash, err := hashchain.Hash(entry.envelope())
	if err != nil {
		return nil, fmt.Errorf("hash audit entry: %w", err)
	}
	entry.CurrentHash = hash
	entry.Signature = hashchain.Sign(hash)

	l.entries = append(l.entries, entry)
	if err := l.repo.Save(ctx, l.entries); err != nil {
		l.entries = l.entries[:len(l.entries)-1]
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	l.nextSeq++

	return entry, nil
}

// VerifyChainIntegrity walks every entry, confirming previous-hash linkage
// and recomputing each entry hash to detect tampering.
func (l *Ledger) VerifyChainIntegrity() IntegrityResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return verify(l.entries)
}

func verify(entries []*Entry) IntegrityResult {
	for i, current := range entries {
		expectedPrevious := hashchain.Genesis
		if i > 0 {
			expectedPrevious = entries[i-1].CurrentHash
		}

		if current.PreviousHash != expectedPrevious {
			idx := i
			return IntegrityResult{
				Valid:    false,
				BrokenAt: &idx,
				Detail: fmt.Sprintf("chain broken at sequence %d: expected previous hash %s, got %s",
					current.SequenceNumber, expectedPrevious, current.PreviousHash),
			}
		}

		recomputed, err := hashchain.Hash(current.envelope())
		if err != nil {
			idx := i
			return IntegrityResult{Valid: false, BrokenAt: &idx, Detail: fmt.Sprintf("rehash sequence %d: %v", current.SequenceNumber, err)}
		}
		if current.CurrentHash != recomputed {
			idx := i
			return IntegrityResult{
				Valid:    false,
				BrokenAt: &idx,
				Detail:   fmt.Sprintf("hash mismatch at sequence %d: entry data may have been tampered with", current.SequenceNumber),
			}
		}
	}
	return IntegrityResult{Valid: true}
}

// Statistics returns chain statistics for compliance reporting.
func (l *Ledger) Statistics() ChainStatistics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return statistics(l.entries)
}

func statistics(entries []*Entry) ChainStatistics {
	stats := ChainStatistics{TotalEntries: len(entries)}
	if len(entries) == 0 {
		return stats
	}
	stats.SequenceStart = entries[0].SequenceNumber
	stats.SequenceEnd = entries[len(entries)-1].SequenceNumber
	stats.GenesisHash = entries[0].CurrentHash
	stats.LatestHash = entries[len(entries)-1].CurrentHash
	return stats
}

// GenerateComplianceReport summarizes all entries within [start, end] and
// embeds the current integrity result and chain statistics.
func (l *Ledger) GenerateComplianceReport(start, end time.Time) *ComplianceReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	var inRange []*Entry
	actionsByType := make(map[string]int)
	users := make(map[string]struct{})
	entities := make(map[string]struct{})

	for _, e := range l.entries {
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		inRange = append(inRange, e)
		actionsByType[e.Action]++
		users[e.UserID] = struct{}{}
		if e.EntityID != "" {
			entities[e.EntityType+":"+e.EntityID] = struct{}{}
		}
	}

	return &ComplianceReport{
		GeneratedAt:      time.Now().UTC(),
		PeriodStart:      start,
		PeriodEnd:        end,
		ChainStatistics:  statistics(l.entries),
		IntegrityCheck:   verify(l.entries),
		TotalEntries:     len(inRange),
		ActionsByType:    actionsByType,
		UsersActive:      len(users),
		EntitiesAffected: len(entities),
		Entries:          inRange,
	}
}

// ByUser returns up to limit entries for userID, newest first.
func (l *Ledger) ByUser(userID string, limit int) []*Entry {
	return l.filter(limit, func(e *Entry) bool { return e.UserID == userID })
}

// ByEntity returns up to limit entries for the entity, newest first.
func (l *Ledger) ByEntity(entityType, entityID string, limit int) []*Entry {
	return l.filter(limit, func(e *Entry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	})
}

// ByAction returns up to limit entries with the given action, newest first.
func (l *Ledger) ByAction(action string, limit int) []*Entry {
	return l.filter(limit, func(e *Entry) bool { return e.Action == action })
}

// BySequenceRange returns entries with start <= sequence <= end, in chain order.
func (l *Ledger) BySequenceRange(start, end int) []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Entry
	for _, e := range l.entries {
		if e.SequenceNumber >= start && e.SequenceNumber <= end {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns the newest limit entries, newest first.
func (l *Ledger) Recent(limit int) []*Entry {
	return l.filter(limit, func(*Entry) bool { return true })
}

// All returns a copy of the full chain in sequence order.
func (l *Ledger) All() []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) filter(limit int, keep func(*Entry) bool) []*Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Entry
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(l.entries[i]) {
			out = append(out, l.entries[i])
		}
	}
	return out
}

// FiscalAmount carries the dual-currency amount attached to fiscal events.
type FiscalAmount struct {
	USD float64 `json:"usd,omitempty"`
	VES float64 `json:"ves,omitempty"`
}

// LogFiscalEvent appends a "fiscal.<eventType>" entry for invoice-level
// events (invoice_created, invoice_cancelled, payment_received, ...).
func (l *Ledger) LogFiscalEvent(ctx context.Context, userID, eventType, entityType, entityID string, amount *FiscalAmount, fiscalData map[string]interface{}) (*Entry, error) {
	changes := make(map[string]interface{}, len(fiscalData)+1)
	for k, v := range fiscalData {
		changes[k] = v
	}
	if amount != nil {
		changes["amount"] = amount
	}
	return l.appendWithChanges(ctx, userID, "fiscal."+eventType, entityType, entityID, "", changes)
}

// LogSecurityEvent appends a "security.<eventType>" entry (login attempts,
// permission denials, contingency activity).
func (l *Ledger) LogSecurityEvent(ctx context.Context, userID, eventType, ipAddress string, details map[string]interface{}) (*Entry, error) {
	return l.appendWithChanges(ctx, userID, "security."+eventType, "security", "", ipAddress, details)
}

// LogInventoryEvent appends an "inventory.<eventType>" entry.
func (l *Ledger) LogInventoryEvent(ctx context.Context, userID, eventType, entityType, entityID string, changes map[string]interface{}) (*Entry, error) {
	return l.appendWithChanges(ctx, userID, "inventory."+eventType, entityType, entityID, "", changes)
}

func (l *Ledger) appendWithChanges(ctx context.Context, userID, action, entityType, entityID, ip string, changes map[string]interface{}) (*Entry, error) {
	rec := Record{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  ip,
	}
	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			return nil, fmt.Errorf("encode changes: %w", err)
		}
		rec.Changes = raw
	}
	return l.Append(ctx, rec)
}
