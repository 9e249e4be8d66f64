package contingency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmasalud/fiscal/internal/domain/auditlog"
)

var (
	// ErrInvalidScenario rejects a contingency start whose reason does
	// not describe a recognized failure.
	ErrInvalidScenario = errors.New("invalid contingency scenario")

	// ErrSessionActive rejects a second concurrent contingency session.
	ErrSessionActive = errors.New("a contingency session is already active")

	// ErrNoActiveSession is returned when an operation needs an active
	// session and none exists.
	ErrNoActiveSession = errors.New("no active contingency session")

	ErrSessionNotFound   = errors.New("contingency session not found")
	ErrSessionNotActive  = errors.New("contingency session is not active")
	ErrSessionNotPending = errors.New("contingency session is not pending sync")
)

// validScenarios are the failure descriptions SENIAT recognizes as
// grounds for contingency mode. A start reason must mention one of them.
var validScenarios = []string{
	"fiscal printer not responding",
	"network connection lost",
	"system crash",
	"power outage",
	"fiscal device malfunction",
	"internet service provider down",
	"senat server unreachable",
}

// Manager runs the contingency session state machine: at most one
// active session, active → sync_pending → synced, and a gate that
// blocks digital invoice emission while a session is active.
type Manager struct {
	mu     sync.Mutex
	repo   Repository
	ledger *auditlog.Ledger

	sessions []*Session
	active   *Session
}

// NewManager creates a contingency manager. ledger may be nil, in which
// case compliance events are not written to the audit log.
func NewManager(repo Repository, ledger *auditlog.Ledger) *Manager {
	return &Manager{repo: repo, ledger: ledger}
}

// Load restores persisted sessions and re-establishes the active
// session, if one was active when the process stopped.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.repo.Load(ctx)
	if err != nil {
		return err
	}

	m.sessions = sessions
	m.active = nil
	for _, s := range sessions {
		if s.Status == StatusActive {
			m.active = s
			break
		}
	}
	return nil
}

// StartInput describes the contingency being declared.
type StartInput struct {
	Type               Type   `json:"type"`
	Reason             string `json:"reason"`
	ReportedBy         string `json:"reported_by"`
	ManualInvoiceStart int    `json:"manual_invoice_start,omitempty"`
}

// Start opens a contingency session. The reason must describe a
// recognized failure, or carry an explicit authorization marker for
// manual-invoice sessions. Only one session may be active at a time.
func (m *Manager) Start(ctx context.Context, in StartInput) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !validScenario(in.Type, in.Reason) {
		if m.ledger != nil {
			_, err := m.ledger.LogSecurityEvent(ctx, in.ReportedBy, "suspicious_activity", "",
				map[string]interface{}{
					"action": "contingency_rejected",
					"type":   in.Type,
					"reason": in.Reason,
				})
			if err != nil {
				return nil, fmt.Errorf("%w: record rejection: %v", ErrInvalidScenario, err)
			}
		}
		return nil, ErrInvalidScenario
	}
	if m.active != nil {
		return nil, ErrSessionActive
	}

	now := time.Now()
	session := &Session{
		ID:                 uuid.NewString(),
		Type:               in.Type,
		Status:             StatusActive,
		StartedAt:          now,
		Reason:             in.Reason,
		ReportedBy:         in.ReportedBy,
		ManualInvoiceStart: in.ManualInvoiceStart,
		InvoicesCreated:    []string{},
		SyncErrors:         []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	m.sessions = append(m.sessions, session)
	m.active = session
	if err := m.repo.Save(ctx, m.sessions); err != nil {
		m.sessions = m.sessions[:len(m.sessions)-1]
		m.active = nil
		return nil, fmt.Errorf("persist contingency session: %w", err)
	}

	if m.ledger != nil {
		_, err := m.ledger.LogSecurityEvent(ctx, in.ReportedBy, "suspicious_activity", "",
			map[string]interface{}{
				"action": "contingency_started",
				"type":   session.Type,
				"reason": session.Reason,
			})
		if err != nil {
			return nil, err
		}
	}

	return session, nil
}

// End closes an active session and moves it to sync_pending: the manual
// invoices issued during it still have to be synced back.
func (m *Manager) End(ctx context.Context, sessionID, resolvedBy string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := m.find(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != StatusActive {
		return nil, ErrSessionNotActive
	}

	prev := *session
	now := time.Now()
	session.EndedAt = &now
	session.Status = StatusSyncPending
	session.UpdatedAt = now

	if err := m.repo.Save(ctx, m.sessions); err != nil {
		*session = prev
		return nil, fmt.Errorf("persist contingency session: %w", err)
	}
	m.active = nil

	if m.ledger != nil {
		_, err := m.ledger.LogSecurityEvent(ctx, resolvedBy, "suspicious_activity", "",
			map[string]interface{}{
				"action":     "contingency_ended",
				"session_id": session.ID,
				"duration":   now.Sub(session.StartedAt).String(),
			})
		if err != nil {
			return nil, err
		}
	}

	return session, nil
}

// MarkSynced resolves a sync_pending session after its manual invoices
// have been registered. Sessions in any other state are rejected.
func (m *Manager) MarkSynced(ctx context.Context, sessionID, syncedBy string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := m.find(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != StatusSyncPending {
		return nil, ErrSessionNotPending
	}

	prev := *session
	now := time.Now()
	session.Status = StatusSynced
	session.ResolvedAt = &now
	session.UpdatedAt = now

	if err := m.repo.Save(ctx, m.sessions); err != nil {
		*session = prev
		return nil, fmt.Errorf("persist contingency session: %w", err)
	}

	if m.ledger != nil {
		_, err := m.ledger.LogFiscalEvent(ctx, syncedBy, "invoice_modified", "contingency_session", session.ID,
			nil, map[string]interface{}{"action": "synced"})
		if err != nil {
			return nil, err
		}
	}

	return session, nil
}

// InvoiceRef identifies a manual invoice issued during a contingency.
type InvoiceRef struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoice_number"`
	CashierID     string  `json:"cashier_id"`
	TotalUSD      float64 `json:"total_usd"`
	TotalVES      float64 `json:"total_ves"`
}

// AddInvoice attaches a manual invoice to the active session.
func (m *Manager) AddInvoice(ctx context.Context, inv InvoiceRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ErrNoActiveSession
	}

	m.active.InvoicesCreated = append(m.active.InvoicesCreated, inv.ID)
	m.active.UpdatedAt = time.Now()

	if err := m.repo.Save(ctx, m.sessions); err != nil {
		m.active.InvoicesCreated = m.active.InvoicesCreated[:len(m.active.InvoicesCreated)-1]
		return fmt.Errorf("persist contingency session: %w", err)
	}

	if m.ledger != nil {
		_, err := m.ledger.LogFiscalEvent(ctx, inv.CashierID, "invoice_created", "invoice", inv.ID,
			&auditlog.FiscalAmount{USD: inv.TotalUSD, VES: inv.TotalVES},
			map[string]interface{}{
				"contingency_session":   m.active.ID,
				"manual_invoice_number": inv.InvoiceNumber,
			})
		if err != nil {
			return err
		}
	}

	return nil
}

// InContingency reports whether a session is currently active.
func (m *Manager) InContingency() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// CanEmitDigitalInvoice gates digital invoice emission: blocked while
// any contingency session is active.
func (m *Manager) CanEmitDigitalInvoice() EmissionGate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return EmissionGate{
			Allowed: false,
			Reason: fmt.Sprintf("System is in contingency mode (%s). Manual invoices required. "+
				"Use of Excel or unauthorized software is prohibited by SENIAT.", m.active.Type),
		}
	}
	return EmissionGate{Allowed: true}
}

// ActiveSession returns the active session, or nil.
func (m *Manager) ActiveSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Sessions returns all recorded sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Session(nil), m.sessions...)
}

// PendingSync returns the sessions waiting for their manual invoices to
// be synced.
func (m *Manager) PendingSync() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.Status == StatusSyncPending {
			out = append(out, s)
		}
	}
	return out
}

// Statistics summarizes recorded sessions. Average duration counts only
// synced sessions with a recorded end.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{TotalSessions: len(m.sessions)}
	if m.active != nil {
		stats.ActiveSessions = 1
	}

	var total time.Duration
	var counted int
	for _, s := range m.sessions {
		switch s.Status {
		case StatusSyncPending:
			stats.PendingSync++
		case StatusSynced:
			stats.Synced++
			if s.EndedAt != nil {
				total += s.EndedAt.Sub(s.StartedAt)
				counted++
			}
		}
	}
	if counted > 0 {
		stats.AverageDuration = total / time.Duration(counted)
	}
	return stats
}

// Report builds the SENIAT contingency declaration for sessions started
// in the period.
func (m *Manager) Report(start, end time.Time) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &Report{
		Sessions: []*Session{},
		Summary:  ReportSummary{ByType: map[Type]int{}},
	}
	for _, s := range m.sessions {
		if s.StartedAt.Before(start) || s.StartedAt.After(end) {
			continue
		}
		report.Sessions = append(report.Sessions, s)
		report.Summary.ByType[s.Type]++
		report.Summary.TotalInvoices += len(s.InvoicesCreated)
		if s.EndedAt != nil {
			report.Summary.TotalDuration += s.EndedAt.Sub(s.StartedAt)
		}
	}
	report.Summary.TotalSessions = len(report.Sessions)
	return report
}

func (m *Manager) find(id string) *Session {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// validScenario checks the start reason against the recognized failure
// list. Manual-invoice sessions instead need an explicit authorization
// marker in the reason.
func validScenario(t Type, reason string) bool {
	if t == TypeManualInvoice {
		return strings.Contains(reason, "authorized") || strings.Contains(reason, "authorization")
	}
	lower := strings.ToLower(reason)
	for _, scenario := range validScenarios {
		if strings.Contains(lower, scenario) {
			return true
		}
	}
	return false
}
