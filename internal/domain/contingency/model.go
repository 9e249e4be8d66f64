package contingency

import "time"

// Type classifies why the pharmacy entered contingency mode.
type Type string

const (
	TypeSystemFailure       Type = "system_failure"
	TypeNetworkFailure      Type = "network_failure"
	TypeFiscalDeviceFailure Type = "fiscal_device_failure"
	TypePowerOutage         Type = "power_outage"
	TypeManualInvoice       Type = "manual_invoice"
)

// Status is the lifecycle state of a contingency session.
type Status string

const (
	StatusActive      Status = "active"
	StatusSyncPending Status = "sync_pending"
	StatusSynced      Status = "synced"
)

// Session is one contingency episode: from the moment digital emission
// stopped until the manual invoices issued during it were synced back.
type Session struct {
	ID     string `json:"id"`
	Type   Type   `json:"type"`
	Status Status `json:"status"`

	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	Reason     string `json:"reason"`
	ReportedBy string `json:"reported_by"`

	ManualInvoiceStart int `json:"manual_invoice_start,omitempty"`
	ManualInvoiceEnd   int `json:"manual_invoice_end,omitempty"`

	InvoicesCreated []string `json:"invoices_created"`
	SyncErrors      []string `json:"sync_errors"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmissionGate is the answer to "may the POS emit a digital invoice
// right now".
type EmissionGate struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Statistics summarizes all recorded sessions.
type Statistics struct {
	TotalSessions   int           `json:"total_sessions"`
	ActiveSessions  int           `json:"active_sessions"`
	PendingSync     int           `json:"pending_sync"`
	Synced          int           `json:"synced"`
	AverageDuration time.Duration `json:"average_duration"`
}

// Report is the SENIAT contingency declaration for a period.
type Report struct {
	Sessions []*Session    `json:"sessions"`
	Summary  ReportSummary `json:"summary"`
}

type ReportSummary struct {
	TotalSessions int           `json:"total_sessions"`
	ByType        map[Type]int  `json:"by_type"`
	TotalInvoices int           `json:"total_invoices"`
	TotalDuration time.Duration `json:"total_duration"`
}
