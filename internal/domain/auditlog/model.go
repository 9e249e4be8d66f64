// Package auditlog implements the tamper-evident, append-only event ledger
// that backs SENIAT compliance. Every entry is hash-linked to its
// predecessor; history is never updated or deleted, only appended to.
package auditlog

import (
	"encoding/json"
	"time"
)

// Entry is one immutable record in the hash-chained ledger.
type Entry struct {
	ID             string          `json:"id"`
	SequenceNumber int             `json:"sequence_number"`
	PreviousHash   string          `json:"previous_hash"`
	CurrentHash    string          `json:"current_hash"`
	Signature      string          `json:"signature"`
	UserID         string          `json:"user_id"`
	Action         string          `json:"action"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id,omitempty"`
	Changes        json.RawMessage `json:"changes,omitempty"`
	IPAddress      string          `json:"ip_address,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Record is the caller-supplied part of an entry. The ledger assigns id,
// sequence, hashes, signature and timestamp.
type Record struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Changes    json.RawMessage
	IPAddress  string
}

// entryData is the hashed portion of an entry: everything except the chain
// fields themselves. Field order is part of the hash contract.
type entryData struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// hashEnvelope is the canonical structure the entry hash is computed over.
type hashEnvelope struct {
	Sequence     int       `json:"sequence"`
	PreviousHash string    `json:"previous_hash"`
	Data         entryData `json:"data"`
	Timestamp    string    `json:"timestamp"`
}

func (e *Entry) envelope() hashEnvelope {
	ts := e.CreatedAt.UTC().Format(time.RFC3339Nano)
	return hashEnvelope{
		Sequence:     e.SequenceNumber,
		PreviousHash: e.PreviousHash,
		Data: entryData{
			ID:         e.ID,
			UserID:     e.UserID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Changes:    e.Changes,
			IPAddress:  e.IPAddress,
			CreatedAt:  ts,
		},
		Timestamp: ts,
	}
}

// IntegrityResult is the outcome of a chain verification walk. A broken
// chain is an expected, reportable condition, not an error.
type IntegrityResult struct {
	Valid    bool   `json:"valid"`
	BrokenAt *int   `json:"broken_at,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ChainStatistics summarizes the ledger for compliance reporting.
type ChainStatistics struct {
	TotalEntries  int    `json:"total_entries"`
	SequenceStart int    `json:"sequence_start"`
	SequenceEnd   int    `json:"sequence_end"`
	GenesisHash   string `json:"genesis_hash"`
	LatestHash    string `json:"latest_hash"`
}

// ComplianceReport is the SENIAT-facing summary over a date range.
type ComplianceReport struct {
	GeneratedAt      time.Time       `json:"generated_at"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	ChainStatistics  ChainStatistics `json:"chain_statistics"`
	IntegrityCheck   IntegrityResult `json:"integrity_check"`
	TotalEntries     int             `json:"total_entries"`
	ActionsByType    map[string]int  `json:"actions_by_type"`
	UsersActive      int             `json:"users_active"`
	EntitiesAffected int             `json:"entities_affected"`
	Entries          []*Entry        `json:"entries"`
}
