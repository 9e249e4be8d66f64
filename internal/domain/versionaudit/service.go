package versionaudit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmasalud/fiscal/internal/domain/auditlog"
	"github.com/farmasalud/fiscal/internal/platform/hashchain"
)

// ErrVersionNotFound is returned when an ID does not match the current
// version record.
var ErrVersionNotFound = errors.New("version not found")

// Auditor tracks the installed software version and gates fiscal
// operations on its authorization and homologation state.
type Auditor struct {
	mu     sync.Mutex
	repo   Repository
	ledger *auditlog.Ledger

	current *Record
}

// NewAuditor creates a version auditor. ledger may be nil, in which
// case compliance events are not written to the audit log.
func NewAuditor(repo Repository, ledger *auditlog.Ledger) *Auditor {
	return &Auditor{repo: repo, ledger: ledger}
}

// Load restores the persisted version record, if any.
func (a *Auditor) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.repo.Load(ctx)
	if err != nil {
		return err
	}
	a.current = rec
	return nil
}

// RegisterInput describes a version installation.
type RegisterInput struct {
	Version        string            `json:"version"`
	BuildNumber    string            `json:"build_number"`
	InstalledBy    string            `json:"installed_by"`
	HomologationID string            `json:"homologation_id,omitempty"`
	Files          map[string]string `json:"files"`
}

// Register records a new version installation: per-file SHA-256
// checksums plus a combined hash over all of them. A homologation ID
// puts the version in pending status; without one it is approved
// outright. The new record supersedes the current one.
func (a *Auditor) Register(ctx context.Context, in RegisterInput) (*Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	checksums := make(map[string]string, len(in.Files))
	for name, content := range in.Files {
		checksums[name] = hashchain.HashString(content)
	}

	status := HomologationApproved
	if in.HomologationID != "" {
		status = HomologationPending
	}

	now := time.Now()
	rec := &Record{
		ID:                 uuid.NewString(),
		Version:            in.Version,
		BuildNumber:        in.BuildNumber,
		Hash:               combinedHash(checksums),
		InstalledAt:        now,
		InstalledBy:        in.InstalledBy,
		HomologationID:     in.HomologationID,
		HomologationStatus: status,
		FilesChecksum:      checksums,
		IsAuthorized:       true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	prev := a.current
	a.current = rec
	if err := a.repo.Save(ctx, rec); err != nil {
		a.current = prev
		return nil, fmt.Errorf("persist version record: %w", err)
	}

	if a.ledger != nil {
		_, err := a.ledger.LogSecurityEvent(ctx, in.InstalledBy, "suspicious_activity", "",
			map[string]interface{}{
				"action":       "version_installed",
				"version":      rec.Version,
				"build_number": rec.BuildNumber,
				"hash":         rec.Hash,
			})
		if err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// VerifyIntegrity checks the given files against the registered
// checksums. Missing files count as modified.
func (a *Auditor) VerifyIntegrity(files map[string]string) IntegrityResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return IntegrityResult{Valid: false, Detail: "no version registered"}
	}

	var modified []string
	for name, expected := range a.current.FilesChecksum {
		content, ok := files[name]
		if !ok || hashchain.HashString(content) != expected {
			modified = append(modified, name)
		}
	}
	if len(modified) > 0 {
		sort.Strings(modified)
		return IntegrityResult{
			Valid:         false,
			Detail:        "files have been modified",
			ModifiedFiles: modified,
		}
	}

	if combinedHash(a.current.FilesChecksum) != a.current.Hash {
		return IntegrityResult{
			Valid:  false,
			Detail: "version hash mismatch, possible tampering detected",
		}
	}
	return IntegrityResult{Valid: true}
}

// IsAuthorized gates fiscal operations on the version state: a version
// must be registered, authorized, unexpired, and not carry a rejected
// or expired homologation.
func (a *Auditor) IsAuthorized() Authorization {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.current == nil:
		return Authorization{Reason: "no version registered, system may be using unauthorized software"}
	case !a.current.IsAuthorized:
		return Authorization{Reason: "version is not authorized for fiscal operations"}
	case a.current.AuthorizationExpires != nil && time.Now().After(*a.current.AuthorizationExpires):
		return Authorization{Reason: "version authorization has expired, update required"}
	case a.current.HomologationStatus == HomologationRejected:
		return Authorization{Reason: "version homologation rejected by SENIAT"}
	case a.current.HomologationStatus == HomologationExpired:
		return Authorization{Reason: "version homologation has expired"}
	}
	return Authorization{Authorized: true}
}

// UpdateHomologationStatus records a SENIAT homologation decision.
// Authorization follows approval: only an approved version stays
// authorized.
func (a *Auditor) UpdateHomologationStatus(ctx context.Context, versionID string, status HomologationStatus, updatedBy string) (*Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil || a.current.ID != versionID {
		return nil, ErrVersionNotFound
	}

	prev := *a.current
	a.current.HomologationStatus = status
	a.current.IsAuthorized = status == HomologationApproved
	a.current.UpdatedAt = time.Now()

	if err := a.repo.Save(ctx, a.current); err != nil {
		*a.current = prev
		return nil, fmt.Errorf("persist version record: %w", err)
	}

	if a.ledger != nil {
		_, err := a.ledger.LogSecurityEvent(ctx, updatedBy, "suspicious_activity", "",
			map[string]interface{}{
				"action":     "homologation_updated",
				"version_id": versionID,
				"status":     status,
			})
		if err != nil {
			return nil, err
		}
	}

	return a.current, nil
}

// SetAuthorizationExpiration sets the date after which the version is
// no longer authorized.
func (a *Auditor) SetAuthorizationExpiration(ctx context.Context, versionID string, expiresAt time.Time, setBy string) (*Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil || a.current.ID != versionID {
		return nil, ErrVersionNotFound
	}

	prev := *a.current
	a.current.AuthorizationExpires = &expiresAt
	a.current.UpdatedAt = time.Now()

	if err := a.repo.Save(ctx, a.current); err != nil {
		*a.current = prev
		return nil, fmt.Errorf("persist version record: %w", err)
	}

	if a.ledger != nil {
		_, err := a.ledger.LogSecurityEvent(ctx, setBy, "suspicious_activity", "",
			map[string]interface{}{
				"action":     "authorization_expiration_set",
				"version_id": versionID,
				"expires_at": expiresAt.UTC().Format(time.RFC3339),
			})
		if err != nil {
			return nil, err
		}
	}

	return a.current, nil
}

// Current returns the registered version record, or nil.
func (a *Auditor) Current() *Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Report builds the SENIAT version declaration, or nil when no version
// is registered.
func (a *Auditor) Report() *VersionReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return nil
	}
	return &VersionReport{
		Version:              a.current.Version,
		BuildNumber:          a.current.BuildNumber,
		Hash:                 a.current.Hash,
		InstalledAt:          a.current.InstalledAt,
		InstalledBy:          a.current.InstalledBy,
		HomologationID:       a.current.HomologationID,
		HomologationStatus:   a.current.HomologationStatus,
		IsAuthorized:         a.current.IsAuthorized,
		AuthorizationExpires: a.current.AuthorizationExpires,
		FilesCount:           len(a.current.FilesChecksum),
	}
}

// combinedHash hashes the sorted name:checksum pairs joined by "|".
func combinedHash(checksums map[string]string) string {
	names := make([]string, 0, len(checksums))
	for name := range checksums {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + ":" + checksums[name]
	}
	return hashchain.HashString(strings.Join(pairs, "|"))
}
