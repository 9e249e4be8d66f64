package versionaudit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/farmasalud/fiscal/internal/domain/auditlog"
	"github.com/farmasalud/fiscal/internal/platform/hashchain"
	"github.com/farmasalud/fiscal/internal/platform/storage"
)

func newTestAuditor(t *testing.T) (*Auditor, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	ledger := auditlog.NewLedger(auditlog.NewKVRepository(store))
	return NewAuditor(NewKVRepository(store), ledger), store
}

var testFiles = map[string]string{
	"a.js": "x",
	"b.js": "y",
}

func registerVersion(t *testing.T, a *Auditor, homologationID string) *Record {
	t.Helper()
	rec, err := a.Register(context.Background(), RegisterInput{
		Version:        "2.1.0",
		BuildNumber:    "451",
		InstalledBy:    "u1",
		HomologationID: homologationID,
		Files:          testFiles,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return rec
}

func TestRegister(t *testing.T) {
	a, _ := newTestAuditor(t)
	rec := registerVersion(t, a, "")

	if rec.FilesChecksum["a.js"] != hashchain.HashString("x") {
		t.Errorf("unexpected checksum for a.js: %s", rec.FilesChecksum["a.js"])
	}
	wantCombined := hashchain.HashString(
		"a.js:" + hashchain.HashString("x") + "|b.js:" + hashchain.HashString("y"))
	if rec.Hash != wantCombined {
		t.Errorf("unexpected combined hash: %s", rec.Hash)
	}
	if rec.HomologationStatus != HomologationApproved || !rec.IsAuthorized {
		t.Errorf("version without homologation id must be approved: %+v", rec)
	}
}

func TestRegister_WithHomologationID(t *testing.T) {
	a, _ := newTestAuditor(t)
	rec := registerVersion(t, a, "HOM-2026-004")

	if rec.HomologationStatus != HomologationPending {
		t.Errorf("expected pending status, got %s", rec.HomologationStatus)
	}
	// Pending homologation does not block authorization by itself.
	if auth := a.IsAuthorized(); !auth.Authorized {
		t.Errorf("expected authorized while pending, got %+v", auth)
	}
}

func TestVerifyIntegrity(t *testing.T) {
	a, _ := newTestAuditor(t)

	if res := a.VerifyIntegrity(testFiles); res.Valid {
		t.Fatal("expected invalid with no version registered")
	}

	registerVersion(t, a, "")

	if res := a.VerifyIntegrity(testFiles); !res.Valid {
		t.Fatalf("expected valid for unmodified files: %+v", res)
	}

	// A changed file is reported by name.
	res := a.VerifyIntegrity(map[string]string{"a.js": "x2", "b.js": "y"})
	if res.Valid {
		t.Fatal("expected invalid for modified file")
	}
	if len(res.ModifiedFiles) != 1 || res.ModifiedFiles[0] != "a.js" {
		t.Errorf("expected [a.js] modified, got %v", res.ModifiedFiles)
	}

	// A missing file counts as modified.
	res = a.VerifyIntegrity(map[string]string{"a.js": "x"})
	if res.Valid || len(res.ModifiedFiles) != 1 || res.ModifiedFiles[0] != "b.js" {
		t.Errorf("expected [b.js] missing, got %+v", res)
	}
}

func TestIsAuthorized(t *testing.T) {
	a, _ := newTestAuditor(t)
	ctx := context.Background()

	if auth := a.IsAuthorized(); auth.Authorized {
		t.Fatal("expected unauthorized with no version registered")
	}

	rec := registerVersion(t, a, "HOM-2026-004")
	if auth := a.IsAuthorized(); !auth.Authorized {
		t.Fatalf("expected authorized after registration, got %+v", auth)
	}

	// Rejection removes authorization.
	if _, err := a.UpdateHomologationStatus(ctx, rec.ID, HomologationRejected, "u2"); err != nil {
		t.Fatalf("update homologation: %v", err)
	}
	if auth := a.IsAuthorized(); auth.Authorized {
		t.Error("expected unauthorized after rejection")
	}

	// Approval restores it.
	if _, err := a.UpdateHomologationStatus(ctx, rec.ID, HomologationApproved, "u2"); err != nil {
		t.Fatalf("update homologation: %v", err)
	}
	if auth := a.IsAuthorized(); !auth.Authorized {
		t.Errorf("expected authorized after approval, got %+v", auth)
	}

	// A past expiration blocks authorization.
	if _, err := a.SetAuthorizationExpiration(ctx, rec.ID, time.Now().Add(-time.Hour), "u2"); err != nil {
		t.Fatalf("set expiration: %v", err)
	}
	auth := a.IsAuthorized()
	if auth.Authorized {
		t.Error("expected unauthorized after expiration")
	}
	if auth.Reason == "" {
		t.Error("expected a reason for the denial")
	}
}

func TestUpdateHomologation_UnknownVersion(t *testing.T) {
	a, _ := newTestAuditor(t)
	registerVersion(t, a, "")

	_, err := a.UpdateHomologationStatus(context.Background(), "no-such-id", HomologationApproved, "u2")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestRegister_Supersedes(t *testing.T) {
	a, _ := newTestAuditor(t)

	registerVersion(t, a, "")
	rec2, err := a.Register(context.Background(), RegisterInput{
		Version:     "2.2.0",
		BuildNumber: "480",
		InstalledBy: "u1",
		Files:       map[string]string{"a.js": "x3"},
	})
	if err != nil {
		t.Fatalf("register second: %v", err)
	}

	if a.Current().ID != rec2.ID || a.Current().Version != "2.2.0" {
		t.Errorf("expected second registration to supersede, got %+v", a.Current())
	}
	if res := a.VerifyIntegrity(map[string]string{"a.js": "x3"}); !res.Valid {
		t.Errorf("expected new checksums in force: %+v", res)
	}
}

func TestLoad_RestoresRecord(t *testing.T) {
	a, store := newTestAuditor(t)
	rec := registerVersion(t, a, "")

	reloaded := NewAuditor(NewKVRepository(store), nil)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Current() == nil || reloaded.Current().ID != rec.ID {
		t.Fatalf("expected record restored, got %+v", reloaded.Current())
	}
	if res := reloaded.VerifyIntegrity(testFiles); !res.Valid {
		t.Errorf("expected integrity check to pass after reload: %+v", res)
	}
}

func TestRegister_WritesSecurityEvent(t *testing.T) {
	store := storage.NewMemory()
	ledger := auditlog.NewLedger(auditlog.NewKVRepository(store))
	a := NewAuditor(NewKVRepository(store), ledger)

	registerVersion(t, a, "")

	entries := ledger.ByAction("security.suspicious_activity", 10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
}

func TestReport(t *testing.T) {
	a, _ := newTestAuditor(t)

	if a.Report() != nil {
		t.Fatal("expected nil report with no version")
	}

	registerVersion(t, a, "HOM-2026-004")
	report := a.Report()
	if report == nil {
		t.Fatal("expected a report")
	}
	if report.Version != "2.1.0" || report.FilesCount != 2 || report.HomologationID != "HOM-2026-004" {
		t.Errorf("unexpected report: %+v", report)
	}
}
