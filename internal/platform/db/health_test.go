package db

import (
	"errors"
	"net/http"
	"testing"
)

func testStats() *PoolStats {
	return &PoolStats{
		TotalConns:      4,
		IdleConns:       3,
		AcquiredConns:   1,
		MaxConns:        10,
		AcquireCount:    20,
		AcquireDuration: "150ms",
		Healthy:         true,
	}
}

func TestHealthReport_Healthy(t *testing.T) {
	checks := []SubsystemCheck{
		{Name: "audit_chain", Probe: func() (bool, string) { return true, "" }},
		{Name: "digital_emission", Probe: func() (bool, string) { return true, "" }},
	}

	code, body := healthReport(testStats(), nil, checks)

	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", body["status"])
	}
	subsystems := body["subsystems"].(map[string]interface{})
	chain := subsystems["audit_chain"].(map[string]interface{})
	if chain["ok"] != true {
		t.Error("expected audit_chain check to report ok")
	}
}

func TestHealthReport_DegradedSubsystem(t *testing.T) {
	checks := []SubsystemCheck{
		{Name: "audit_chain", Probe: func() (bool, string) { return true, "" }},
		{Name: "digital_emission", Probe: func() (bool, string) {
			return false, "contingency session active"
		}},
	}

	code, body := healthReport(testStats(), nil, checks)

	if code != http.StatusOK {
		t.Fatalf("expected 200 for degraded state, got %d", code)
	}
	if body["status"] != "degraded" {
		t.Errorf("expected status degraded, got %v", body["status"])
	}
	subsystems := body["subsystems"].(map[string]interface{})
	gate := subsystems["digital_emission"].(map[string]interface{})
	if gate["ok"] != false {
		t.Error("expected digital_emission check to report not ok")
	}
	if gate["detail"] != "contingency session active" {
		t.Errorf("expected gate detail, got %v", gate["detail"])
	}
}

func TestHealthReport_DatabaseUnreachable(t *testing.T) {
	stats := testStats()
	checks := []SubsystemCheck{
		{Name: "audit_chain", Probe: func() (bool, string) { return true, "" }},
	}

	code, body := healthReport(stats, errors.New("connection refused"), checks)

	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("expected status unhealthy, got %v", body["status"])
	}
	if body["error"] != "connection refused" {
		t.Errorf("expected ping error in body, got %v", body["error"])
	}
	if stats.Healthy {
		t.Error("expected pool stats marked unhealthy when ping fails")
	}
}

func TestHealthReport_NoChecks(t *testing.T) {
	code, body := healthReport(testStats(), nil, nil)

	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if _, present := body["subsystems"]; present {
		t.Error("expected no subsystems section when no checks are registered")
	}
	pool := body["pool"].(*PoolStats)
	if pool.TotalConns != 4 {
		t.Errorf("expected pool stats passed through, got %+v", pool)
	}
}
