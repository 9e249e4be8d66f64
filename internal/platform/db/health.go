package db

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection-pool section of the readiness response.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Stats snapshots the pool counters.
func Stats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// SubsystemCheck probes one fiscal subsystem for the readiness
// endpoint: the audit chain, the digital-emission gate, the version
// authorization. A failing probe degrades the response without taking
// the endpoint down.
type SubsystemCheck struct {
	Name  string
	Probe func() (ok bool, detail string)
}

// HealthHandler reports database reachability, pool counters and the
// state of each registered fiscal subsystem. An unreachable database is
// a 503; a failing subsystem is "degraded" with a 200, since the server
// can still answer reads.
func HealthHandler(pool *pgxpool.Pool, checks ...SubsystemCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		pingErr := pool.Ping(ctx)
		code, body := healthReport(Stats(pool), pingErr, checks)
		return c.JSON(code, body)
	}
}

func healthReport(stats *PoolStats, pingErr error, checks []SubsystemCheck) (int, map[string]interface{}) {
	subsystems := make(map[string]interface{}, len(checks))
	degraded := false
	for _, chk := range checks {
		ok, detail := chk.Probe()
		entry := map[string]interface{}{"ok": ok}
		if detail != "" {
			entry["detail"] = detail
		}
		subsystems[chk.Name] = entry
		if !ok {
			degraded = true
		}
	}

	body := map[string]interface{}{"pool": stats}
	if len(subsystems) > 0 {
		body["subsystems"] = subsystems
	}

	if pingErr != nil {
		stats.Healthy = false
		body["status"] = "unhealthy"
		body["error"] = pingErr.Error()
		return http.StatusServiceUnavailable, body
	}
	if degraded {
		body["status"] = "degraded"
		return http.StatusOK, body
	}
	body["status"] = "healthy"
	return http.StatusOK, body
}
