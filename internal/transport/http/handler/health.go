package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

const readinessTimeout = 3 * time.Second

// Checker reports whether a dependency can serve requests.
type Checker func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks map[string]Checker
}

func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "ok"})
}

// Ready runs every dependency check concurrently and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check Checker) {
			defer wg.Done()
			results[i] = check(ctx)
		}(i, h.checks[name])
	}
	wg.Wait()

	env := ReadinessEnvelope{Success: true, Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if err := results[i]; err != nil {
			slog.Warn("readiness check failed", "dependency", name, "err", err)
			env.Success = false
			env.Checks[name] = "unavailable"
			continue
		}
		env.Checks[name] = "ok"
	}
	status := http.StatusOK
	if !env.Success {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, env)
}
