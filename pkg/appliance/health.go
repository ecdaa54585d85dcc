package appliance

import (
	"context"
	"log/slog"
	"time"
)

// MaxHeartbeatAge is how old the last update may be for the appliance to
// count as healthy.
const MaxHeartbeatAge = 100 * time.Second

// HealthChecker evaluates the appliance heartbeat with the clock of its
// service.
type HealthChecker struct {
	service *ApplianceService
}

func NewHealthChecker(service *ApplianceService) *HealthChecker {
	return &HealthChecker{service: service}
}

// CheckHealth reports OK when the last heartbeat is between zero and 100
// whole seconds old. A missing last update counts as the epoch. Lookup
// failures, including ErrApplianceNotFound, are returned with HealthFail.
func (h *HealthChecker) CheckHealth(ctx context.Context) (HealthStatus, time.Time, error) {
	a, err := h.service.GetAppliance(ctx)
	if err != nil {
		slog.Error("Failed to read appliance for health check", "err", err)
		return HealthFail, time.Time{}, err
	}
	lastUpdate := time.Unix(0, 0)
	if a.LastUpdate != nil {
		lastUpdate = *a.LastUpdate
	}

	return Status(h.service.now(), lastUpdate), lastUpdate, nil
}

// Status applies the heartbeat age rule to lastUpdate. The age is truncated
// to whole seconds.
func Status(now, lastUpdate time.Time) HealthStatus {
	seconds := now.Sub(lastUpdate) / time.Second
	if seconds >= 0 && seconds < MaxHeartbeatAge/time.Second {
		slog.Debug("Appliance health", "lastUpdate", lastUpdate, "status", HealthOK)
		return HealthOK
	}
	slog.Debug("Appliance health", "lastUpdate", lastUpdate, "status", HealthFail)
	return HealthFail
}
