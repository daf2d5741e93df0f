// Package entitlements exposes the query surface of the licensing service:
// plan limits and feature flags. The gate never blocks or fails the write
// path; when the service is unreachable the last known snapshot is used, and
// with no snapshot at all the restrictive fallback limits apply.
package entitlements

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"inventario/pkg/client"
	apperrors "inventario/pkg/errors"
	"inventario/pkg/logger"
)

// Limits are the plan ceilings consumed by the core. PeriodicMax of zero
// means an unlimited series length; PeriodicGapDays caps the spacing between
// occurrences.
type Limits struct {
	Pro             bool `json:"pro"`
	MaxObjects      int  `json:"max_objects"`
	MaxProperties   int  `json:"max_properties"`
	AllowHidden     bool `json:"allow_hidden"`
	PeriodicEnabled bool `json:"periodic_enabled"`
	PeriodicMax     int  `json:"periodic_max"`
	PeriodicGapDays int  `json:"periodic_gap_days"`
}

// FallbackLimits mirror the free tier and apply whenever no entitlement
// snapshot is available.
func FallbackLimits() Limits {
	return Limits{
		Pro:             false,
		MaxObjects:      1,
		MaxProperties:   3,
		AllowHidden:     false,
		PeriodicEnabled: false,
		PeriodicMax:     0,
		PeriodicGapDays: 7,
	}
}

type Gate interface {
	Limits(ctx context.Context) Limits
	IsPro(ctx context.Context) bool
	RequirePro(ctx context.Context, feature string) error
}

// staticGate serves fixed limits. Used when no entitlement service is
// configured and as the building block for tests.
type staticGate struct {
	limits Limits
}

func NewStaticGate(limits Limits) Gate {
	return &staticGate{limits: limits}
}

func (g *staticGate) Limits(_ context.Context) Limits {
	return g.limits
}

func (g *staticGate) IsPro(ctx context.Context) bool {
	return g.Limits(ctx).Pro
}

func (g *staticGate) RequirePro(ctx context.Context, feature string) error {
	return requirePro(g.Limits(ctx), feature)
}

// httpGate fetches limits from the entitlement service and caches them for a
// refresh interval.
type httpGate struct {
	client  *client.HttpClient
	log     *logger.Logger
	refresh time.Duration

	mu        sync.RWMutex
	cached    Limits
	hasCache  bool
	fetchedAt time.Time
}

func NewHTTPGate(baseURL string, refresh time.Duration, log *logger.Logger) Gate {
	return &httpGate{
		client:  client.NewHttpClient(baseURL),
		log:     log,
		refresh: refresh,
	}
}

func (g *httpGate) Limits(ctx context.Context) Limits {
	g.mu.RLock()
	if g.hasCache && time.Since(g.fetchedAt) < g.refresh {
		limits := g.cached
		g.mu.RUnlock()
		return limits
	}
	g.mu.RUnlock()

	limits, err := g.fetch(ctx)
	if err != nil {
		g.log.Warn("Entitlement fetch failed, using last known limits", "error", err)
		g.mu.RLock()
		defer g.mu.RUnlock()
		if g.hasCache {
			return g.cached
		}
		return FallbackLimits()
	}

	g.mu.Lock()
	g.cached = limits
	g.hasCache = true
	g.fetchedAt = time.Now()
	g.mu.Unlock()

	return limits
}

func (g *httpGate) fetch(ctx context.Context) (Limits, error) {
	resp, err := g.client.GET(ctx, "/v1/limits")
	if err != nil {
		return Limits{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Limits{}, fmt.Errorf("entitlement service returned status %d", resp.StatusCode)
	}

	var limits Limits
	if err := resp.DecodeJSON(&limits); err != nil {
		return Limits{}, fmt.Errorf("failed to decode entitlement response: %w", err)
	}
	return limits, nil
}

func (g *httpGate) IsPro(ctx context.Context) bool {
	return g.Limits(ctx).Pro
}

func (g *httpGate) RequirePro(ctx context.Context, feature string) error {
	return requirePro(g.Limits(ctx), feature)
}

func requirePro(limits Limits, feature string) error {
	if limits.Pro {
		return nil
	}
	return apperrors.Entitlement(fmt.Sprintf("%s requires an upgraded plan", feature))
}
