package entitlements

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "inventario/pkg/errors"
	"inventario/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text"})
}

func TestStaticGate_RequirePro(t *testing.T) {
	free := NewStaticGate(FallbackLimits())
	err := free.RequirePro(context.Background(), "hidden objects")
	if err == nil {
		t.Fatal("expected entitlement error on free plan")
	}
	if !apperrors.HasCode(err, apperrors.CodeEntitlement) {
		t.Fatalf("expected ENTITLEMENT_ERROR, got %v", err)
	}

	pro := NewStaticGate(Limits{Pro: true})
	if err := pro.RequirePro(context.Background(), "hidden objects"); err != nil {
		t.Fatalf("expected pro plan to pass, got %v", err)
	}
}

func TestHTTPGate_FetchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(Limits{
			Pro:             true,
			MaxObjects:      50,
			PeriodicEnabled: true,
			PeriodicMax:     12,
			PeriodicGapDays: 30,
		})
	}))
	defer srv.Close()

	gate := NewHTTPGate(srv.URL, time.Minute, testLogger())

	limits := gate.Limits(context.Background())
	if !limits.Pro || limits.MaxObjects != 50 {
		t.Fatalf("unexpected limits: %+v", limits)
	}

	gate.Limits(context.Background())
	gate.Limits(context.Background())
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call within the refresh window, got %d", got)
	}
}

func TestHTTPGate_FallsBackWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	gate := NewHTTPGate(srv.URL, time.Minute, testLogger())

	limits := gate.Limits(context.Background())
	if limits != FallbackLimits() {
		t.Fatalf("expected fallback limits, got %+v", limits)
	}
}

func TestHTTPGate_ServesStaleCacheOnFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Limits{Pro: true, MaxObjects: 9})
	}))
	defer srv.Close()

	gate := NewHTTPGate(srv.URL, time.Nanosecond, testLogger())

	first := gate.Limits(context.Background())
	if first.MaxObjects != 9 {
		t.Fatalf("unexpected first fetch: %+v", first)
	}

	fail.Store(true)
	time.Sleep(time.Millisecond)

	stale := gate.Limits(context.Background())
	if stale.MaxObjects != 9 {
		t.Fatalf("expected stale cache to be served, got %+v", stale)
	}
}
