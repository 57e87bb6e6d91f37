package infra

import (
	"context"
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"
)

func TestMemoryStatsStore_AccumulatesByReason(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))

	events := []domain.StatsEvent{
		{Key: "1.2.3.4:/api/", Allowed: true, Method: "GET", Path: "/api/items", At: time.Now()},
		{Key: "1.2.3.4:/api/", Allowed: false, Reason: domain.ReasonRateLimit, Method: "GET", Path: "/api/items", At: time.Now()},
		{Key: "6.6.6.6", Allowed: false, Reason: domain.ReasonBlocklist, Method: "POST", Path: "/api/items", At: time.Now()},
		{Key: "6.6.6.6", Allowed: false, Reason: domain.ReasonBlocklist, Method: "POST", Path: "/api/items", At: time.Now()},
	}
	for _, ev := range events {
		if err := s.Record(context.Background(), ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	total := s.Total()
	if total.Allowed != 1 || total.Denied != 3 {
		t.Fatalf("expected total {1,3}, got %+v", total)
	}

	byReason := s.ByReason()
	if byReason[domain.ReasonRateLimit] != 1 || byReason[domain.ReasonBlocklist] != 2 {
		t.Fatalf("unexpected reason counters: %v", byReason)
	}

	byKey := s.ByKey()
	if byKey["6.6.6.6"].Denied != 2 {
		t.Fatalf("expected 2 denials for blocklisted key, got %+v", byKey["6.6.6.6"])
	}

	byRoute := s.ByRoute()
	if byRoute["GET /api/items"].Allowed != 1 || byRoute["GET /api/items"].Denied != 1 {
		t.Fatalf("unexpected route counters: %+v", byRoute["GET /api/items"])
	}
}
