package room

import (
	"context"
	"reflect"
	"testing"
	"time"

	"docroom/api/internal/auth"
	"docroom/api/internal/directory"
	"docroom/api/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistryReusesAdapterPerDocumentAndUser(t *testing.T) {
	resolver := rosterResolver(anna)
	registry := NewRegistry(resolver)
	claims := auth.Claims{"sub": "user_1"}

	first, reused := registry.Mount("doc-1", claims)
	if reused {
		t.Fatal("expected fresh adapter on first mount")
	}
	second, reused := registry.Mount("doc-1", claims)
	if !reused || second != first {
		t.Fatal("expected the same adapter on second mount")
	}
	other, _ := registry.Mount("doc-1", auth.Claims{"sub": "user_2"})
	if other == first {
		t.Fatal("expected a separate adapter for another user")
	}
	if registry.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", registry.Len())
	}

	mountReady(t, first)
	mountReady(t, other)
	if got := resolver.calls.Load(); got != 2 {
		t.Fatalf("expected one fetch per adapter, got %d", got)
	}
}

func TestRegistryUnmountRemounts(t *testing.T) {
	resolver := rosterResolver(anna)
	registry := NewRegistry(resolver)
	claims := auth.Claims{"sub": "user_1"}

	first, _ := registry.Mount("doc-1", claims)
	mountReady(t, first)
	if !registry.Unmount("doc-1", "user_1") {
		t.Fatal("expected Unmount() to report a mounted room")
	}
	if registry.Unmount("doc-1", "user_1") {
		t.Fatal("expected second Unmount() to be a no-op")
	}
	if !first.Unmounted() {
		t.Fatal("expected adapter to be torn down")
	}
	if _, ok := registry.Get("doc-1", auth.Claims{"sub": "user_1"}); ok {
		t.Fatal("expected no adapter after unmount")
	}

	second, reused := registry.Mount("doc-1", claims)
	if reused || second == first {
		t.Fatal("expected a new adapter after remount")
	}
	mountReady(t, second)
	if got := resolver.calls.Load(); got != 2 {
		t.Fatalf("expected remount to fetch again, got %d fetches", got)
	}
}

func TestRegistryRemountsWhenOrganizationChanges(t *testing.T) {
	rosters := map[string][]directory.UserSummary{"orgA": {anna}, "orgB": {bob}}
	resolver := &fakeResolver{
		resolveFn: func(_ context.Context, claims auth.Claims) directory.Result {
			org := claims.String("org_id")
			return directory.Result{OrganizationID: org, Users: rosters[org], Outcome: directory.OutcomeFetched}
		},
	}
	registry := NewRegistry(resolver)

	first, _ := registry.Mount("doc-1", auth.Claims{"sub": "u1", "org_id": "orgA"})
	mountReady(t, first)

	switched := auth.Claims{"sub": "u1", "org_id": "orgB"}
	if _, ok := registry.Get("doc-1", switched); ok {
		t.Fatal("expected no adapter for the new organization before remount")
	}
	second, reused := registry.Mount("doc-1", switched)
	if reused || second == first {
		t.Fatal("expected a new adapter after organization switch")
	}
	if !first.Unmounted() {
		t.Fatal("expected the previous organization's adapter to be torn down")
	}
	mountReady(t, second)
	if got := second.Roster(); !reflect.DeepEqual(got, []directory.UserSummary{bob}) {
		t.Fatalf("Roster() = %+v, want orgB roster", got)
	}
	if got, ok := registry.Get("doc-1", switched); !ok || got != second {
		t.Fatal("expected Get() to return the remounted adapter")
	}
	if registry.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", registry.Len())
	}
}

func TestRegistryEvictsIdleRooms(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := NewRegistry(rosterResolver(anna),
		WithIdleTTL(time.Minute),
		withClock(func() time.Time { return now }),
	)
	stale, _ := registry.Mount("doc-1", auth.Claims{"sub": "user_1"})

	now = now.Add(2 * time.Minute)
	if _, ok := registry.Get("doc-1", auth.Claims{"sub": "user_1"}); ok {
		t.Fatal("expected idle room to be evicted")
	}
	if !stale.Unmounted() {
		t.Fatal("expected evicted adapter to be unmounted")
	}
}

func TestRegistryGetRefreshesIdleTimer(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := NewRegistry(rosterResolver(anna),
		WithIdleTTL(time.Minute),
		withClock(func() time.Time { return now }),
	)
	registry.Mount("doc-1", auth.Claims{"sub": "user_1"})

	for i := 0; i < 3; i++ {
		now = now.Add(45 * time.Second)
		if _, ok := registry.Get("doc-1", auth.Claims{"sub": "user_1"}); !ok {
			t.Fatalf("expected room to stay mounted on access %d", i)
		}
	}
}

func TestRegistryCloseUnmountsAll(t *testing.T) {
	registry := NewRegistry(rosterResolver(anna), WithRegistryMetrics(metrics.New(prometheus.NewRegistry())))
	a, _ := registry.Mount("doc-1", auth.Claims{"sub": "user_1"})
	b, _ := registry.Mount("doc-2", auth.Claims{"sub": "user_1"})

	registry.Close()
	if !a.Unmounted() || !b.Unmounted() || registry.Len() != 0 {
		t.Fatal("expected every room to be unmounted")
	}
}
