// Package sessiontest holds a behavioural suite every session.Store
// implementation runs from its own tests.
package sessiontest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"voiceorder/internal/catalog"
	"voiceorder/internal/session"
)

// Factory returns a fresh, empty store plus a function that advances the
// store's notion of time. advance may be nil when the store uses real TTLs
// that the caller fast-forwards some other way.
type Factory func(t *testing.T) (store session.Store, advance func(time.Duration))

func fixture(id string, now time.Time) *session.Session {
	return &session.Session{
		ID:        id,
		Step:      session.StepPackaging,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
		Version:   1,
		Data: session.Data{
			Orders: []session.OrderLine{{
				CatalogID: 1, MenuName: "아메리카노", UnitPrice: 4000, Quantity: 2,
				Temperature: catalog.TempHot, OriginalText: "아메리카노 2개", Popular: true,
			}},
			TotalItems: 2,
			TotalPrice: 8000,
		},
	}
}

// Run exercises create, get, compare-and-swap update, delete, list and
// expiry against the store.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		st, _ := newStore(t)
		s := fixture("rt", now)
		if err := st.Create(ctx, s, time.Hour); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := st.Get(ctx, "rt")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if diff := cmp.Diff(s, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		st, _ := newStore(t)
		if err := st.Create(ctx, fixture("dup", now), time.Hour); err != nil {
			t.Fatalf("Create: %v", err)
		}
		err := st.Create(ctx, fixture("dup", now), time.Hour)
		if !errors.Is(err, session.ErrVersionConflict) {
			t.Errorf("duplicate Create = %v, want ErrVersionConflict", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		st, _ := newStore(t)
		if _, err := st.Get(ctx, "nope"); !errors.Is(err, session.ErrSessionNotFound) {
			t.Errorf("Get missing = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("UpdateCompareAndSwap", func(t *testing.T) {
		st, _ := newStore(t)
		s := fixture("cas", now)
		if err := st.Create(ctx, s, time.Hour); err != nil {
			t.Fatalf("Create: %v", err)
		}

		next := s.Clone()
		next.Version = 2
		next.Data.PackagingType = catalog.PackagingTakeout
		next.Step = session.StepPhoneChoice
		if err := st.Update(ctx, next, 1, time.Hour); err != nil {
			t.Fatalf("Update: %v", err)
		}

		stale := s.Clone()
		stale.Version = 2
		stale.Data.TotalItems = 99
		if err := st.Update(ctx, stale, 1, time.Hour); !errors.Is(err, session.ErrVersionConflict) {
			t.Fatalf("stale Update = %v, want ErrVersionConflict", err)
		}

		got, err := st.Get(ctx, "cas")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if diff := cmp.Diff(next, got); diff != "" {
			t.Errorf("after CAS (-want +got):\n%s", diff)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		st, _ := newStore(t)
		err := st.Update(ctx, fixture("gone", now), 0, time.Hour)
		if !errors.Is(err, session.ErrSessionNotFound) {
			t.Errorf("Update missing = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("DeleteAndList", func(t *testing.T) {
		st, _ := newStore(t)
		for _, id := range []string{"a", "b", "c"} {
			if err := st.Create(ctx, fixture(id, now), time.Hour); err != nil {
				t.Fatalf("Create %s: %v", id, err)
			}
		}
		if err := st.Delete(ctx, "b"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := st.Delete(ctx, "b"); err != nil {
			t.Fatalf("second Delete: %v", err)
		}
		list, err := st.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		ids := map[string]bool{}
		for _, s := range list {
			ids[s.ID] = true
		}
		if len(ids) != 2 || !ids["a"] || !ids["c"] {
			t.Errorf("List ids = %v, want a and c", ids)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		st, advance := newStore(t)
		if advance == nil {
			t.Skip("store has no controllable clock")
		}
		if err := st.Create(ctx, fixture("ttl", now), time.Minute); err != nil {
			t.Fatalf("Create: %v", err)
		}
		advance(30 * time.Second)
		if _, err := st.Get(ctx, "ttl"); err != nil {
			t.Fatalf("Get before expiry: %v", err)
		}
		advance(31 * time.Second)
		if _, err := st.Get(ctx, "ttl"); !errors.Is(err, session.ErrSessionNotFound) {
			t.Errorf("Get after expiry = %v, want ErrSessionNotFound", err)
		}
		list, err := st.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("List after expiry has %d sessions", len(list))
		}
	})
}
