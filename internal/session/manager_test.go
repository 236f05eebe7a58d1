package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voiceorder/internal/catalog"
	"voiceorder/internal/session"
)

func newManager(t *testing.T, opts session.Options) (*session.Manager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts.Now = clock.Now
	return session.NewManager(session.NewMemoryStore(clock.Now), opts), clock
}

func addLine(s *session.Session) error {
	s.Data.Orders = append(s.Data.Orders, session.OrderLine{
		CatalogID: 1, MenuName: "아메리카노", UnitPrice: 4000, Quantity: 2, Temperature: catalog.TempHot,
	})
	s.Data.TotalItems, s.Data.TotalPrice = 2, 8000
	s.Step = session.StepPackaging
	return nil
}

func TestManager_CreateAndGet(t *testing.T) {
	m, clock := newManager(t, session.Options{})
	ctx := context.Background()

	s, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Step != session.StepStarted {
		t.Errorf("new session step = %s, want started", s.Step)
	}
	if want := clock.Now().Add(30 * time.Minute); !s.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, want)
	}

	got, err := m.Get(ctx, s.ID, session.StepStarted)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("Get returned %s, want %s", got.ID, s.ID)
	}

	_, err = m.Get(ctx, s.ID, session.StepPackaging)
	if !errors.Is(err, session.ErrInvalidStep) {
		t.Errorf("Get with wrong step = %v, want ErrInvalidStep", err)
	}
	var stepErr *session.StepError
	if !errors.As(err, &stepErr) || stepErr.Current != session.StepStarted {
		t.Errorf("expected StepError with current=started, got %v", err)
	}

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Get missing = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_UpdateRefreshesTTLAndMerges(t *testing.T) {
	m, clock := newManager(t, session.Options{TTL: 10 * time.Minute})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	clock.Advance(8 * time.Minute)
	got, err := m.Update(ctx, s.ID, []session.Step{session.StepStarted}, addLine)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Version != s.Version+1 {
		t.Errorf("Version = %d, want %d", got.Version, s.Version+1)
	}
	if !got.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("UpdatedAt not stamped")
	}

	// Past the original expiry but inside the refreshed one.
	clock.Advance(8 * time.Minute)
	got, err = m.Get(ctx, s.ID, session.StepPackaging)
	if err != nil {
		t.Fatalf("Get after refresh: %v", err)
	}
	if len(got.Data.Orders) != 1 || got.Data.TotalPrice != 8000 {
		t.Errorf("data not persisted: %+v", got.Data)
	}

	// A later write keeps fields it does not touch.
	got, err = m.Update(ctx, s.ID, []session.Step{session.StepPackaging}, func(s *session.Session) error {
		s.Data.PackagingType = catalog.PackagingTakeout
		s.Step = session.StepPhoneChoice
		return nil
	})
	if err != nil {
		t.Fatalf("Update packaging: %v", err)
	}
	if len(got.Data.Orders) != 1 || got.Data.PackagingType != catalog.PackagingTakeout {
		t.Errorf("merge lost data: %+v", got.Data)
	}

	clock.Advance(11 * time.Minute)
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("expired Get = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_StepGating(t *testing.T) {
	m, _ := newManager(t, session.Options{})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	selectPackaging := func(s *session.Session) error {
		s.Data.PackagingType = catalog.PackagingTakeout
		s.Step = session.StepPhoneChoice
		return nil
	}

	_, err := m.Update(ctx, s.ID, []session.Step{session.StepPackaging}, selectPackaging)
	if !errors.Is(err, session.ErrInvalidStep) {
		t.Fatalf("packaging at started = %v, want ErrInvalidStep", err)
	}

	if _, err := m.Update(ctx, s.ID, []session.Step{session.StepStarted}, addLine); err != nil {
		t.Fatalf("submit order: %v", err)
	}
	got, err := m.Update(ctx, s.ID, []session.Step{session.StepPackaging}, selectPackaging)
	if err != nil {
		t.Fatalf("packaging at packaging: %v", err)
	}
	if got.Step != session.StepPhoneChoice {
		t.Errorf("step = %s, want phone_choice", got.Step)
	}
}

func TestManager_RejectsIllegalTransition(t *testing.T) {
	m, _ := newManager(t, session.Options{})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	_, err := m.Update(ctx, s.ID, nil, func(s *session.Session) error {
		s.Step = session.StepCompleted
		s.Data.OrderID = 7
		return nil
	})
	var stepErr *session.StepError
	if !errors.As(err, &stepErr) || stepErr.Target != session.StepCompleted {
		t.Fatalf("started -> completed = %v, want StepError", err)
	}
}

func TestManager_RejectsDataIllegalForStep(t *testing.T) {
	m, _ := newManager(t, session.Options{})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	_, err := m.Update(ctx, s.ID, nil, func(s *session.Session) error {
		s.Step = session.StepPackaging // no orders
		return nil
	})
	if !errors.Is(err, session.ErrUpdateFailed) {
		t.Fatalf("packaging without orders = %v, want ErrUpdateFailed", err)
	}
}

func TestManager_CompletedIsReadOnlyWithShortTTL(t *testing.T) {
	m, clock := newManager(t, session.Options{})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	steps := []func(*session.Session) error{
		addLine,
		func(s *session.Session) error {
			s.Data.PackagingType = catalog.PackagingDineIn
			s.Step = session.StepPhoneChoice
			return nil
		},
		func(s *session.Session) error {
			s.Data.OrderID = 42
			s.Step = session.StepCompleted
			return nil
		},
	}
	for i, fn := range steps {
		if _, err := m.Update(ctx, s.ID, nil, fn); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if _, err := m.Extend(ctx, s.ID); !errors.Is(err, session.ErrInvalidStep) {
		t.Errorf("write to completed = %v, want ErrInvalidStep", err)
	}

	clock.Advance(4 * time.Minute)
	if _, err := m.Get(ctx, s.ID, session.StepCompleted); err != nil {
		t.Fatalf("completed read-back: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("completed after 6m = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_FnErrorAbortsWrite(t *testing.T) {
	m, _ := newManager(t, session.Options{})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	boom := errors.New("nothing resolved")
	_, err := m.Update(ctx, s.ID, nil, func(s *session.Session) error {
		s.Data.TotalItems = 5
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update = %v, want fn error", err)
	}
	got, _ := m.Get(ctx, s.ID)
	if got.Data.TotalItems != 0 || got.Version != s.Version {
		t.Errorf("aborted write leaked: %+v", got)
	}
}

func TestManager_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	m, _ := newManager(t, session.Options{MaxRetries: 1000})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, s.ID, nil, func(s *session.Session) error {
				s.Data.TotalItems++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Update: %v", err)
		}
	}

	got, _ := m.Get(ctx, s.ID)
	if got.Data.TotalItems != writers {
		t.Errorf("TotalItems = %d, want %d", got.Data.TotalItems, writers)
	}
	if got.Version != s.Version+writers {
		t.Errorf("Version = %d, want %d", got.Version, s.Version+writers)
	}
}

type conflictingStore struct {
	*session.MemoryStore
}

func (c conflictingStore) Update(context.Context, *session.Session, int64, time.Duration) error {
	return session.ErrVersionConflict
}

func TestManager_GivesUpAfterRetries(t *testing.T) {
	clock := newFakeClock()
	m := session.NewManager(conflictingStore{session.NewMemoryStore(clock.Now)}, session.Options{Now: clock.Now, MaxRetries: 2})
	ctx := context.Background()
	s, _ := m.Create(ctx)

	_, err := m.Extend(ctx, s.ID)
	if !errors.Is(err, session.ErrUpdateFailed) || !errors.Is(err, session.ErrVersionConflict) {
		t.Errorf("Extend = %v, want ErrUpdateFailed wrapping ErrVersionConflict", err)
	}
}

func TestManager_DeleteAndStats(t *testing.T) {
	m, _ := newManager(t, session.Options{})
	ctx := context.Background()

	_, _ = m.Create(ctx)
	b, _ := m.Create(ctx)
	c, _ := m.Create(ctx)
	if _, err := m.Update(ctx, b.ID, nil, addLine); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := m.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	st, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 2 || st.ByStep[session.StepStarted] != 1 || st.ByStep[session.StepPackaging] != 1 {
		t.Errorf("Stats = %+v", st)
	}
	if _, ok := st.ByStep[session.StepCompleted]; !ok {
		t.Errorf("Stats should list every step")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to session.Step
		want     bool
	}{
		{session.StepStarted, session.StepPackaging, true},
		{session.StepStarted, session.StepPhoneChoice, false},
		{session.StepPackaging, session.StepPackaging, true},
		{session.StepPackaging, session.StepPhoneChoice, true},
		{session.StepPackaging, session.StepCompleted, false},
		{session.StepPhoneChoice, session.StepCompleted, true},
		{session.StepPhoneChoice, session.StepPackaging, true},
		{session.StepPhoneInput, session.StepPackaging, true},
		{session.StepPhoneInput, session.StepPhoneChoice, false},
		{session.StepCompleted, session.StepCompleted, false},
		{session.StepCompleted, session.StepPackaging, false},
	}
	for _, tt := range tests {
		if got := session.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
