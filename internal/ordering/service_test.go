package ordering_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceorder/internal/catalog"
	"voiceorder/internal/embedding"
	"voiceorder/internal/ordering"
	"voiceorder/internal/parse"
	"voiceorder/internal/patterns"
	"voiceorder/internal/resolve"
	"voiceorder/internal/session"
	"voiceorder/internal/similarity"
	"voiceorder/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type harness struct {
	svc      *ordering.Service
	sessions *session.Manager
	index    *catalog.MemoryIndex
	ledger   *ordering.MemoryLedger
	clock    *clock
}

type harnessConfig struct {
	opts     ordering.Options
	patterns *patterns.Cache
	store  func(now func() time.Time) session.Store
	ledger ordering.Ledger
}

func newHarness(t *testing.T, hc harnessConfig) *harness {
	t.Helper()
	ctx := context.Background()

	pc := hc.patterns
	if pc == nil {
		var err error
		pc, err = patterns.NewStaticCache(patterns.Defaults())
		require.NoError(t, err)
	}

	engine := embedding.NewHashEngine(256)
	cache, err := embedding.NewCache(engine, 1024, 32)
	require.NoError(t, err)

	idx := catalog.NewMemoryIndex()
	require.NoError(t, catalog.Seed(ctx, idx, engine, catalog.DefaultSeed()))

	scorer := similarity.NewScorer(cache, func() float64 { return pc.Current().Config.Thresholds.VectorWeight })

	clk := &clock{now: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)}
	var st session.Store = session.NewMemoryStore(clk.Now)
	if hc.store != nil {
		st = hc.store(clk.Now)
	}
	mem := ordering.NewMemoryLedger()
	var ledger ordering.Ledger = mem
	if hc.ledger != nil {
		ledger = hc.ledger
	}

	mgr := session.NewManager(st, session.Options{MaxRetries: 50, Now: clk.Now})
	hc.opts.Now = clk.Now
	svc := ordering.NewService(ordering.Deps{
		Sessions:  mgr,
		Parser:    parse.New(pc),
		Menu:      resolve.NewMenuResolver(pc, idx, cache, scorer, resolve.MenuOptions{}),
		Packaging: resolve.NewPackagingResolver(pc, idx, cache, scorer, 3),
		Scorer:    scorer,
		Ledger:    ledger,
	}, hc.opts)

	return &harness{svc: svc, sessions: mgr, index: idx, ledger: mem, clock: clk}
}

func (h *harness) start(t *testing.T) string {
	t.Helper()
	s, err := h.svc.Start(context.Background())
	require.NoError(t, err)
	return s.ID
}

func TestSubmitOrder_CapturesPackagingAndTotals(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	res, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개 포장")
	require.NoError(t, err)
	require.Len(t, res.Session.Data.Orders, 1)

	l := res.Session.Data.Orders[0]
	assert.Equal(t, int64(1), l.CatalogID)
	assert.Equal(t, "아메리카노", l.MenuName)
	assert.Equal(t, catalog.TempHot, l.Temperature)
	assert.Equal(t, 2, l.Quantity)
	assert.Equal(t, 8000, res.Session.Data.TotalPrice)
	assert.Equal(t, 2, res.Session.Data.TotalItems)
	assert.Equal(t, catalog.PackagingTakeout, res.Session.Data.PackagingType)
	assert.Equal(t, session.StepPackaging, res.Session.Step)
	require.NotNil(t, res.Packaging)
	assert.Equal(t, resolve.MethodKeyword, res.Packaging.Method)
	assert.True(t, strings.HasPrefix(res.Message, "다음 주문이 접수되었습니다: '따뜻한 아메리카노' 2개"))
}

func TestSubmitOrder_LenientFailures(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	res, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개, asdkfjasldkf 3개")
	require.NoError(t, err)
	assert.Len(t, res.Session.Data.Orders, 1)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], ordering.ErrNotFound)
	assert.Contains(t, res.Message, "다음 주문에 문제가 있습니다:")
}

func TestSubmitOrder_NothingResolvesLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.SubmitOrder(ctx, id, "asdkfjasldkf 3개")
	require.Error(t, err)
	assert.ErrorIs(t, err, ordering.ErrNotFound)
	var se *ordering.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Failures, 1)

	s, err := h.svc.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StepStarted, s.Step)
	assert.Equal(t, int64(1), s.Version)
}

func TestSubmitOrder_QuantityMissing(t *testing.T) {
	ctx := context.Background()

	strict := newHarness(t, harnessConfig{})
	id := strict.start(t)
	_, err := strict.svc.SubmitOrder(ctx, id, "아메리카노")
	require.Error(t, err)
	assert.ErrorIs(t, err, ordering.ErrParsingFailed)
	var se *ordering.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, parse.FailureQuantityMissing, se.Failures[0].Kind)

	lenient := newHarness(t, harnessConfig{opts: ordering.Options{DefaultQuantityWhenMissing: true}})
	id = lenient.start(t)
	res, err := lenient.svc.SubmitOrder(ctx, id, "아메리카노")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Session.Data.Orders[0].Quantity)
}

func TestSubmitOrder_MissingQuantityUsesPatternDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, patterns.QuantityFile),
		[]byte(`{"default_quantity": 2}`), 0o644))
	pc, err := patterns.NewCache(dir)
	require.NoError(t, err)
	require.Equal(t, 2, pc.Current().Config.DefaultQuantity)

	h := newHarness(t, harnessConfig{
		patterns: pc,
		opts:     ordering.Options{DefaultQuantityWhenMissing: true},
	})
	ctx := context.Background()
	id := h.start(t)

	res, err := h.svc.SubmitOrder(ctx, id, "아메리카노")
	require.NoError(t, err)
	require.Len(t, res.Session.Data.Orders, 1)
	assert.Equal(t, 2, res.Session.Data.Orders[0].Quantity)
	assert.Equal(t, 8000, res.Session.Data.TotalPrice)
}

func TestSubmitOrder_ZeroQuantityIsRejected(t *testing.T) {
	h := newHarness(t, harnessConfig{opts: ordering.Options{DefaultQuantityWhenMissing: true}})
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.SubmitOrder(ctx, id, "아메리카노 0개")
	require.Error(t, err)
	assert.ErrorIs(t, err, ordering.ErrParsingFailed)
	var se *ordering.SubmitError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Failures, 1)
	assert.Equal(t, parse.FailureQuantityInvalid, se.Failures[0].Kind)
	assert.Contains(t, err.Error(), "수량은 1 이상이어야 합니다")

	s, err := h.svc.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StepStarted, s.Step)
}

func TestSubmitOrder_BackendFailure(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	boom := errors.New("index offline")
	h.index.FailSearchesWith(boom)

	_, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개")
	require.Error(t, err)
	assert.ErrorIs(t, err, ordering.ErrNotFound)
	assert.ErrorIs(t, err, boom)
}

func TestSubmitOrder_WrongStep(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개")
	require.NoError(t, err)
	_, err = h.svc.SubmitOrder(ctx, id, "카페라떼 1개")
	assert.ErrorIs(t, err, session.ErrInvalidStep)

	_, err = h.svc.SubmitOrder(ctx, "missing", "카페라떼 1개")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestAddItems_MergesIntoExistingLines(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개")
	require.NoError(t, err)
	res, err := h.svc.AddItems(ctx, id, "아메리카노 1개, 치즈케이크 1개")
	require.NoError(t, err)

	orders := res.Session.Data.Orders
	require.Len(t, orders, 2)
	assert.Equal(t, 3, orders[0].Quantity)
	assert.Contains(t, orders[0].OriginalText, ", ")
	assert.Equal(t, "치즈케이크", orders[1].MenuName)
	assert.Equal(t, 3*4000+5500, res.Session.Data.TotalPrice)
	assert.True(t, strings.HasPrefix(res.Message, "다음 메뉴가 추가되었습니다:"))
}

func TestAddItems_ConcurrentWritersBothLand(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)
	_, err := h.svc.SubmitOrder(ctx, id, "카페라떼 1개")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.AddItems(ctx, id, "카페라떼 1개")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := h.svc.Status(ctx, id)
	require.NoError(t, err)
	require.Len(t, s.Data.Orders, 1)
	assert.Equal(t, 5, s.Data.Orders[0].Quantity)
	assert.Equal(t, int64(6), s.Version)
}

func TestRemoveItem(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)
	_, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개, 치즈케이크 1개")
	require.NoError(t, err)

	_, err = h.svc.RemoveItem(ctx, id, "녹차 라떼")
	assert.ErrorIs(t, err, ordering.ErrNotFound)

	res, err := h.svc.RemoveItem(ctx, id, "치즈케이크")
	require.NoError(t, err)
	assert.Equal(t, "'치즈케이크'이(가) 주문에서 삭제되었습니다.", res.Message)
	assert.Len(t, res.Session.Data.Orders, 1)
	assert.Equal(t, 8000, res.Session.Data.TotalPrice)

	_, err = h.svc.RemoveItem(ctx, id, "아메리카노")
	assert.ErrorIs(t, err, ordering.ErrParsingFailed)
	s, err := h.svc.Status(ctx, id)
	require.NoError(t, err)
	assert.Len(t, s.Data.Orders, 1, "the last line stays")
}

func TestReplaceOrders(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)
	first, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개")
	require.NoError(t, err)

	same, err := h.svc.ReplaceOrders(ctx, id, []ordering.ItemRequest{{MenuText: "아메리카노", Quantity: 2}})
	require.NoError(t, err)
	assert.False(t, same.Changes.HasChanges())
	assert.Equal(t, first.Session.Version, same.Session.Version, "no write without changes")

	res, err := h.svc.ReplaceOrders(ctx, id, []ordering.ItemRequest{
		{MenuText: "아메리카노", Quantity: 3},
		{MenuText: "티라미수", Quantity: 1},
	})
	require.NoError(t, err)
	assert.True(t, res.Changes.HasChanges())
	assert.Len(t, res.Changes.Added, 1)
	assert.Len(t, res.Changes.Changed, 1)
	assert.Equal(t, 3*4000+5500, res.Session.Data.TotalPrice)

	_, err = h.svc.ReplaceOrders(ctx, id, []ordering.ItemRequest{{MenuText: "아메리카노", Quantity: 0}})
	assert.ErrorIs(t, err, ordering.ErrParsingFailed)
	_, err = h.svc.ReplaceOrders(ctx, id, []ordering.ItemRequest{{MenuText: "asdkfjasldkf", Quantity: 1}})
	assert.ErrorIs(t, err, ordering.ErrNotFound)
	_, err = h.svc.ReplaceOrders(ctx, id, nil)
	assert.ErrorIs(t, err, ordering.ErrParsingFailed)
}

func TestUpdateTemperature(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)
	_, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개")
	require.NoError(t, err)

	res, err := h.svc.UpdateTemperature(ctx, id, "아메리카노", catalog.TempIce)
	require.NoError(t, err)
	require.Len(t, res.Session.Data.Orders, 1)
	assert.Equal(t, int64(2), res.Session.Data.Orders[0].CatalogID)
	assert.Equal(t, catalog.TempIce, res.Session.Data.Orders[0].Temperature)

	_, err = h.svc.UpdateTemperature(ctx, id, "레몬에이드", catalog.TempHot)
	assert.ErrorIs(t, err, ordering.ErrNotFound)
	_, err = h.svc.UpdateTemperature(ctx, id, "카페라떼", catalog.TempIce)
	assert.ErrorIs(t, err, ordering.ErrNotFound, "variant exists but is not in the order")
}

func TestSelectPackaging(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, harnessConfig{})
	id := h.start(t)
	_, err := h.svc.SubmitOrder(ctx, id, "카페라떼 1개")
	require.NoError(t, err)

	_, err = h.svc.SelectPackaging(ctx, id, "qwerty")
	assert.ErrorIs(t, err, ordering.ErrNotFound)

	res, err := h.svc.SelectPackaging(ctx, id, "매장에서 먹고 갈게요")
	require.NoError(t, err)
	assert.Equal(t, catalog.PackagingDineIn, res.Session.Data.PackagingType)
	assert.Equal(t, session.StepPhoneChoice, res.Session.Step)

	fallback := newHarness(t, harnessConfig{opts: ordering.Options{PackagingFallback: catalog.PackagingTakeout}})
	id = fallback.start(t)
	_, err = fallback.svc.SubmitOrder(ctx, id, "카페라떼 1개")
	require.NoError(t, err)
	res, err = fallback.svc.SelectPackaging(ctx, id, "qwerty")
	require.NoError(t, err)
	assert.Equal(t, catalog.PackagingTakeout, res.Session.Data.PackagingType)
	assert.False(t, res.Packaging.OK())
}

func TestFullConversation_DeclinePhone(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개 포장")
	require.NoError(t, err)
	_, err = h.svc.SelectPackaging(ctx, id, "")
	require.NoError(t, err)

	res, err := h.svc.ChoosePhone(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, session.StepCompleted, res.Session.Step)
	assert.Equal(t, int64(1), res.Session.Data.OrderID)
	require.NotNil(t, res.Session.Data.SavedAt)
	assert.Equal(t, h.clock.Now().Add(5*time.Minute), res.Session.ExpiresAt)

	orders := h.ledger.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, 8000, orders[0].TotalPrice)
	assert.Equal(t, catalog.PackagingTakeout, orders[0].PackagingType)
	assert.Empty(t, orders[0].PhoneNumber)

	_, err = h.svc.AddItems(ctx, id, "카페라떼 1개")
	assert.ErrorIs(t, err, session.ErrInvalidStep, "completed sessions are read-only")
}

func TestFullConversation_WithPhone(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.SubmitOrder(ctx, id, "카페라떼 1개")
	require.NoError(t, err)
	_, err = h.svc.SelectPackaging(ctx, id, "포장")
	require.NoError(t, err)

	_, err = h.svc.AnswerPhoneChoice(ctx, id, "글쎄")
	assert.ErrorIs(t, err, ordering.ErrParsingFailed)

	res, err := h.svc.AnswerPhoneChoice(ctx, id, "네")
	require.NoError(t, err)
	assert.Equal(t, session.StepPhoneInput, res.Session.Step)
	assert.True(t, res.Session.Data.WantsPhone)

	_, err = h.svc.SubmitPhone(ctx, id, "02-123-4567")
	assert.ErrorIs(t, err, ordering.ErrParsingFailed)

	res, err = h.svc.SubmitPhone(ctx, id, "01012345678")
	require.NoError(t, err)
	assert.Equal(t, session.StepCompleted, res.Session.Step)
	assert.Equal(t, "010-1234-5678", res.Session.Data.PhoneNumber)
	assert.Equal(t, "010-1234-5678", h.ledger.Orders()[0].PhoneNumber)
}

func TestFinalize_LedgerFailureKeepsSessionOpen(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)
	_, err := h.svc.SubmitOrder(ctx, id, "카페라떼 1개 포장")
	require.NoError(t, err)
	_, err = h.svc.SelectPackaging(ctx, id, "")
	require.NoError(t, err)

	boom := errors.New("disk full")
	h.ledger.FailWith(boom)
	_, err = h.svc.ChoosePhone(ctx, id, false)
	assert.ErrorIs(t, err, boom)

	s, err := h.svc.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StepPhoneChoice, s.Step)
	assert.Zero(t, s.Data.OrderID)

	h.ledger.FailWith(nil)
	res, err := h.svc.ChoosePhone(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, session.StepCompleted, res.Session.Step)
}

func TestRetry_ClearsPackagingAndPhone(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)
	_, err := h.svc.SubmitOrder(ctx, id, "카페라떼 1개")
	require.NoError(t, err)
	_, err = h.svc.SelectPackaging(ctx, id, "포장")
	require.NoError(t, err)
	_, err = h.svc.ChoosePhone(ctx, id, true)
	require.NoError(t, err)

	res, err := h.svc.Retry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StepPackaging, res.Session.Step)
	assert.Empty(t, res.Session.Data.PackagingType)
	assert.False(t, res.Session.Data.WantsPhone)
	assert.Len(t, res.Session.Data.Orders, 1)

	_, err = h.svc.Retry(ctx, id)
	assert.ErrorIs(t, err, session.ErrInvalidStep)
}

func TestFullConversation_SQLitePersistence(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ledger := store.NewLedger(db)

	h := newHarness(t, harnessConfig{
		store:  func(now func() time.Time) session.Store { return store.NewSessionStore(db, now) },
		ledger: ledger,
	})
	ctx := context.Background()
	id := h.start(t)

	submitted, err := h.svc.SubmitOrder(ctx, id, "아메리카노 2개 포장")
	require.NoError(t, err)

	reread, err := h.svc.Status(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(submitted.Session.Data.Orders, reread.Data.Orders); diff != "" {
		t.Errorf("persisted lines mismatch (-submitted +reread):\n%s", diff)
	}
	assert.Equal(t, 8000, reread.Data.TotalPrice)
	assert.Equal(t, catalog.PackagingTakeout, reread.Data.PackagingType)

	_, err = h.svc.SelectPackaging(ctx, id, "")
	require.NoError(t, err)
	done, err := h.svc.ChoosePhone(ctx, id, false)
	require.NoError(t, err)

	stored, err := ledger.GetOrder(ctx, done.Session.Data.OrderID)
	require.NoError(t, err)
	assert.Equal(t, id, stored.SessionID)
	assert.Equal(t, 8000, stored.TotalPrice)
	assert.Equal(t, catalog.PackagingTakeout, stored.PackagingType)
	if diff := cmp.Diff(submitted.Session.Data.Orders, stored.Lines,
		cmpopts.IgnoreFields(session.OrderLine{}, "OriginalText", "Popular")); diff != "" {
		t.Errorf("ledger lines mismatch (-session +ledger):\n%s", diff)
	}
}

func TestHandle_WalksEveryStep(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	steps := []struct {
		say  string
		want session.Step
	}{
		{"아이스 아메리카노 두 잔", session.StepPackaging},
		{"치즈케이크 1개", session.StepPackaging},
		{"포장이요", session.StepPhoneChoice},
		{"네", session.StepPhoneInput},
		{"010-9876-5432", session.StepCompleted},
	}
	for _, st := range steps {
		res, err := h.svc.Handle(ctx, id, st.say)
		require.NoError(t, err, st.say)
		assert.Equal(t, st.want, res.Session.Step, st.say)
	}

	res, err := h.svc.Handle(ctx, id, "카페라떼 1개")
	require.NoError(t, err)
	assert.Equal(t, "주문이 이미 완료되었습니다.", res.Message)

	orders := h.ledger.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, 2*4000+5500, orders[0].TotalPrice)
	assert.Equal(t, "010-9876-5432", orders[0].PhoneNumber)
}

func TestHandle_ConfirmsCapturedPackaging(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()
	id := h.start(t)

	_, err := h.svc.Handle(ctx, id, "카페라떼 1개 여기서 먹고")
	require.NoError(t, err)
	res, err := h.svc.Handle(ctx, id, "응")
	require.NoError(t, err)
	assert.Equal(t, session.StepPhoneChoice, res.Session.Step)
	assert.Equal(t, catalog.PackagingDineIn, res.Session.Data.PackagingType)
}
