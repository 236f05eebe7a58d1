package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceorder/internal/catalog"
	"voiceorder/internal/embedding"
	"voiceorder/internal/ordering"
	"voiceorder/internal/session"
	"voiceorder/internal/session/sessiontest"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestOpen_CreatesSchemaAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "orderbot.db")
	db, err := Open(path)
	require.NoError(t, err)

	assert.True(t, tableExists(db.SQL(), "menu_items"))
	assert.True(t, columnExists(db.SQL(), "orders", "status"))
	assert.True(t, columnExists(db.SQL(), "orders", "session_id"))
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(db.SQL()))
	require.NoError(t, db.Close())

	// Reopening is idempotent.
	db, err = Open(path)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(db.SQL()))
	require.NoError(t, db.Close())
}

func seedIndex(t *testing.T, idx catalog.Index) embedding.EmbeddingEngine {
	t.Helper()
	engine := embedding.NewHashEngine(128)
	require.NoError(t, catalog.Seed(context.Background(), idx, engine, catalog.DefaultSeed()))
	return engine
}

func TestCatalogIndex_SearchMenu(t *testing.T) {
	ctx := context.Background()
	idx := NewCatalogIndex(openMemory(t))
	engine := seedIndex(t, idx)

	menu, pkg, err := idx.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(catalog.DefaultMenu()), menu)
	assert.Equal(t, 2, pkg)

	vec, err := engine.Embed(ctx, "아메리카노")
	require.NoError(t, err)

	hits, err := idx.SearchMenu(ctx, vec, catalog.SearchOptions{Limit: 5, ScoreFloor: 0.2})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(hits), 2)
	assert.Equal(t, int64(1), hits[0].Entry.ID, "equal scores order by id")
	assert.Equal(t, int64(2), hits[1].Entry.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.True(t, hits[0].Entry.Popular)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		assert.GreaterOrEqual(t, hits[i].Score, 0.2)
	}

	iced, err := idx.SearchMenu(ctx, vec, catalog.SearchOptions{Limit: 5, Temperature: catalog.TempIce})
	require.NoError(t, err)
	require.NotEmpty(t, iced)
	assert.Equal(t, int64(2), iced[0].Entry.ID)
	for _, h := range iced {
		assert.Equal(t, catalog.TempIce, h.Entry.Temperature)
	}
}

func TestCatalogIndex_UpsertReplacesAndValidates(t *testing.T) {
	ctx := context.Background()
	idx := NewCatalogIndex(openMemory(t))
	vec := []float32{1, 0, 0}

	require.NoError(t, idx.UpsertMenu(ctx, []catalog.Entry{{ID: 1, Name: "라떼", Price: 4000, Temperature: catalog.TempHot}}, [][]float32{vec}))
	require.NoError(t, idx.UpsertMenu(ctx, []catalog.Entry{{ID: 1, Name: "라떼", Price: 4200, Temperature: catalog.TempHot}}, [][]float32{vec}))

	got, err := idx.MenuByName(ctx, "라떼")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4200, got[0].Price)

	err = idx.UpsertMenu(ctx, []catalog.Entry{{ID: 2, Name: "", Price: 1, Temperature: catalog.TempHot}}, [][]float32{vec})
	assert.Error(t, err)
	err = idx.UpsertMenu(ctx, []catalog.Entry{{ID: 3, Name: "x", Temperature: "lukewarm"}}, [][]float32{vec})
	assert.Error(t, err)
	err = idx.UpsertMenu(ctx, []catalog.Entry{{ID: 4, Name: "x", Temperature: catalog.TempNone}}, nil)
	assert.Error(t, err)
}

func TestCatalogIndex_SearchPackaging(t *testing.T) {
	ctx := context.Background()
	idx := NewCatalogIndex(openMemory(t))
	engine := seedIndex(t, idx)

	vec, err := engine.Embed(ctx, "매장 여기서 먹고")
	require.NoError(t, err)
	hits, err := idx.SearchPackaging(ctx, vec, 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, catalog.PackagingDineIn, hits[0].Option.Type)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestSessionStoreConformance(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T) (session.Store, func(time.Duration)) {
		c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
		return NewSessionStore(openMemory(t), c.Now), c.Advance
	})
}

func TestSessionStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	st := NewSessionStore(openMemory(t), c.Now)
	m := session.NewManager(st, session.Options{Now: c.Now})

	_, err := m.Create(ctx)
	require.NoError(t, err)
	c.Advance(31 * time.Minute)
	_, err = m.Create(ctx)
	require.NoError(t, err)

	n, err := st.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestRedisSessionStoreConformance(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T) (session.Store, func(time.Duration)) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		return NewRedisSessionStoreWithClient(client), mr.FastForward
	})
}

func TestRedisSessionStore_KeyAndTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	st, err := NewRedisSessionStore(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := session.NewManager(st, session.Options{TTL: 30 * time.Minute})
	s, err := m.Create(ctx)
	require.NoError(t, err)

	key := "session:" + s.ID
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 30*time.Minute, mr.TTL(key))

	_, err = NewRedisSessionStore(ctx, "not a url")
	assert.Error(t, err)
}

func TestLedger_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(openMemory(t))
	created := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	order := ordering.FinalizedOrder{
		SessionID: "s-1",
		Lines: []session.OrderLine{
			{CatalogID: 1, MenuName: "아메리카노", UnitPrice: 4000, Quantity: 2, Temperature: catalog.TempHot},
			{CatalogID: 20, MenuName: "자몽에이드", UnitPrice: 4500, Quantity: 1, Temperature: catalog.TempIce},
		},
		TotalPrice:    12500,
		PackagingType: catalog.PackagingTakeout,
		PhoneNumber:   "010-1234-5678",
		CreatedAt:     created,
	}
	id, err := l.SaveOrder(ctx, order)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := l.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
	if diff := cmp.Diff(order, got.FinalizedOrder); diff != "" {
		t.Errorf("ledger round trip (-want +got):\n%s", diff)
	}

	require.NoError(t, l.SetStatus(ctx, id, "done"))
	got, err = l.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Status)

	_, err = l.GetOrder(ctx, id+100)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, l.SetStatus(ctx, id+100, "done"), ErrOrderNotFound)

	_, err = l.SaveOrder(ctx, ordering.FinalizedOrder{})
	assert.Error(t, err)
}
