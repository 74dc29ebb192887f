package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	*dest[0].(*int64) = m.val
	return nil
}

// mockQuerier simulates pcp.sequence keyed by sequence key.
type mockQuerier struct {
	mu    sync.Mutex
	vals  map[string]int64
	calls int
	err   error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{vals: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := args[0].(string)
	n := args[1].(int64)
	if sql == setSQL {
		m.vals[key] = n
	} else {
		m.vals[key] += n
	}
	return &mockRow{val: m.vals[key]}
}

func newService(q *mockQuerier) *Service {
	return New(func(context.Context) Querier { return q })
}

var march = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := newService(q)
	ctx := context.Background()

	num, err := svc.Next(ctx, "REQ", march)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00001", num)

	num, err = svc.Next(ctx, "REQ", march)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00002", num)

	num, err = svc.Next(ctx, "REQ", march.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "REQ-2027-00001", num, "yearly reset")

	assert.Equal(t, 3, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := newService(q)
	ctx := context.Background()
	cfg := DefaultConfig("REQ")
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(ctx, cfg, opts, march)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00001", num)
	assert.EqualValues(t, 10, q.vals["REQ_2026"])

	num, err = svc.GetNextNumber(ctx, cfg, opts, march)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00002", num)
	assert.Equal(t, 1, q.calls, "second number served from memory")

	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, march)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, march)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00011", num)
	assert.EqualValues(t, 20, q.vals["REQ_2026"])
	assert.Equal(t, 2, q.calls)
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := newMockQuerier()
	svc := newService(q)
	ctx := context.Background()
	cfg := DefaultConfig("REQ")
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	_, err := svc.GetNextNumber(ctx, cfg, opts, march)
	require.NoError(t, err)

	require.NoError(t, svc.SetNextNumber(ctx, cfg, march, 100))

	num, err := svc.GetNextNumber(ctx, cfg, opts, march)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00101", num)
}

func TestGetNextNumber_QueryError(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection reset")

	_, err := newService(q).Next(context.Background(), "REQ", march)
	assert.ErrorContains(t, err, "connection reset")
}

func TestFormatAndParse(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"yearly", DefaultConfig("REQ"), "REQ-2026-00042"},
		{"no year", Config{Prefix: "EMB", PadWidth: 3}, "EMB-042"},
		{"default pad", Config{Prefix: "MP"}, "MP-00042"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatNumber(tt.cfg, march, 42)
			assert.Equal(t, tt.want, got)
			assert.EqualValues(t, 42, ParseNumber(got))
		})
	}

	assert.EqualValues(t, -1, ParseNumber("REQ"))
	assert.EqualValues(t, -1, ParseNumber("REQ-abc"))
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "REQ_2026_03", buildKey(Config{Prefix: "REQ", ResetPeriod: "month"}, march))
	assert.Equal(t, "REQ_2026", buildKey(Config{Prefix: "REQ", ResetPeriod: "year"}, march))
	assert.Equal(t, "REQ", buildKey(Config{Prefix: "REQ", ResetPeriod: "never"}, march))
}
