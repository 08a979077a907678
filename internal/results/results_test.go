package results

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu     sync.Mutex
	saved  []Outcome
	block  chan struct{}
	closed bool
	fail   bool
}

func (m *memStore) Save(_ context.Context, o Outcome) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk on fire")
	}
	m.saved = append(m.saved, o)
	return nil
}

func (m *memStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func outcome(n int) Outcome {
	return Outcome{
		PairID: "px_py", TrialN: n, Block: 1,
		DirectorID: "px", MatcherID: "py",
		Target: "square_red", Label: "square", Guess: "square_red", Score: 1,
		RecordedAt: time.Unix(1_700_000_000, 0),
	}
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, 16, zap.NewNop())
	for i := 1; i <= 10; i++ {
		r.Record(outcome(i))
	}
	require.NoError(t, r.Close())

	assert.Len(t, store.saved, 10)
	assert.Equal(t, 10, store.saved[9].TrialN)
	assert.True(t, store.closed)
	assert.Zero(t, r.Dropped())

	// recording after close is a no-op
	r.Record(outcome(11))
	assert.Len(t, store.saved, 10)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &memStore{block: make(chan struct{})}
	r := NewRecorder(store, 1, zap.NewNop())
	for i := 1; i <= 5; i++ {
		r.Record(outcome(i))
	}
	assert.GreaterOrEqual(t, r.Dropped(), int64(3))

	close(store.block)
	require.NoError(t, r.Close())
	assert.Equal(t, int64(5), r.Dropped()+int64(len(store.saved)))
}

func TestRecorder_StoreErrorsAreLoggedNotFatal(t *testing.T) {
	store := &memStore{fail: true}
	r := NewRecorder(store, 4, zap.NewNop())
	r.Record(outcome(1))
	require.NoError(t, r.Close())
	assert.Empty(t, store.saved)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "outcomes.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, outcome(1)))
	wrong := outcome(2)
	wrong.Guess, wrong.Score = "circle_grey", 0
	require.NoError(t, s.Save(ctx, wrong))

	var n, total int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(score), 0) FROM trial_outcomes WHERE pair_id = ?`, "px_py").Scan(&n, &total))
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, total)

	var guess string
	var recorded int64
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT guess, recorded_at FROM trial_outcomes WHERE trial_n = 2`).Scan(&guess, &recorded))
	assert.Equal(t, "circle_grey", guess)
	assert.Equal(t, int64(1_700_000_000), recorded)

	require.NoError(t, s.Close())
}

func TestSQLiteStore_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), outcome(1)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM trial_outcomes`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNewRowNormalisesTime(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	o := outcome(3)
	o.RecordedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, loc)
	row := newRow(o)
	assert.Equal(t, time.UTC, row.RecordedAt.Location())
	assert.True(t, row.RecordedAt.Equal(o.RecordedAt))
	assert.Equal(t, "trial_outcomes", row.TableName())
}
