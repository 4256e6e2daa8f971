package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mathboard/internal/board"
)

func TestAutosaverSavesLatest(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(NewMemoryStore())
	a := NewAutosaver(gw)
	defer a.Close()

	for i := 0; i < 20; i++ {
		snap := board.NewSnapshot()
		for j := 0; j <= i; j++ {
			snap.Groups = append(snap.Groups, board.NewMathGroup(board.Pos("0px", "0px"), "x"))
		}
		require.True(t, a.Schedule(snap))
	}
	require.NoError(t, a.Flush(ctx))

	snap, found, err := gw.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 20, snap.Len())
}

func TestAutosaverCopiesSnapshot(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(NewMemoryStore())
	a := NewAutosaver(gw)
	defer a.Close()

	snap := board.NewSnapshot(board.NewMathGroup(board.Pos("0px", "0px"), "before"))
	a.Schedule(snap)
	snap.Groups[0].(*board.MathGroup).Fields[0] = "after"
	require.NoError(t, a.Flush(ctx))

	got, _, err := gw.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "before", got.Groups[0].(*board.MathGroup).Fields[0])
}

func TestAutosaverReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	gw := NewGateway(failStore{MemoryStore: NewMemoryStore(), err: boom})

	var mu sync.Mutex
	var reported []error
	a := NewAutosaver(gw, WithErrorHandler(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	defer a.Close()

	a.Schedule(board.EmptySnapshot())
	err := a.Flush(context.Background())
	assert.ErrorIs(t, err, boom)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)
}

func TestAutosaverFlushHonorsContext(t *testing.T) {
	store := newSlowStore()
	defer close(store.release)
	gw := NewGateway(store, WithTimeout(time.Minute))
	a := NewAutosaver(gw)

	a.Schedule(board.EmptySnapshot())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.Flush(ctx), context.DeadlineExceeded)
}

func TestAutosaverCloseDrains(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway(NewMemoryStore())
	a := NewAutosaver(gw)

	a.Schedule(board.NewSnapshot(board.NewMathGroup(board.Pos("0px", "0px"), "x")))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.False(t, a.Schedule(board.EmptySnapshot()))
	assert.NoError(t, a.Flush(ctx))

	_, found, err := gw.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestAutosaverFlushWithNothingPending(t *testing.T) {
	a := NewAutosaver(NewGateway(NewMemoryStore()))
	defer a.Close()
	assert.NoError(t, a.Flush(context.Background()))
}

func TestAutosaverPending(t *testing.T) {
	ctx := context.Background()
	store := newSlowStore()
	a := NewAutosaver(NewGateway(store))
	defer a.Close()

	assert.False(t, a.Pending())
	require.True(t, a.Schedule(board.NewSnapshot()))
	assert.True(t, a.Pending())

	// A save being written still counts as pending.
	<-store.entered
	assert.True(t, a.Pending())

	close(store.release)
	require.NoError(t, a.Flush(ctx))
	assert.False(t, a.Pending())
}
