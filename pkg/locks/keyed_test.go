package locks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAcquireRelease(t *testing.T) {
	r := NewRegistry()

	release, err := r.Acquire(context.Background(), "cycle-1", 50*time.Millisecond)
	require.NoError(t, err)
	release()

	release, err = r.Acquire(context.Background(), "cycle-1", 50*time.Millisecond)
	require.NoError(t, err)
	release()
	// double release must be a no-op
	release()
}

func TestRegistryContendedAcquireTimesOut(t *testing.T) {
	r := NewRegistry()

	release, err := r.Acquire(context.Background(), "cycle-1", 50*time.Millisecond)
	require.NoError(t, err)
	defer release()

	_, err = r.Acquire(context.Background(), "cycle-1", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRegistryDistinctKeysAreIndependent(t *testing.T) {
	r := NewRegistry()

	releaseA, err := r.Acquire(context.Background(), "stu-1:cycle-1", 20*time.Millisecond)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := r.Acquire(context.Background(), "stu-2:cycle-1", 20*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestRegistryHandsOverToWaiter(t *testing.T) {
	r := NewRegistry()

	release, err := r.Acquire(context.Background(), "cycle-1", 20*time.Millisecond)
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		waiterRelease, werr := r.Acquire(context.Background(), "cycle-1", 500*time.Millisecond)
		if werr == nil {
			waiterRelease()
		}
		acquired <- werr
	}()

	time.Sleep(10 * time.Millisecond)
	release()

	select {
	case werr := <-acquired:
		require.NoError(t, werr)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestRegistryCancelledContext(t *testing.T) {
	r := NewRegistry()

	release, err := r.Acquire(context.Background(), "cycle-1", 20*time.Millisecond)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Acquire(ctx, "cycle-1", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
