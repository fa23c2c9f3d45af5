package isolated_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/anggasct/crossing/pkg/isolated"
	"github.com/anggasct/crossing/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CopiesOnRead(t *testing.T) {
	s := isolated.NewStore()
	defer s.Close()
	cell := isolated.NewCell[core.DirectionQueue](s.Client("test"), "queue/N")

	require.NoError(t, cell.Store(*core.NewDirectionQueue(core.North)))

	q, err := cell.Load()
	require.NoError(t, err)
	q.Enqueue(core.NewVehicle(1, core.North, time.Now()))

	again, err := cell.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, again.Len(), "a local mutation is invisible until written back")

	require.NoError(t, cell.Store(q))
	again, err = cell.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())
	assert.Equal(t, 1, again.Arrivals)
}

func TestStore_MissingKey(t *testing.T) {
	s := isolated.NewStore()
	defer s.Close()

	var v int
	err := s.Get("nope", &v)
	require.Error(t, err)
	var simErr *utils.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, utils.CodeStoreFailure, simErr.Code)
}

func TestCell_Modify(t *testing.T) {
	s := isolated.NewStore()
	defer s.Close()

	t.Run("Concurrent modifications are never lost", func(t *testing.T) {
		counter := isolated.NewCell[int](s.Client("a"), "counter")
		require.NoError(t, counter.Store(0))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			c := isolated.NewCell[int](s.Client("worker"), "counter")
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					assert.NoError(t, c.Modify(func(v *int) error {
						*v++
						return nil
					}))
				}
			}()
		}
		wg.Wait()

		v, err := counter.Load()
		require.NoError(t, err)
		assert.Equal(t, 200, v)
	})

	t.Run("Interleaved load and store without the lock loses an update", func(t *testing.T) {
		a := isolated.NewCell[int](s.Client("a"), "racy")
		b := isolated.NewCell[int](s.Client("b"), "racy")
		require.NoError(t, a.Store(0))

		va, _ := a.Load()
		vb, _ := b.Load()
		require.NoError(t, a.Store(va+1))
		require.NoError(t, b.Store(vb+1))

		v, err := a.Load()
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("A failing mutation is not written back", func(t *testing.T) {
		c := isolated.NewCell[int](s.Client("a"), "guarded")
		require.NoError(t, c.Store(5))
		boom := errors.New("boom")

		err := c.Modify(func(v *int) error {
			*v = 99
			return boom
		})
		assert.ErrorIs(t, err, boom)

		v, err := c.Load()
		require.NoError(t, err)
		assert.Equal(t, 5, v)
	})
}

func TestStore_Lock(t *testing.T) {
	s := isolated.NewStore()
	defer s.Close()

	require.NoError(t, s.Lock())
	acquired := make(chan struct{})
	go func() {
		if s.Lock() == nil {
			close(acquired)
			s.Unlock()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock must be exclusive")
	case <-time.After(30 * time.Millisecond):
	}

	s.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestStore_Barrier(t *testing.T) {
	s := isolated.NewStore()
	defer s.Close()

	var released sync.WaitGroup
	passed := make(chan int, 3)
	for i := 0; i < 3; i++ {
		released.Add(1)
		go func(i int) {
			defer released.Done()
			if s.Await("start", 3) == nil {
				passed <- i
			}
		}(i)
	}
	released.Wait()
	assert.Len(t, passed, 3)
}

func TestStore_Barrier_PartyMismatch(t *testing.T) {
	s := isolated.NewStore()
	defer s.Close()

	go func() { _ = s.Await("b", 2) }()
	time.Sleep(20 * time.Millisecond)

	err := s.Await("b", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 parties")
}

func TestStore_Close(t *testing.T) {
	s := isolated.NewStore()
	waiting := make(chan error, 1)
	go func() { waiting <- s.Await("never", 2) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())

	select {
	case err := <-waiting:
		assert.True(t, errors.Is(err, utils.ErrStoreClosed))
	case <-time.After(time.Second):
		t.Fatal("barrier waiter was not released on close")
	}

	assert.True(t, errors.Is(s.Lock(), utils.ErrStoreClosed))
	assert.True(t, errors.Is(s.Put("k", 1), utils.ErrStoreClosed))
	var v int
	assert.True(t, errors.Is(s.Get("k", &v), utils.ErrStoreClosed))
	assert.True(t, errors.Is(s.Close(), utils.ErrStoreClosed), "second close reports the closed store")
}
