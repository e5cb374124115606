package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func read(t *testing.T, s *Store[counter], id string) (counter, error) {
	t.Helper()
	var out counter
	err := s.With(context.Background(), id, func(c *counter) error {
		out = *c
		return nil
	})
	return out, err
}

func TestStore_CreateWithDelete(t *testing.T) {
	s := NewStore[counter]()
	require.NoError(t, s.Create("a", counter{n: 1}))
	assert.ErrorIs(t, s.Create("a", counter{}), ErrExists)

	got, err := read(t, s, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.n)

	s.Delete("a")
	_, err = read(t, s, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_WithSerializesPerKey(t *testing.T) {
	s := NewStore[counter]()
	require.NoError(t, s.Create("k", counter{}))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.With(context.Background(), "k", func(c *counter) error {
				v := c.n
				time.Sleep(time.Microsecond)
				c.n = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := read(t, s, "k")
	require.NoError(t, err)
	assert.Equal(t, 100, got.n)
}

func TestStore_LockWaitHonorsContext(t *testing.T) {
	s := NewStore[counter]()
	require.NoError(t, s.Create("k", counter{}))

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.With(context.Background(), "k", func(*counter) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.With(ctx, "k", func(*counter) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestStore_Resolve(t *testing.T) {
	s := NewStore[int]()
	require.NoError(t, s.Create("plan-abc123", 1))
	require.NoError(t, s.Create("plan-abd456", 2))
	require.NoError(t, s.Create("exec-ffff", 3))

	id, err := s.Resolve("plan-abc")
	require.NoError(t, err)
	assert.Equal(t, "plan-abc123", id)

	id, err = s.Resolve("exec-ffff")
	require.NoError(t, err)
	assert.Equal(t, "exec-ffff", id)

	_, err = s.Resolve("plan-ab")
	assert.ErrorIs(t, err, ErrAmbiguous)
	_, err = s.Resolve("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Resolve("")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"exec-ffff", "plan-abc123", "plan-abd456"}, s.Keys())
}
