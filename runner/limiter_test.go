package runner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerEmitsLatest(t *testing.T) {
	var mu sync.Mutex
	var got []int
	emitted := make(chan struct{}, 4)
	d := NewDebouncer(20*time.Millisecond, func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		emitted <- struct{}{}
	})

	_, replaced := d.Offer(1)
	assert.False(t, replaced)
	prev, replaced := d.Offer(2)
	assert.True(t, replaced)
	assert.Equal(t, 1, prev)
	prev, replaced = d.Offer(3)
	assert.True(t, replaced)
	assert.Equal(t, 2, prev)

	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("debouncer did not emit")
	}
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3}, got)
}

func TestDebouncerStop(t *testing.T) {
	emitted := make(chan int, 1)
	d := NewDebouncer(20*time.Millisecond, func(v int) { emitted <- v })

	d.Offer(7)
	held, ok := d.Stop()
	require.True(t, ok)
	assert.Equal(t, 7, held)

	select {
	case v := <-emitted:
		t.Fatalf("unexpected emit %d after stop", v)
	case <-time.After(50 * time.Millisecond):
	}

	_, ok = d.Stop()
	assert.False(t, ok)
}

func TestThrottlerLeadingEdge(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	th := NewThrottler(time.Second)
	th.now = func() time.Time { return now }

	assert.True(t, th.Allow())
	assert.False(t, th.Allow())

	now = now.Add(999 * time.Millisecond)
	assert.False(t, th.Allow())

	now = now.Add(time.Millisecond)
	assert.True(t, th.Allow())
	assert.False(t, th.Allow())
}
