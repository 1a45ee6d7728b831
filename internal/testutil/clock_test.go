package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock_Advances(t *testing.T) {
	c := NewStepClock()
	first := c.Now()
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, first.Add(time.Second), c.Now())
	assert.Equal(t, first.Add(2*time.Second), c.Now())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "run-0001", g.NewID())
	assert.Equal(t, "run-0002", g.NewID())

	other := NewSequentialIDs("job")
	assert.Equal(t, "job-0001", other.NewID())
}

func TestSequentialIDs_Concurrent(t *testing.T) {
	g := NewSequentialIDs("x")
	seen := sync.Map{}
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(g.NewID(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
}
