package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tally/internal/model"
)

func TestFixedClock(t *testing.T) {
	start := model.MustParseDate("2025-01-31")
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Today())

	c.Advance(1)
	assert.Equal(t, "2025-02-01", c.Today().String())

	c.Set(start)
	assert.Equal(t, start, c.Today())
}

func TestFixedClock_Concurrent(t *testing.T) {
	c := NewFixedClock(model.MustParseDate("2025-01-01"))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, "2025-02-20", c.Today().String())
}

func TestFixedRunIDGenerator(t *testing.T) {
	g := NewFixedRunIDGenerator("run-1")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-1", g.Generate())

	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}
