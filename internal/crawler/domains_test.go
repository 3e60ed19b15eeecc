package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCoordinator(t *testing.T) {
	c := NewDomainCoordinator()

	ok, _ := c.MarkBusy("docs.example.com", "job_1")
	require.True(t, ok)

	// Second job is refused and told who holds the domain
	ok, holder := c.MarkBusy("docs.example.com", "job_2")
	assert.False(t, ok)
	assert.Equal(t, "job_1", holder)

	// Same job may re-claim
	ok, _ = c.MarkBusy("docs.example.com", "job_1")
	assert.True(t, ok)

	// Other domains are independent
	ok, _ = c.MarkBusy("other.example.com", "job_2")
	assert.True(t, ok)

	// A release by a non-holder is a no-op
	c.Release("docs.example.com", "job_2")
	_, held := c.Holder("docs.example.com")
	assert.True(t, held)

	c.Release("docs.example.com", "job_1")
	_, held = c.Holder("docs.example.com")
	assert.False(t, held)

	ok, _ = c.MarkBusy("docs.example.com", "job_2")
	assert.True(t, ok)
}

func TestWaitForAvailability(t *testing.T) {
	c := NewDomainCoordinator()
	ok, _ := c.MarkBusy("docs.example.com", "job_1")
	require.True(t, ok)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- c.WaitForAvailability(ctx, "docs.example.com", "job_2")
	}()

	time.Sleep(50 * time.Millisecond)
	c.Release("docs.example.com", "job_1")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never acquired the domain")
	}

	holder, held := c.Holder("docs.example.com")
	assert.True(t, held)
	assert.Equal(t, "job_2", holder)
}

func TestWaitForAvailabilityHonorsContext(t *testing.T) {
	c := NewDomainCoordinator()
	ok, _ := c.MarkBusy("docs.example.com", "job_1")
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.WaitForAvailability(ctx, "docs.example.com", "job_2")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
