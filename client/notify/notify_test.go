package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	var seen []string
	q := NewQueue(func(n Notification) { seen = append(seen, n.Title) })

	q.Notify(LevelSuccess, "Registration sent", "")
	q.Notify(LevelError, "Failed to load messages", "boom")
	q.Notify(LevelError, "Failed to update status", "boom")

	require.Len(t, q.Pending(), 3)
	assert.Equal(t, 2, q.Count(LevelError))
	assert.Equal(t, []string{"Registration sent", "Failed to load messages", "Failed to update status"}, seen)

	first := q.Pending()[0]
	assert.True(t, q.Dismiss(first.ID))
	assert.False(t, q.Dismiss(first.ID))
	assert.Len(t, q.Pending(), 2)

	drained := q.Drain()
	assert.Len(t, drained, 2)
	assert.Empty(t, q.Pending())
	assert.Equal(t, "Failed to load messages", drained[0].Title)
}
