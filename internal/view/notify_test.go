package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifierAutoClears(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	n.Show("Workout successfully created!", ColorSuccess)

	m, ok := n.Current()
	require.True(t, ok)
	require.Equal(t, "Workout successfully created!", m.Text)
	require.Equal(t, ColorSuccess, m.Color)

	require.Eventually(t, func() bool {
		_, ok := n.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

// TestNotifierReplaces verifies the newest message wins and keeps its own
// full display time.
func TestNotifierReplaces(t *testing.T) {
	n := NewNotifier(80 * time.Millisecond)
	n.Show("first", ColorSuccess)
	time.Sleep(50 * time.Millisecond)
	n.Show("second", ColorError)

	// The first message's timer would have fired by now.
	time.Sleep(45 * time.Millisecond)
	m, ok := n.Current()
	require.True(t, ok)
	require.Equal(t, "second", m.Text)

	require.Eventually(t, func() bool {
		_, ok := n.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNotifierAlertSticks(t *testing.T) {
	n := NewNotifier(10 * time.Millisecond)
	n.Alert("Sorry we could not find your current position!")
	time.Sleep(40 * time.Millisecond)

	m, ok := n.Current()
	require.True(t, ok)
	require.True(t, m.Alert)

	n.Clear()
	_, ok = n.Current()
	require.False(t, ok)
}

func TestNotifierDefaultTTL(t *testing.T) {
	require.Equal(t, DefaultNotifyTTL, NewNotifier(0).ttl)
}
