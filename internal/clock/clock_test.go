package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	require.Equal(t, start, f.Now())

	f.Advance(5 * time.Second)
	require.Equal(t, start.Add(5*time.Second), f.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	require.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
