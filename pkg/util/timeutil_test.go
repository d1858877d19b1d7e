package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExpired(t *testing.T) {
	base := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

	require.False(t, Expired(base, time.Hour, base.Add(59*time.Minute)))
	require.True(t, Expired(base, time.Hour, base.Add(time.Hour)))
	require.False(t, Expired(base, 0, base.Add(1000*time.Hour)))
	require.True(t, Expired(time.Time{}, time.Hour, base))
	require.False(t, Expired(time.Time{}, 0, base))
}
