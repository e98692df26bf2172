package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDaysToIntervalString(t *testing.T) {
	require.Equal(t, "3 days", daysToIntervalString(3))
	require.Equal(t, "14 days", daysToIntervalString(14))
}
