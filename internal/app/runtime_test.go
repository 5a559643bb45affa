package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefreshTestModeParsesBool(t *testing.T) {
	t.Cleanup(RefreshTestMode)

	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(TestModeEnv, "maybe")
	RefreshTestMode()
	require.False(t, InTestMode())
}
