package main

import (
	stdtesting "testing"

	"github.com/stretchr/testify/require"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/app"
	_ "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/testing"
)

func TestMainSkipsStartupInTestMode(t *stdtesting.T) {
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
