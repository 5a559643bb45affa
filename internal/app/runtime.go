package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv disables network and database side effects in the binaries.
const TestModeEnv = "BILLING_TEST_MODE"

var testMode atomic.Pointer[bool]

func readTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}

// InTestMode reports whether main should return before dialing dependencies.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	on := readTestMode()
	testMode.CompareAndSwap(nil, &on)
	return *testMode.Load()
}

// RefreshTestMode re-reads the environment.
func RefreshTestMode() {
	on := readTestMode()
	testMode.Store(&on)
}
