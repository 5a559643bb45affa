// Package testing switches the binaries into test mode when imported by
// their test packages.
package testing

import (
	"os"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/app"
)

func init() {
	_ = os.Setenv(app.TestModeEnv, "true")
	app.RefreshTestMode()
}
