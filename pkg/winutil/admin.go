// Package winutil probes Windows privilege state and drives System
// Restore checkpoints around driver-mutating operations.
package winutil

import (
	"context"

	"github.com/drvault/drvault/pkg/oscmd"
)

// IsAdmin reports whether the process has administrative rights. The
// process token is checked first, a `net session` probe (which fails for
// non-elevated users) is the fallback. Used proactively before restricted
// operations instead of decoding their exit codes afterwards.
func IsAdmin(ctx context.Context, runner oscmd.CommandRunner) bool {
	if tokenIsElevated() {
		return true
	}

	res, err := runner.Run(ctx, oscmd.NewCommand("probe administrator rights", "net", "session"))
	return err == nil && res.Succeeded()
}
