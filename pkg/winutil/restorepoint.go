package winutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault/pkg/oscmd"
)

// RestorePointsEnabled probes whether System Restore is available by
// listing existing restore points. A disabled System Protection surfaces
// as a failing probe, not as an error.
func RestorePointsEnabled(ctx context.Context, runner oscmd.CommandRunner) (bool, error) {
	cmd := oscmd.PowerShell("check System Restore availability",
		`Get-ComputerRestorePoint | Out-Null`)

	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return false, errors.Wrap(err, "winutil: probe System Restore")
	}

	if res.Succeeded() {
		return true, nil
	}

	log.Debugf("winutil: System Restore probe failed: %s", strings.TrimSpace(res.Stderr))
	return false, nil
}

// CreateRestorePoint checkpoints the system before a driver-mutating
// operation. Windows throttles checkpoint creation (one per 24h by
// default), a throttled attempt still exits zero from PowerShell, so only
// real failures are returned.
func CreateRestorePoint(ctx context.Context, runner oscmd.CommandRunner, description string) error {
	script := fmt.Sprintf(`Checkpoint-Computer -Description %s -RestorePointType 'MODIFY_SETTINGS'`,
		oscmd.QuotePSString(description))

	cmd := oscmd.PowerShell("create a system restore point", script)

	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return errors.Wrap(err, "winutil: create restore point")
	}

	if !res.Succeeded() {
		return errors.Errorf("winutil: Checkpoint-Computer failed: %s", strings.TrimSpace(res.Stderr))
	}

	return nil
}
