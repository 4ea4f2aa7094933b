// Package restore decides which backed-up driver packages should be
// reinstalled on the running system.
package restore

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault/pkg/driverstore"
)

// Decision is the user's answer for one backup driver that is already
// installed in the same version.
type Decision int

const (
	// DecisionInstall installs this driver despite the duplicate.
	DecisionInstall Decision = iota
	// DecisionSkip leaves this driver out of the plan.
	DecisionSkip
	// DecisionInstallAll installs this and every following duplicate
	// without further prompting.
	DecisionInstallAll
	// DecisionCancel aborts the whole restore, discarding the plan.
	DecisionCancel
)

// Prompter asks the user what to do with a backup driver whose exact
// version is already installed. Implementations may block indefinitely,
// the workflow waits for the answer.
type Prompter interface {
	ConfirmDuplicate(backup, installed driverstore.DriverRecord) (Decision, error)
}

// Plan is the ordered outcome of a reconciliation run. When Cancelled is
// set, InfPaths is empty regardless of decisions made before the cancel.
type Plan struct {
	InfPaths  []string
	Skipped   []driverstore.DriverRecord
	Cancelled bool
}

// Reconcile classifies every selected backup driver against the snapshot
// of installed drivers. Drivers without an installed (originalName,
// version) match are installed without prompting, exact duplicates are
// deferred to the prompter.
func Reconcile(selected, installed []driverstore.DriverRecord, prompter Prompter) (*Plan, error) {
	installedByKey := make(map[string]driverstore.DriverRecord, len(installed))
	for _, rec := range installed {
		installedByKey[rec.Key()] = rec
	}

	plan := &Plan{}
	installAllRemaining := false

	for _, rec := range selected {
		if rec.FullInfPath == "" {
			log.Warnf("restore: %s has no INF path, skipping", rec.DisplayName())
			plan.Skipped = append(plan.Skipped, rec)
			continue
		}

		match, isDuplicate := installedByKey[rec.Key()]
		if !isDuplicate {
			plan.InfPaths = append(plan.InfPaths, rec.FullInfPath)
			continue
		}

		if installAllRemaining {
			plan.InfPaths = append(plan.InfPaths, rec.FullInfPath)
			continue
		}

		decision, err := prompter.ConfirmDuplicate(rec, match)
		if err != nil {
			return nil, errors.Wrap(err, "restore: duplicate confirmation failed")
		}

		switch decision {
		case DecisionInstall:
			plan.InfPaths = append(plan.InfPaths, rec.FullInfPath)
		case DecisionInstallAll:
			installAllRemaining = true
			plan.InfPaths = append(plan.InfPaths, rec.FullInfPath)
		case DecisionSkip:
			plan.Skipped = append(plan.Skipped, rec)
		case DecisionCancel:
			log.Info("restore: operation cancelled by the user")
			return &Plan{Cancelled: true}, nil
		default:
			return nil, errors.Errorf("restore: unknown reconciliation decision %d", decision)
		}
	}

	return plan, nil
}
