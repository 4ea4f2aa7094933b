package drvault

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault/pkg/backup"
	"github.com/drvault/drvault/pkg/driverstore"
	"github.com/drvault/drvault/pkg/osinfo"
	"github.com/drvault/drvault/pkg/restore"
	"github.com/drvault/drvault/pkg/winutil"
)

// OpState is the lifecycle phase of the single operation slot. Only one
// backup, scan or restore may be in flight at a time.
type OpState string

const (
	StateIdle                   OpState = "IDLE"
	StateScanning               OpState = "SCANNING"
	StateAwaitingReconciliation OpState = "AWAITING_RECONCILIATION"
	StateExecuting              OpState = "EXECUTING"
)

var (
	// ErrBusy is returned when an operation is requested while another
	// one has not finished yet.
	ErrBusy = errors.New("another operation is already in progress")

	// ErrRestoreCancelled is returned when the user cancels the restore
	// during reconciliation. Nothing has been installed in that case.
	ErrRestoreCancelled = errors.New("restore cancelled by user")

	// ErrAdminRequired is returned when a driver-mutating operation is
	// requested without administrator rights.
	ErrAdminRequired = errors.New("administrator rights are required for this operation")
)

// State reports the current phase of the operation slot.
func (dv *DrVault) State() OpState {
	dv.opMu.Lock()
	defer dv.opMu.Unlock()
	return dv.state
}

// beginOperation claims the operation slot. Every workflow entry point
// calls it exactly once and releases the slot with endOperation.
func (dv *DrVault) beginOperation(s OpState) error {
	dv.opMu.Lock()
	defer dv.opMu.Unlock()

	if dv.state != StateIdle {
		return ErrBusy
	}

	dv.state = s
	return nil
}

func (dv *DrVault) setState(s OpState) {
	dv.opMu.Lock()
	dv.state = s
	dv.opMu.Unlock()
}

func (dv *DrVault) endOperation() {
	dv.setState(StateIdle)
}

func (dv *DrVault) ensureAdmin(ctx context.Context) error {
	if !dv.Config.RequireAdmin {
		return nil
	}

	if !winutil.IsAdmin(ctx, dv.runner) {
		return ErrAdminRequired
	}

	return nil
}

// logListener forwards command lifecycle events into the operation log.
type logListener struct{}

func (logListener) OnStart(description string) {
	log.Infof("starting: %s", description)
}

func (logListener) OnOutput(line string, isErrorStream bool) {
	if isErrorStream {
		log.Error(line)
		return
	}
	log.Info(line)
}

func (logListener) OnEnd(exitCode *int) {
	log.Debugf("command finished with exit code %s", formatExitCode(exitCode))
}

func formatExitCode(code *int) string {
	if code == nil {
		return "unknown"
	}
	return strconv.Itoa(*code)
}

// FullBackup exports every third-party driver package in the driver store
// into the configured backup folder and annotates each exported folder
// with a provenance sidecar.
func (dv *DrVault) FullBackup(ctx context.Context) error {
	if err := dv.beginOperation(StateExecuting); err != nil {
		return err
	}
	defer dv.endOperation()

	if err := dv.ensureAdmin(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(dv.Config.BackupPath, 0755); err != nil {
		return errors.Wrapf(err, "could not create the backup folder '%s'", dv.Config.BackupPath)
	}

	cmd := dv.store.ExportAllCommand(dv.Config.BackupPath)
	exitCode, err := dv.runner.Stream(ctx, cmd, logListener{})
	if err != nil {
		return errors.Wrap(err, "full backup failed")
	}
	if exitCode == nil || *exitCode != 0 {
		return errors.Errorf("full backup: %s exited with code %s", cmd.Path, formatExitCode(exitCode))
	}

	dv.annotateBackupFolder()

	log.Infof("full backup finished, packages stored under %s", dv.Config.BackupPath)
	return nil
}

// SelectiveBackup copies the chosen installed driver packages out of the
// driver store into the backup folder, one package folder each.
func (dv *DrVault) SelectiveBackup(ctx context.Context, selected []driverstore.DriverRecord) error {
	if err := dv.beginOperation(StateExecuting); err != nil {
		return err
	}
	defer dv.endOperation()

	if err := dv.ensureAdmin(ctx); err != nil {
		return err
	}

	if len(selected) == 0 {
		log.Info("selective backup: nothing selected")
		return nil
	}

	if err := os.MkdirAll(dv.Config.BackupPath, 0755); err != nil {
		return errors.Wrapf(err, "could not create the backup folder '%s'", dv.Config.BackupPath)
	}

	// pnputil-sourced selections carry no FileRepository path yet
	selected, err := dv.store.ResolveInfPaths(ctx, selected)
	if err != nil {
		return err
	}

	osName, osBuild := backupProvenance()
	now := time.Now()

	for _, rec := range selected {
		cmd, err := dv.store.CopyPackageCommand(rec, dv.Config.BackupPath)
		if err != nil {
			return err
		}

		res, err := dv.runner.Run(ctx, cmd)
		if err != nil {
			return errors.Wrapf(err, "could not back up %s", rec.DisplayName())
		}
		if !res.Succeeded() {
			return errors.Errorf("backing up %s failed with exit code %s: %s",
				rec.DisplayName(), formatExitCode(res.ExitCode), strings.TrimSpace(res.Stderr))
		}

		packageDir := filepath.Join(dv.Config.BackupPath, lastPathElement(parentOf(rec.FullInfPath)))
		sc := backup.NewSidecar(rec, osName, osBuild, now)
		if err := backup.WriteSidecar(packageDir, sc); err != nil {
			log.WithError(err).Warnf("could not annotate %s", packageDir)
		}

		log.Infof("backed up %s", rec.DisplayName())
	}

	return nil
}

// ListInstalledDrivers enumerates the third-party driver packages
// currently present in the driver store.
func (dv *DrVault) ListInstalledDrivers(ctx context.Context) ([]driverstore.DriverRecord, error) {
	if err := dv.beginOperation(StateScanning); err != nil {
		return nil, err
	}
	defer dv.endOperation()

	return dv.store.Enumerate(ctx)
}

// ScanBackups inspects the backup folder and reports every driver package
// found there, alongside per-file parse failures.
func (dv *DrVault) ScanBackups() (*backup.ScanResult, error) {
	if err := dv.beginOperation(StateScanning); err != nil {
		return nil, err
	}
	defer dv.endOperation()

	return backup.ScanFolder(dv.Config.BackupPath), nil
}

// FullRestore scans the backup folder and restores everything found
// there, reconciling against the installed drivers first.
func (dv *DrVault) FullRestore(ctx context.Context, prompter restore.Prompter) error {
	if err := dv.beginOperation(StateScanning); err != nil {
		return err
	}
	defer dv.endOperation()

	scan := backup.ScanFolder(dv.Config.BackupPath)
	for _, scanErr := range scan.Errors {
		log.Warnf("restore: skipping %s: %s", scanErr.Path, scanErr.Message)
	}

	return dv.restoreRecords(ctx, scan.Records(), prompter)
}

// SelectiveRestore restores only the given backup driver records,
// reconciling against the installed drivers first.
func (dv *DrVault) SelectiveRestore(ctx context.Context, selected []driverstore.DriverRecord, prompter restore.Prompter) error {
	if err := dv.beginOperation(StateScanning); err != nil {
		return err
	}
	defer dv.endOperation()

	return dv.restoreRecords(ctx, selected, prompter)
}

// restoreRecords runs the restore phases after the operation slot has
// been claimed: enumerate, reconcile, restore point, install.
func (dv *DrVault) restoreRecords(ctx context.Context, selected []driverstore.DriverRecord, prompter restore.Prompter) error {
	if err := dv.ensureAdmin(ctx); err != nil {
		return err
	}

	if len(selected) == 0 {
		log.Info("restore: no driver packages to restore")
		return nil
	}

	installed, err := dv.store.Enumerate(ctx)
	if err != nil {
		return errors.Wrap(err, "could not enumerate installed drivers")
	}

	dv.setState(StateAwaitingReconciliation)
	plan, err := restore.Reconcile(selected, installed, prompter)
	if err != nil {
		return err
	}

	if plan.Cancelled {
		log.Info("restore cancelled, no drivers were installed")
		return ErrRestoreCancelled
	}

	for _, rec := range plan.Skipped {
		log.Infof("restore: skipping %s", rec.DisplayName())
	}

	if len(plan.InfPaths) == 0 {
		log.Info("restore: nothing left to install")
		return nil
	}

	dv.setState(StateExecuting)

	dv.maybeCreateRestorePoint(ctx)

	for _, infPath := range plan.InfPaths {
		cmd := dv.store.InstallCommand(infPath)
		exitCode, err := dv.runner.Stream(ctx, cmd, logListener{})
		if err != nil {
			return errors.Wrapf(err, "could not install %s", infPath)
		}
		if exitCode == nil || *exitCode != 0 {
			return errors.Errorf("installing %s failed with exit code %s", infPath, formatExitCode(exitCode))
		}

		log.Infof("installed %s", infPath)
	}

	log.Infof("restore finished, %d driver package(s) installed", len(plan.InfPaths))
	return nil
}

// maybeCreateRestorePoint creates a system restore point before drivers
// are installed. A failure here is logged but never blocks the restore,
// the user asked for the drivers back.
func (dv *DrVault) maybeCreateRestorePoint(ctx context.Context) {
	if !dv.Config.CreateRestorePoint {
		return
	}

	enabled, err := winutil.RestorePointsEnabled(ctx, dv.runner)
	if err != nil {
		log.WithError(err).Warn("could not determine whether system restore is enabled")
		return
	}
	if !enabled {
		log.Warn("system restore is disabled, continuing without a restore point")
		return
	}

	if err := winutil.CreateRestorePoint(ctx, dv.runner, "Before driver restore"); err != nil {
		log.WithError(err).Warn("could not create a system restore point")
	}
}

func (dv *DrVault) annotateBackupFolder() {
	osName, osBuild := backupProvenance()

	failures := backup.AnnotateBackupTree(dv.Config.BackupPath, osName, osBuild, time.Now())
	for _, f := range failures {
		log.Warnf("backup: could not annotate %s: %s", f.Path, f.Message)
	}
}

func backupProvenance() (osName, osBuild string) {
	osName, err := osinfo.GetOsName()
	if err != nil {
		log.WithError(err).Debug("could not read the OS name")
	}

	osBuild, err = osinfo.GetOsBuild()
	if err != nil {
		log.WithError(err).Debug("could not read the OS build")
	}

	return osName, osBuild
}

func lastPathElement(p string) string {
	idx := strings.LastIndexAny(p, `\/`)
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

func parentOf(p string) string {
	idx := strings.LastIndexAny(p, `\/`)
	if idx <= 0 {
		return p
	}
	return p[:idx]
}
