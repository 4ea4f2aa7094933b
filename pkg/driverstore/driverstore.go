// Package driverstore enumerates third-party driver packages known to the
// Windows Driver Store and builds the install/export commands for them.
package driverstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault/pkg/common"
	"github.com/drvault/drvault/pkg/oscmd"
)

// DriverRecord represents one driver definition, scanned either from the
// live system or from a backup folder.
type DriverRecord struct {
	PublishedName string `json:"publishedName,omitempty"`
	OriginalName  string `json:"originalName"`
	Provider      string `json:"provider"`
	ClassName     string `json:"className"`
	Version       string `json:"version"`
	Date          string `json:"date,omitempty"`
	FullInfPath   string `json:"fullInfPath,omitempty"`
}

// Key identifies a driver package for reconciliation purposes. Two records
// with equal keys are considered the same driver version.
func (d DriverRecord) Key() string {
	return strings.ToLower(d.OriginalName) + "|" + strings.ToLower(d.Version)
}

func (d DriverRecord) DisplayName() string {
	name := d.OriginalName
	if name == "" {
		name = d.PublishedName
	}
	if d.Provider != "" {
		name = fmt.Sprintf("%s (%s)", name, d.Provider)
	}
	return name
}

type Store struct {
	runner oscmd.CommandRunner

	PnputilPath    string
	PowerShellPath string
}

func NewStore(runner oscmd.CommandRunner) *Store {
	return &Store{
		runner:         runner,
		PnputilPath:    "pnputil",
		PowerShellPath: "powershell",
	}
}

// EnumCommand lists all third-party driver packages present in the store.
func (s *Store) EnumCommand() oscmd.Command {
	return oscmd.NewCommand("enumerate installed drivers", s.PnputilPath, "/enum-drivers")
}

// InstallCommand stages and installs one INF into the driver store.
func (s *Store) InstallCommand(infPath string) oscmd.Command {
	return oscmd.NewCommand(
		fmt.Sprintf("install driver %s", infPath),
		s.PnputilPath, "/add-driver", infPath, "/install",
	)
}

// ExportAllCommand exports every third-party driver package to destDir.
func (s *Store) ExportAllCommand(destDir string) oscmd.Command {
	return oscmd.NewCommand(
		"export all third-party drivers",
		"dism", "/online", "/export-driver", "/destination:"+destDir,
	)
}

func (s *Store) powerShellCommand(description, script string) oscmd.Command {
	cmd := oscmd.PowerShell(description, script)
	cmd.Path = s.PowerShellPath
	return cmd
}

// Enumerate returns a snapshot of the currently installed third-party
// drivers. pnputil is the primary source, the PowerShell DISM module and
// WMI are fallbacks for systems where pnputil output is unusable. An
// empty snapshot from a succeeding source is a valid result, a freshly
// installed system has no third-party packages yet.
func (s *Store) Enumerate(ctx context.Context) ([]DriverRecord, error) {
	errs := common.ErrorCollector{}
	emptySnapshot := false

	res, err := s.runner.Run(ctx, s.EnumCommand())
	if err == nil && res.Succeeded() {
		records := ParsePnputilEnum(res.Stdout)
		if len(records) > 0 {
			return records, nil
		}
		// an exit-0 run with zero records is either a clean system or
		// localized output the parser cannot read, the next source decides
		emptySnapshot = true
	} else if err != nil {
		errs.Addf("pnputil: %s", err.Error())
	} else {
		errs.Addf("pnputil exited with code %s, stderr: %s", formatExitCode(res.ExitCode), strings.TrimSpace(res.Stderr))
	}

	log.Debug("driverstore: pnputil enumeration inconclusive, falling back to Get-WindowsDriver")

	records, err := s.enumeratePowerShell(ctx)
	if err == nil {
		return records, nil
	}
	errs.Addf("Get-WindowsDriver: %s", err.Error())

	records, err = enumerateWMI()
	if err == nil {
		return records, nil
	}
	errs.Addf("WMI: %s", err.Error())

	// pnputil completed cleanly and the fallbacks are unavailable, so the
	// store really holds no third-party packages
	if emptySnapshot {
		return nil, nil
	}

	return nil, errors.Errorf("driverstore: could not enumerate installed drivers: %s", errs.String())
}

func formatExitCode(code *int) string {
	if code == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%d", *code)
}
