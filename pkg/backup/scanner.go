// Package backup scans driver backup folders and maintains the
// per-package provenance sidecars.
package backup

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault/pkg/driverstore"
	"github.com/drvault/drvault/pkg/inf"
)

const (
	// NoInfFilesMessage is informational, an empty backup folder is not
	// an I/O failure.
	NoInfFilesMessage = "No .inf files found in the backup folder"

	folderMissingMessage = "Backup folder does not exist"
)

// ScanError describes one file (or the folder itself) that could not be
// processed. Errors never abort the scan of sibling files.
type ScanError struct {
	Path    string `json:"infPath"`
	Message string `json:"message"`
}

// ScannedDriver is a backup-sourced driver record plus its provenance
// sidecar when one was found next to the INF.
type ScannedDriver struct {
	driverstore.DriverRecord
	Backup *Sidecar `json:"backup,omitempty"`
}

type ScanResult struct {
	Drivers []ScannedDriver
	Errors  []ScanError
}

func (r *ScanResult) AddError(path, message string) {
	r.Errors = append(r.Errors, ScanError{Path: path, Message: message})
}

// Records returns the plain driver records of the scan, the shape the
// reconciler works with.
func (r *ScanResult) Records() []driverstore.DriverRecord {
	records := make([]driverstore.DriverRecord, 0, len(r.Drivers))
	for _, d := range r.Drivers {
		records = append(records, d.DriverRecord)
	}
	return records
}

// ScanFolder walks the backup tree under root and parses every .inf file
// found. A missing root or an empty tree is a recoverable condition
// reported through the errors list, never a crash. One unparseable file
// contributes exactly one error entry and does not affect its siblings.
func ScanFolder(root string) *ScanResult {
	result := &ScanResult{}

	if _, err := os.Stat(root); os.IsNotExist(err) {
		log.Debugf("backup: folder %s does not exist", root)
		result.AddError(root, folderMissingMessage)
		return result
	}

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.AddError(path, err.Error())
			return nil
		}

		if info.IsDir() || !strings.EqualFold(filepath.Ext(info.Name()), ".inf") {
			return nil
		}

		record, parseErr := parseBackupInf(path)
		if parseErr != nil {
			result.AddError(path, parseErr.Error())
			return nil
		}

		result.Drivers = append(result.Drivers, *record)
		return nil
	})
	if walkErr != nil {
		result.AddError(root, walkErr.Error())
	}

	if len(result.Drivers) == 0 && len(result.Errors) == 0 {
		result.AddError(root, NoInfFilesMessage)
	}

	return result
}

func parseBackupInf(path string) (*ScannedDriver, error) {
	parsed, err := inf.ParseFile(path)
	if err != nil {
		return nil, err
	}

	fullPath, absErr := filepath.Abs(path)
	if absErr != nil {
		fullPath = path
	}

	record := &ScannedDriver{
		DriverRecord: driverstore.DriverRecord{
			OriginalName: filepath.Base(path),
			Provider:     parsed.Provider,
			ClassName:    parsed.ClassName,
			Version:      parsed.DriverVersion,
			Date:         parsed.DriverDate,
			FullInfPath:  fullPath,
		},
	}

	sidecar, err := ReadSidecar(filepath.Dir(path))
	if err != nil {
		log.WithError(err).Debugf("backup: unreadable sidecar next to %s", path)
	} else if sidecar != nil {
		record.Backup = sidecar
	}

	return record, nil
}
