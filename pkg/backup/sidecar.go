package backup

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault/pkg/driverstore"
)

// SidecarFileName is the per-package provenance file written next to the
// backed-up INF.
const SidecarFileName = "driver_details.txt"

const sidecarTimeFormat = "2006-01-02 15:04:05"

// Sidecar records where and when a driver package was backed up. Every
// field is optional, an absent or partial sidecar never fails a scan.
type Sidecar struct {
	BackupDate    string `json:"backupDate,omitempty"`
	BackupOS      string `json:"backupOS,omitempty"`
	BackupOSBuild string `json:"backupOSBuild,omitempty"`
	INFFile       string `json:"infFile,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Class         string `json:"class,omitempty"`
	Version       string `json:"version,omitempty"`
}

// ReadSidecar loads the sidecar from the given driver folder. A missing
// file yields (nil, nil). Unknown lines, including the free-text manual
// restore instructions, are ignored.
func ReadSidecar(dir string) (*Sidecar, error) {
	content, err := ioutil.ReadFile(filepath.Join(dir, SidecarFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "backup: read sidecar")
	}

	sc := &Sidecar{}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		switch key {
		case "BackupDate":
			sc.BackupDate = value
		case "BackupOS":
			sc.BackupOS = value
		case "BackupOSBuild":
			sc.BackupOSBuild = value
		case "INFFile":
			sc.INFFile = value
		case "Provider":
			sc.Provider = value
		case "Class":
			sc.Class = value
		case "Version":
			sc.Version = value
		}
	}

	return sc, nil
}

// WriteSidecar stores the sidecar in the given driver folder, including
// the manual restore instructions for users recovering without drvault.
func WriteSidecar(dir string, sc *Sidecar) error {
	var b strings.Builder

	writeField := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", key, value)
		}
	}

	writeField("BackupDate", sc.BackupDate)
	writeField("BackupOS", sc.BackupOS)
	writeField("BackupOSBuild", sc.BackupOSBuild)
	writeField("INFFile", sc.INFFile)
	writeField("Provider", sc.Provider)
	writeField("Class", sc.Class)
	writeField("Version", sc.Version)

	b.WriteString("\r\n")
	b.WriteString("To restore this driver manually, open an elevated command prompt and run:\r\n")
	if sc.INFFile != "" {
		fmt.Fprintf(&b, "  pnputil /add-driver \"%s\" /install\r\n", sc.INFFile)
	} else {
		b.WriteString("  pnputil /add-driver <driver.inf> /install\r\n")
	}

	path := filepath.Join(dir, SidecarFileName)
	if err := ioutil.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.Wrapf(err, "backup: write sidecar %s", path)
	}

	return nil
}

// NewSidecar builds the sidecar for one backed-up driver record.
func NewSidecar(rec driverstore.DriverRecord, osName, osBuild string, now time.Time) *Sidecar {
	return &Sidecar{
		BackupDate:    now.Format(sidecarTimeFormat),
		BackupOS:      osName,
		BackupOSBuild: osBuild,
		INFFile:       rec.OriginalName,
		Provider:      rec.Provider,
		Class:         rec.ClassName,
		Version:       rec.Version,
	}
}

// AnnotateBackupTree writes a provenance sidecar into every driver folder
// below root that contains an INF but no sidecar yet. Used after a dism
// export, which produces the folders but no metadata. Failures are
// collected per folder and do not stop the pass.
func AnnotateBackupTree(root, osName, osBuild string, now time.Time) []ScanError {
	var failures []ScanError

	scan := ScanFolder(root)
	for _, d := range scan.Drivers {
		if d.Backup != nil {
			continue
		}

		sc := NewSidecar(d.DriverRecord, osName, osBuild, now)
		if err := WriteSidecar(filepath.Dir(d.FullInfPath), sc); err != nil {
			log.WithError(err).Warnf("backup: could not annotate %s", d.FullInfPath)
			failures = append(failures, ScanError{Path: d.FullInfPath, Message: err.Error()})
		}
	}

	return failures
}
