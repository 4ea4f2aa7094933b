package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/drvault/drvault"
	"github.com/drvault/drvault/pkg/backup"
	"github.com/drvault/drvault/pkg/driverstore"
	"github.com/drvault/drvault/pkg/oscmd"
)

var (
	// set on build:
	// go build -o drvscan -ldflags="-X main.version=$(git describe --always --long --dirty --tag)" github.com/drvault/drvault/cmd/drvscan
	version string
)

// exit codes, checked by frontends that spawn drvscan as a subprocess
const (
	exitCodeFound    = 0
	exitCodeEmpty    = 1
	exitCodeScanFail = 2
)

var logger *logrus.Logger

type plainFormatter struct {
}

func (f *plainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	fieldValuesFormatted := ""
	for key, value := range entry.Data {
		fieldValuesFormatted = fmt.Sprintf("%s %s=%s", fieldValuesFormatted, key, value)
	}
	return []byte(fmt.Sprintf("%s%s\n", entry.Message, fieldValuesFormatted)), nil
}

func init() {
	// drvscan writes the report to stdout, everything else goes to stderr
	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&plainFormatter{})
}

// drvscan scans a driver backup folder (or, with -installed, the live
// driver store) and prints the machine-readable report to stdout.
// Frontends spawn it as a subprocess so a hanging or crashing scan never
// takes the caller down with it. Exit code 0 means the report holds at
// least one driver, 1 means a clean but empty result, 2 means the scan
// itself failed.
func main() {
	versionPtr := flag.Bool("version", false, "Show the drvscan version")
	cfgPathPtr := flag.String("c", drvault.DefaultCfgPath, "Config file path")
	folderPtr := flag.String("folder", "", "Folder to scan, overrides the backup_path from the config")
	installedPtr := flag.Bool("installed", false, "Report installed third-party drivers instead of scanning a backup folder")

	flag.Parse()

	if *versionPtr {
		fmt.Printf("drvscan v%s\n", version)
		os.Exit(0)
	}

	var result *backup.ScanResult
	if *installedPtr {
		result = scanInstalled()
	} else {
		folder := *folderPtr
		if folder == "" {
			cfg, err := drvault.HandleAllConfigSetup(*cfgPathPtr)
			if err != nil {
				logger.Errorf("Failed to handle drvault configuration: %s", err.Error())
				os.Exit(exitCodeScanFail)
			}
			folder = cfg.BackupPath
		}
		result = backup.ScanFolder(folder)
	}

	raw, err := backup.EncodeReport(result)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(exitCodeScanFail)
	}

	fmt.Println(string(raw))
	os.Exit(reportExitCode(result))
}

func scanInstalled() *backup.ScanResult {
	store := driverstore.NewStore(oscmd.NewRunner())
	records, err := store.Enumerate(context.Background())
	if err != nil {
		logger.Error(err.Error())
		os.Exit(exitCodeScanFail)
	}

	result := &backup.ScanResult{}
	for _, rec := range records {
		result.Drivers = append(result.Drivers, backup.ScannedDriver{DriverRecord: rec})
	}
	return result
}

// reportExitCode keeps the grep-like contract: a populated report exits
// zero, folder- or file-level scan errors beat the empty code.
func reportExitCode(result *backup.ScanResult) int {
	if len(result.Drivers) > 0 {
		return exitCodeFound
	}
	for _, scanErr := range result.Errors {
		if scanErr.Message != backup.NoInfFilesMessage {
			return exitCodeScanFail
		}
	}
	return exitCodeEmpty
}
