package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drvault/drvault/pkg/backup"
	"github.com/drvault/drvault/pkg/driverstore"
)

func TestReportExitCode(t *testing.T) {
	populated := &backup.ScanResult{
		Drivers: []backup.ScannedDriver{{
			DriverRecord: driverstore.DriverRecord{OriginalName: "acmenet.inf"},
		}},
	}
	assert.Equal(t, exitCodeFound, reportExitCode(populated))

	empty := &backup.ScanResult{}
	empty.AddError(`D:\backup`, backup.NoInfFilesMessage)
	assert.Equal(t, exitCodeEmpty, reportExitCode(empty))

	failed := &backup.ScanResult{}
	failed.AddError(`D:\backup\broken.inf`, "missing [Version] section")
	assert.Equal(t, exitCodeScanFail, reportExitCode(failed))

	// drivers found despite a broken sibling file still counts as found
	mixed := &backup.ScanResult{Drivers: populated.Drivers}
	mixed.AddError(`D:\backup\broken.inf`, "missing [Version] section")
	assert.Equal(t, exitCodeFound, reportExitCode(mixed))
}
