// +build windows

package driverstore

import (
	"strings"
	"time"

	wmiutil "github.com/drvault/drvault/pkg/wmi"
)

const wmiQueryTimeout = 30 * time.Second

type win32PnPSignedDriver struct {
	InfName            *string
	DriverProviderName *string
	DeviceClass        *string
	DriverVersion      *string
	DriverDate         *string
}

// enumerateWMI queries Win32_PnPSignedDriver as a last-resort snapshot
// source. WMI only knows the published (oemNN.inf) name, not the original
// INF name, so these records carry less identity than the other sources.
func enumerateWMI() ([]DriverRecord, error) {
	var wmiDrivers []win32PnPSignedDriver
	err := wmiutil.QueryWithContext(wmiQueryTimeout,
		"Select InfName,DriverProviderName,DeviceClass,DriverVersion,DriverDate from Win32_PnPSignedDriver", &wmiDrivers)
	if err != nil {
		return nil, err
	}

	var records []DriverRecord
	for _, d := range wmiDrivers {
		if d.InfName == nil || !strings.HasPrefix(strings.ToLower(*d.InfName), "oem") {
			// inbox drivers are not backup candidates
			continue
		}

		rec := DriverRecord{PublishedName: *d.InfName}
		if d.DriverProviderName != nil {
			rec.Provider = *d.DriverProviderName
		}
		if d.DeviceClass != nil {
			rec.ClassName = *d.DeviceClass
		}
		if d.DriverVersion != nil {
			rec.Version = *d.DriverVersion
		}
		if d.DriverDate != nil {
			rec.Date = *d.DriverDate
		}

		records = append(records, rec)
	}

	return records, nil
}
