// Package osinfo provides the host OS identity recorded in backup
// provenance sidecars.
package osinfo

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/host"
)

// GetOsName returns a human-readable OS name, e.g.
// "Microsoft Windows 10 Pro".
func GetOsName() (string, error) {
	info, err := host.Info()
	if err != nil {
		return "", errors.Wrap(err, "osinfo: query host info")
	}

	return info.Platform, nil
}

// GetOsBuild returns the OS version/build string.
func GetOsBuild() (string, error) {
	info, err := host.Info()
	if err != nil {
		return "", errors.Wrap(err, "osinfo: query host info")
	}

	return info.PlatformVersion, nil
}
