// +build !windows

package driverstore

import (
	"github.com/pkg/errors"
)

var errWMINotImplemented = errors.New("WMI driver enumeration is not implemented for this OS")

func enumerateWMI() ([]DriverRecord, error) {
	return nil, errWMINotImplemented
}
