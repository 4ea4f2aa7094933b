// +build windows

package winutil

import (
	"golang.org/x/sys/windows"
)

func tokenIsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
