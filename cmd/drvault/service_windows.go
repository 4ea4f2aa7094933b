// +build windows

package main

import (
	"github.com/drvault/drvault"
)

// the windows service always runs as LocalSystem, no user switch needed
func updateServiceConfig(dv *drvault.DrVault, userName string) {
}
