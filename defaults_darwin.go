// +build darwin

package drvault

import (
	"os"
)

func init() {
	DefaultCfgPath = os.Getenv("HOME") + "/.drvault/drvault.conf"
	defaultLogPath = os.Getenv("HOME") + "/.drvault/drvault.log"
	defaultBackupPath = os.Getenv("HOME") + "/.drvault/backup"
}
