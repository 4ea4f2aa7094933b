// +build windows

package drvault

import (
	"os"
	"path/filepath"
)

func init() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}

	exPath := filepath.Dir(ex)

	DefaultCfgPath = filepath.Join(exPath, "./drvault.conf")
	defaultLogPath = filepath.Join(exPath, "./drvault.log")
	defaultBackupPath = filepath.Join(exPath, "./DriverBackup")
}
