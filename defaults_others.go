// +build !windows,!darwin

package drvault

func init() {
	DefaultCfgPath = "/etc/drvault/drvault.conf"
	defaultLogPath = "/var/log/drvault/drvault.log"
	defaultBackupPath = "/var/lib/drvault/backup"
}
