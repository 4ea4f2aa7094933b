package drvault

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Run repeats scheduled full backups until interrupted. Used in service
// mode, where drvault keeps the backup folder current in the background.
func (dv *DrVault) Run(interrupt chan struct{}) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf("Unexpected error occurred (main routine): %s", err)
			panic(err)
		}
	}()

	log.Infof("drvault %s started, backing up every %s", dv.Version(), dv.Config.BackupInterval())

	for {
		err := dv.RunOnce(context.Background())
		if err != nil {
			log.Error(err)
		}

		select {
		case <-interrupt:
			return
		case <-time.After(dv.Config.BackupInterval()):
			continue
		}
	}
}

// RunOnce performs a single scheduled full backup.
func (dv *DrVault) RunOnce(ctx context.Context) error {
	return dv.FullBackup(ctx)
}
