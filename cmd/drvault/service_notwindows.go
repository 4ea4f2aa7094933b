// +build !windows

package main

import (
	"os"
	"os/user"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault"
)

func updateServiceConfig(dv *drvault.DrVault, userName string) {
	u, err := user.Lookup(userName)
	if err != nil {
		log.WithFields(log.Fields{
			"user": userName,
		}).WithError(err).Fatalln("Failed to find the user")
	}
	svcConfig.UserName = userName
	// we need to chown log file with user who will run service
	// because installer can be run under root so the log file will be also created under root
	err = chownFile(dv.Config.LogFile, u)
	if err != nil {
		log.WithFields(log.Fields{
			"user": userName,
		}).WithError(err).Warnln("Failed to chown log file")
	}
}

func chownFile(filePath string, u *user.User) error {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		err = errors.Wrapf(err, "UID(%s) to int conversion failed", u.Uid)
		return err
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		err = errors.Wrapf(err, "GID(%s) to int conversion failed", u.Gid)
		return err
	}

	return os.Chown(filePath, uid, gid)
}
