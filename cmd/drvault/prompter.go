package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault/pkg/driverstore"
	"github.com/drvault/drvault/pkg/restore"
)

// consolePrompter resolves duplicate-driver questions on the terminal.
// With assumeYes set it installs every duplicate without asking, which
// matches the -y flag.
type consolePrompter struct {
	assumeYes bool
}

func (p *consolePrompter) ConfirmDuplicate(backup, installed driverstore.DriverRecord) (restore.Decision, error) {
	if p.assumeYes {
		return restore.DecisionInstallAll, nil
	}

	fmt.Printf("%s version %s is already installed.\n", backup.DisplayName(), installed.Version)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Install anyway? [y]es / [n]o / [a]ll duplicates / [c]ancel restore: ")

		response, err := reader.ReadString('\n')
		if err != nil {
			log.Errorf("Failed to read the answer: %s", err.Error())
			return restore.DecisionCancel, err
		}

		switch strings.ToLower(strings.TrimSpace(response)) {
		case "y", "yes":
			return restore.DecisionInstall, nil
		case "n", "no":
			return restore.DecisionSkip, nil
		case "a", "all":
			return restore.DecisionInstallAll, nil
		case "c", "cancel":
			return restore.DecisionCancel, nil
		}
	}
}
