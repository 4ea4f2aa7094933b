package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault"
)

func handleFlagServiceUninstall(dv *drvault.DrVault, serviceUninstall bool) {
	if !serviceUninstall {
		return
	}

	systemService, err := getServiceFromFlags(dv, "", "")
	if err != nil {
		log.Fatalf("Failed to get system service: %s", err.Error())
	}

	status, err := systemService.Status()
	if err != nil {
		fmt.Println("Failed to get service status: ", err.Error())
	}

	if status == service.StatusRunning {
		err = systemService.Stop()
		if err != nil {
			// don't exit here, just write a warning and try to uninstall
			fmt.Println("Failed to stop the running service: ", err.Error())
		}
	}

	err = systemService.Uninstall()
	if err != nil {
		fmt.Println("Failed to uninstall the service: ", err.Error())
		os.Exit(1)
	}

	os.Exit(0)
}

func handleFlagServiceInstall(dv *drvault.DrVault, systemManager service.System, serviceInstallUserPtr *string, serviceInstallPtr *bool, cfgPath string) {
	// serviceInstallPtr is currently used on windows
	// serviceInstallUserPtr is used on other systems
	// if both of them are empty - just return
	if (serviceInstallUserPtr == nil || *serviceInstallUserPtr == "") &&
		(serviceInstallPtr == nil || !*serviceInstallPtr) {
		return
	}

	username := ""
	if serviceInstallUserPtr != nil {
		username = *serviceInstallUserPtr
	}

	s, err := getServiceFromFlags(dv, cfgPath, username)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	if runtime.GOOS != "windows" {
		updateServiceConfig(dv, username)
	}

	tryInstallService(s, systemManager)

	fmt.Printf("drvault service(%s) installed. Starting...\n", systemManager.String())
	err = s.Start()
	if err != nil {
		fmt.Println(err.Error())
	}

	fmt.Printf("Log file located at: %s\n", dv.Config.LogFile)
	fmt.Printf("Config file located at: %s\n", cfgPath)
	fmt.Printf("Backup folder located at: %s\n", dv.Config.BackupPath)

	fmt.Printf("Run this command to restart the service: %s\n\n", getSystemMangerCommand(systemManager.String(), svcConfig.Name, "restart"))

	os.Exit(0)
}

func tryInstallService(s service.Service, systemManager service.System) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.Install()
		// Check error case where the service already exists
		if err != nil && strings.Contains(err.Error(), "already exists") {
			fmt.Printf("drvault service(%s) already installed: %s\n", systemManager.String(), err.Error())

			if attempt == maxAttempts {
				fmt.Printf("Give up after %d attempts\n", maxAttempts)
				os.Exit(1)
			}

			osSpecificNote := ""
			if runtime.GOOS == "windows" {
				osSpecificNote = " Windows Services Manager app should not be opened!"
			}
			if askForConfirmation("Do you want to overwrite it?" + osSpecificNote) {
				err = s.Stop()
				if err != nil {
					fmt.Println("Failed to stop the service: ", err.Error())
				}

				// lets try to uninstall despite of this error
				err := s.Uninstall()
				if err != nil {
					fmt.Println("Failed to uninstall the service: ", err.Error())
					os.Exit(1)
				}
			}
		} else if err != nil {
			fmt.Printf("drvault service(%s) installing error: %s\n", systemManager.String(), err.Error())
			os.Exit(1)
		} else {
			break
		}
	}
}
