package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/kardianos/service"
	"github.com/nightlyone/lockfile"
	log "github.com/sirupsen/logrus"

	"github.com/drvault/drvault"
	"github.com/drvault/drvault/pkg/backup"
	"github.com/drvault/drvault/pkg/driverstore"
)

var (
	// set on build:
	// go build -o drvault -ldflags="-X main.version=$(git describe --always --long --dirty --tag)" github.com/drvault/drvault/cmd/drvault
	version string
)

var svcConfig = &service.Config{
	Name:        "drvault",
	DisplayName: "DrVault",
	Description: "Driver backup and restore service",
}

func askForConfirmation(s string) bool {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Printf("%s [y/n]: ", s)

		response, err := reader.ReadString('\n')
		if err != nil {
			log.Fatalf("Failed to read confirmation: %s", err.Error())
		}

		response = strings.ToLower(strings.TrimSpace(response))

		if response == "y" || response == "yes" {
			return true
		} else if response == "n" || response == "no" {
			return false
		}
	}
}

func main() {
	systemManager := service.ChosenSystem()

	var serviceInstallUserPtr *string
	var serviceInstallPtr *bool

	cfgPathPtr := flag.String("c", drvault.DefaultCfgPath, "config file path")
	logLevelPtr := flag.String("v", "", "log level – overrides the level in config file (values \"error\",\"info\",\"debug\")")
	printConfigPtr := flag.Bool("p", false, "print the active config")
	backupPtr := flag.Bool("backup", false, "back up all third-party drivers and exit")
	restorePtr := flag.Bool("restore", false, "restore drivers from the backup folder and exit")
	scanPtr := flag.Bool("scan", false, "list the driver packages found in the backup folder and exit")
	listPtr := flag.Bool("list", false, "list the installed third-party drivers and exit")
	onlyPtr := flag.String("only", "", "comma-separated INF names restricting -backup or -restore to those packages")
	fromScanPtr := flag.String("from-scan", "", "restore the drivers listed in a drvscan JSON report instead of re-scanning the backup folder")
	assumeYesPtr := flag.Bool("y", false, "install already-installed driver versions without asking")
	serviceUninstallPtr := flag.Bool("u", false, fmt.Sprintf("stop and uninstall the system service(%s)", systemManager.String()))

	versionPtr := flag.Bool("version", false, "show the drvault version")

	// some OS specific flags
	if runtime.GOOS == "windows" {
		serviceInstallPtr = flag.Bool("s", false, fmt.Sprintf("install and start the system service(%s)", systemManager.String()))
	} else {
		serviceInstallUserPtr = flag.String("s", "", fmt.Sprintf("username to install and start the system service(%s)", systemManager.String()))
	}

	flag.Parse()

	// version should be handled first to ensure it will be accessible in case of fatal errors before
	handleFlagVersion(*versionPtr)

	if *serviceUninstallPtr &&
		(serviceInstallUserPtr != nil && *serviceInstallUserPtr != "" ||
			serviceInstallPtr != nil && *serviceInstallPtr) {
		fmt.Println("Service uninstall(-u) flag can't be used together with service install(-s) flag")
		os.Exit(1)
	}

	cfg, err := drvault.HandleAllConfigSetup(*cfgPathPtr)
	if err != nil {
		log.Fatalf("Failed to handle drvault configuration: %s", err.Error())
	}

	dv := drvault.New(cfg, *cfgPathPtr, version)

	handleFlagPrintConfig(*printConfigPtr, cfg)

	setDefaultLogFormatter()
	dv.ConfigureLogger()

	// log level set in flag has a precedence. If specified we need to set it ASAP
	handleFlagLogLevel(dv, *logLevelPtr)

	oneShotMode := *backupPtr || *restorePtr || *scanPtr || *listPtr

	handleFlagList(dv, *listPtr)
	handleFlagScan(dv, *scanPtr)
	handleFlagBackup(dv, *backupPtr, *onlyPtr)
	handleFlagRestore(dv, *restorePtr, *onlyPtr, *fromScanPtr, *assumeYesPtr)

	handleFlagServiceUninstall(dv, *serviceUninstallPtr)
	handleFlagServiceInstall(dv, systemManager, serviceInstallUserPtr, serviceInstallPtr, *cfgPathPtr)

	writePidFileIfNeeded(dv, oneShotMode)
	defer removePidFileIfNeeded(dv, oneShotMode)

	if !service.Interactive() {
		runUnderOsServiceManager(dv)
	}

	// nothing resulted in os.Exit
	// so lets use the default continuous run mode and wait for interrupt
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM)
	interruptChan := make(chan struct{})
	doneChan := make(chan struct{})
	go func() {
		dv.Run(interruptChan)
		doneChan <- struct{}{}
	}()

	select {
	case sig := <-sigc:
		log.Infof("Got %s signal. Finishing the current operation and exit...", sig.String())
		interruptChan <- struct{}{}
		os.Exit(0)
	case <-doneChan:
		os.Exit(0)
	}
}

func handleFlagVersion(versionFlag bool) {
	if versionFlag {
		fmt.Printf("drvault v%s released under MIT license. https://github.com/drvault/drvault/\n", version)
		os.Exit(0)
	}
}

func handleFlagPrintConfig(printConfig bool, cfg *drvault.Config) {
	if printConfig {
		fmt.Println(cfg.DumpToml())
		os.Exit(0)
	}
}

func handleFlagLogLevel(dv *drvault.DrVault, logLevel string) {
	if logLevel == string(drvault.LogLevelError) || logLevel == string(drvault.LogLevelInfo) || logLevel == string(drvault.LogLevelDebug) {
		dv.SetLogLevel(drvault.LogLevel(logLevel))
	} else if logLevel != "" {
		log.Warnf("Invalid log level: \"%s\". Set to default: \"%s\"", logLevel, dv.Config.LogLevel)
	}
}

func handleFlagList(dv *drvault.DrVault, list bool) {
	if !list {
		return
	}

	records, err := dv.ListInstalledDrivers(context.Background())
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	for _, rec := range records {
		fmt.Printf("%-14s %-40s %-16s %s\n", rec.PublishedName, rec.OriginalName, rec.Version, rec.Provider)
	}

	os.Exit(0)
}

func handleFlagScan(dv *drvault.DrVault, scan bool) {
	if !scan {
		return
	}

	res, err := dv.ScanBackups()
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	for _, d := range res.Drivers {
		annotated := ""
		if d.Backup != nil {
			annotated = fmt.Sprintf(" (backed up %s)", d.Backup.BackupDate)
		}
		fmt.Printf("%-40s %-16s %s%s\n", d.OriginalName, d.Version, d.Provider, annotated)
	}

	for _, e := range res.Errors {
		fmt.Printf("! %s: %s\n", e.Path, e.Message)
	}

	os.Exit(0)
}

func handleFlagBackup(dv *drvault.DrVault, doBackup bool, only string) {
	if !doBackup {
		return
	}

	unlock := mustAcquireRunLock()
	defer unlock()

	ctx := context.Background()

	var err error
	if only == "" {
		err = dv.FullBackup(ctx)
	} else {
		var selected []driverstore.DriverRecord
		selected, err = selectInstalled(dv, only)
		if err == nil {
			err = dv.SelectiveBackup(ctx, selected)
		}
	}

	if err != nil {
		notifyError("Driver backup failed", err.Error())
		fmt.Println(err.Error())
		os.Exit(1)
	}

	notifySuccess("Driver backup finished", fmt.Sprintf("Packages stored under %s", dv.Config.BackupPath))
	os.Exit(0)
}

func handleFlagRestore(dv *drvault.DrVault, doRestore bool, only, fromScan string, assumeYes bool) {
	if !doRestore {
		return
	}

	unlock := mustAcquireRunLock()
	defer unlock()

	ctx := context.Background()
	prompter := &consolePrompter{assumeYes: assumeYes}

	var err error
	switch {
	case fromScan != "":
		var selected []driverstore.DriverRecord
		selected, err = selectFromScanReport(fromScan, only)
		if err == nil {
			err = dv.SelectiveRestore(ctx, selected, prompter)
		}
	case only != "":
		var selected []driverstore.DriverRecord
		selected, err = selectBackups(dv, only)
		if err == nil {
			err = dv.SelectiveRestore(ctx, selected, prompter)
		}
	default:
		err = dv.FullRestore(ctx, prompter)
	}

	if err == drvault.ErrRestoreCancelled {
		fmt.Println("Restore cancelled. No drivers were installed.")
		os.Exit(0)
	}
	if err != nil {
		notifyError("Driver restore failed", err.Error())
		fmt.Println(err.Error())
		os.Exit(1)
	}

	notifySuccess("Driver restore finished", "")
	os.Exit(0)
}

// selectInstalled resolves the -only INF names against the installed
// third-party drivers.
func selectInstalled(dv *drvault.DrVault, only string) ([]driverstore.DriverRecord, error) {
	records, err := dv.ListInstalledDrivers(context.Background())
	if err != nil {
		return nil, err
	}

	return filterByName(records, only)
}

// selectFromScanReport reads a drvscan JSON report and resolves it into
// restore candidates, optionally narrowed by the -only INF names.
func selectFromScanReport(path, only string) ([]driverstore.DriverRecord, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan report %s: %s", path, err.Error())
	}

	res, err := backup.DecodeReport(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode scan report %s: %s", path, err.Error())
	}

	records := res.Records()
	if len(records) == 0 {
		return nil, fmt.Errorf("scan report %s lists no driver packages", path)
	}

	if only == "" {
		return records, nil
	}
	return filterByName(records, only)
}

// selectBackups resolves the -only INF names against the backup folder.
func selectBackups(dv *drvault.DrVault, only string) ([]driverstore.DriverRecord, error) {
	res, err := dv.ScanBackups()
	if err != nil {
		return nil, err
	}

	return filterByName(res.Records(), only)
}

func filterByName(records []driverstore.DriverRecord, only string) ([]driverstore.DriverRecord, error) {
	wanted := map[string]bool{}
	for _, name := range strings.Split(only, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			wanted[name] = true
		}
	}

	var selected []driverstore.DriverRecord
	for _, rec := range records {
		if wanted[strings.ToLower(rec.OriginalName)] {
			selected = append(selected, rec)
			delete(wanted, strings.ToLower(rec.OriginalName))
		}
	}

	if len(wanted) > 0 {
		var missing []string
		for name := range wanted {
			missing = append(missing, name)
		}
		return nil, fmt.Errorf("no driver package found for: %s", strings.Join(missing, ", "))
	}

	return selected, nil
}

// mustAcquireRunLock guards driver-mutating operations against a second
// drvault process. The scheduled service run and a manual -backup must
// not export into the same folder at once.
func mustAcquireRunLock() func() {
	lock, err := lockfile.New(filepath.Join(os.TempDir(), "drvault.lock"))
	if err != nil {
		log.Fatalf("Failed to init the run lock: %s", err.Error())
	}

	if err := lock.TryLock(); err != nil {
		fmt.Printf("Another drvault operation is already running: %s\n", err.Error())
		os.Exit(1)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			log.Warnf("Failed to release the run lock: %s", err.Error())
		}
	}
}

func runUnderOsServiceManager(dv *drvault.DrVault) {
	systemService, err := getServiceFromFlags(dv, "", "")
	if err != nil {
		log.Fatalf("Failed to get system service: %s", err.Error())
	}

	// we are running under OS service manager
	err = systemService.Run()
	if err != nil {
		log.Fatalf("Failed to run system service: %s", err.Error())
	}

	os.Exit(0)
}

func writePidFileIfNeeded(dv *drvault.DrVault, oneShotMode bool) {
	if dv.Config.PidFile != "" && !oneShotMode && runtime.GOOS != "windows" {
		err := ioutil.WriteFile(dv.Config.PidFile, []byte(strconv.Itoa(os.Getpid())), 0664)
		if err != nil {
			log.Errorf("Failed to write pid file at: %s", dv.Config.PidFile)
		}
	}
}

func removePidFileIfNeeded(dv *drvault.DrVault, oneShotMode bool) {
	if dv.Config.PidFile != "" && !oneShotMode && runtime.GOOS != "windows" {
		err := os.Remove(dv.Config.PidFile)
		if err != nil {
			log.Errorf("Failed to remove pid file at: %s", dv.Config.PidFile)
		}
	}
}

type serviceWrapper struct {
	DrVault       *drvault.DrVault
	InterruptChan chan struct{}
	DoneChan      chan struct{}
}

func (sw *serviceWrapper) Start(s service.Service) error {
	sw.InterruptChan = make(chan struct{})
	sw.DoneChan = make(chan struct{})
	go func() {
		sw.DrVault.Run(sw.InterruptChan)
		sw.DoneChan <- struct{}{}
	}()

	return nil
}

func (sw *serviceWrapper) Stop(s service.Service) error {
	sw.InterruptChan <- struct{}{}
	log.Println("Finishing the current operation and stopping the service...")
	<-sw.DoneChan
	return nil
}

func getServiceFromFlags(dv *drvault.DrVault, configPath, userName string) (service.Service, error) {
	prg := &serviceWrapper{DrVault: dv}

	if configPath != "" {
		if !filepath.IsAbs(configPath) {
			var err error
			configPath, err = filepath.Abs(configPath)
			if err != nil {
				return nil, fmt.Errorf("Failed to get absolute path to config at '%s': %s", configPath, err)
			}
		}
		svcConfig.Arguments = []string{"-c", configPath}
	}

	if userName != "" {
		svcConfig.UserName = userName
	}

	return service.New(prg, svcConfig)
}

func setDefaultLogFormatter() {
	tfmt := log.TextFormatter{FullTimestamp: true}
	if runtime.GOOS == "windows" {
		tfmt.DisableColors = true
	}

	log.SetFormatter(&tfmt)
}

func getSystemMangerCommand(manager string, service string, command string) string {
	switch manager {
	case "unix-systemv":
		return "sudo service " + service + " " + command
	case "linux-upstart":
		return "sudo initctl " + command + " " + service
	case "linux-systemd":
		return "sudo systemctl " + command + " " + service + ".service"
	case "darwin-launchd":
		switch command {
		case "stop":
			command = "unload"
		case "start":
			command = "load"
		case "restart":
			return "sudo launchctl unload " + service + " && sudo launchctl load " + service
		}
		return "sudo launchctl " + command + " " + service
	case "windows-service":
		return "sc " + command + " " + service
	default:
		return ""
	}
}
