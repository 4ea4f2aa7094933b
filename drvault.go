package drvault

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/drvault/drvault/pkg/driverstore"
	"github.com/drvault/drvault/pkg/oscmd"
)

type DrVault struct {
	Config         *Config
	ConfigLocation string

	runner oscmd.CommandRunner
	store  *driverstore.Store

	opMu  sync.Mutex
	state OpState

	version string
}

func New(cfg *Config, cfgPath string, version string) *DrVault {
	runner := oscmd.NewRunner()

	store := driverstore.NewStore(runner)
	if cfg.PnputilPath != "" {
		store.PnputilPath = cfg.PnputilPath
	}
	if cfg.PowerShellPath != "" {
		store.PowerShellPath = cfg.PowerShellPath
	}

	dv := &DrVault{
		Config:         cfg,
		ConfigLocation: cfgPath,
		runner:         runner,
		store:          store,
		state:          StateIdle,
		version:        version,
	}

	dv.SetLogLevel(cfg.LogLevel)

	return dv
}

func (dv *DrVault) Version() string {
	if dv.version == "" {
		return "{undefined}"
	}
	return fmt.Sprintf("%s %s %s", dv.version, runtime.GOOS, runtime.GOARCH)
}
