package driverstore

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drvault/drvault/pkg/oscmd"
)

type fakeRunner struct {
	results map[string]*oscmd.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, cmd oscmd.Command) (*oscmd.Result, error) {
	f.calls = append(f.calls, cmd.Path)
	if err, ok := f.errs[cmd.Path]; ok {
		return &oscmd.Result{}, err
	}
	if res, ok := f.results[cmd.Path]; ok {
		return res, nil
	}
	return &oscmd.Result{}, errors.Errorf("unexpected command: %s", cmd.Path)
}

func (f *fakeRunner) Stream(_ context.Context, cmd oscmd.Command, l oscmd.Listener) (*int, error) {
	f.calls = append(f.calls, cmd.Path)
	res, err := f.Run(context.Background(), cmd)
	if err != nil {
		l.OnEnd(nil)
		return nil, err
	}
	l.OnStart(cmd.Description)
	l.OnEnd(res.ExitCode)
	return res.ExitCode, nil
}

func exitCode(code int) *int {
	return &code
}

const pnputilSample = `Published Name:     oem5.inf
Original Name:      acmenet.inf
Provider Name:      Acme Corp
Class Name:         Net
Driver Version:     10/21/2022 3.1.2.0
`

func TestDriverRecordKey(t *testing.T) {
	a := DriverRecord{OriginalName: "AcmeNet.INF", Version: "3.1.2.0"}
	b := DriverRecord{OriginalName: "acmenet.inf", Version: "3.1.2.0"}
	c := DriverRecord{OriginalName: "acmenet.inf", Version: "3.1.2.1"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestEnumerateUsesPnputil(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*oscmd.Result{
			"pnputil": {Stdout: pnputilSample, ExitCode: exitCode(0)},
		},
	}

	store := NewStore(runner)
	records, err := store.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "acmenet.inf", records[0].OriginalName)
	assert.Equal(t, []string{"pnputil"}, runner.calls)
}

func TestEnumerateFallsBackToPowerShell(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{
			"pnputil": errors.New("executable file not found"),
		},
		results: map[string]*oscmd.Result{
			"powershell": {
				Stdout:   `{"Driver":"oem5.inf","OriginalFileName":"C:\\Store\\acmenet.inf","ProviderName":"Acme Corp","ClassName":"Net","Version":"3.1.2.0"}`,
				ExitCode: exitCode(0),
			},
		},
	}

	store := NewStore(runner)
	records, err := store.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "acmenet.inf", records[0].OriginalName)
	assert.Equal(t, []string{"pnputil", "powershell"}, runner.calls)
}

func TestEnumerateEmptySystem(t *testing.T) {
	// a freshly installed system has no third-party packages, every
	// source succeeds with an empty result
	runner := &fakeRunner{
		results: map[string]*oscmd.Result{
			"pnputil":    {Stdout: "No published driver packages were found on the system.\n", ExitCode: exitCode(0)},
			"powershell": {Stdout: "", ExitCode: exitCode(0)},
		},
	}

	store := NewStore(runner)
	records, err := store.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, []string{"pnputil", "powershell"}, runner.calls)
}

func TestEnumerateEmptySnapshotWithoutFallbacks(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*oscmd.Result{
			"pnputil": {Stdout: "", ExitCode: exitCode(0)},
		},
		errs: map[string]error{
			"powershell": errors.New("executable file not found"),
		},
	}

	store := NewStore(runner)
	records, err := store.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestResolveInfPaths(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]*oscmd.Result{
			"powershell": {
				Stdout:   `{"Driver":"oem5.inf","OriginalFileName":"C:\\Windows\\System32\\DriverStore\\FileRepository\\acmenet.inf_amd64_1234\\acmenet.inf","ProviderName":"Acme Corp","ClassName":"Net","Version":"3.1.2.0"}`,
				ExitCode: exitCode(0),
			},
		},
	}

	store := NewStore(runner)
	records := []DriverRecord{{
		PublishedName: "oem5.inf",
		OriginalName:  "acmenet.inf",
		Provider:      "Acme Corp",
		Version:       "3.1.2.0",
	}}

	resolved, err := store.ResolveInfPaths(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, `C:\Windows\System32\DriverStore\FileRepository\acmenet.inf_amd64_1234\acmenet.inf`, resolved[0].FullInfPath)
}

func TestResolveInfPathsSkipsLookupWhenComplete(t *testing.T) {
	runner := &fakeRunner{}

	store := NewStore(runner)
	records := []DriverRecord{{
		OriginalName: "acmenet.inf",
		Version:      "3.1.2.0",
		FullInfPath:  `C:\store\acmenet\acmenet.inf`,
	}}

	resolved, err := store.ResolveInfPaths(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, records, resolved)
	assert.Empty(t, runner.calls)
}

func TestEnumerateAllSourcesFailing(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{
			"pnputil":    errors.New("executable file not found"),
			"powershell": errors.New("executable file not found"),
		},
	}

	store := NewStore(runner)
	_, err := store.Enumerate(context.Background())
	assert.Error(t, err)
}

func TestCommandBuilders(t *testing.T) {
	store := NewStore(nil)

	enum := store.EnumCommand()
	assert.Equal(t, "pnputil", enum.Path)
	assert.Equal(t, []string{"/enum-drivers"}, enum.Args)

	install := store.InstallCommand(`D:\backup\acmenet\acmenet.inf`)
	assert.Equal(t, []string{"/add-driver", `D:\backup\acmenet\acmenet.inf`, "/install"}, install.Args)

	export := store.ExportAllCommand(`D:\backup`)
	assert.Equal(t, "dism", export.Path)
	assert.Equal(t, []string{"/online", "/export-driver", `/destination:D:\backup`}, export.Args)
}
