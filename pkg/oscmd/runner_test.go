package oscmd

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	started  []string
	stdout   []string
	stderr   []string
	exitCode *int
	ended    int
}

func (l *recordingListener) OnStart(description string) {
	l.started = append(l.started, description)
}

func (l *recordingListener) OnOutput(line string, isErrorStream bool) {
	if isErrorStream {
		l.stderr = append(l.stderr, line)
	} else {
		l.stdout = append(l.stdout, line)
	}
}

func (l *recordingListener) OnEnd(exitCode *int) {
	l.exitCode = exitCode
	l.ended++
}

func shellCommand(t *testing.T, description, script string) Command {
	if runtime.GOOS == "windows" {
		t.Skip("test uses a POSIX shell")
	}
	return NewCommand(description, "/bin/sh", "-c", script)
}

func TestRunBuffersBothStreams(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), shellCommand(t, "test run", "echo out; echo err 1>&2"))
	require.NoError(t, err)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunReportsNonZeroExitCode(t *testing.T) {
	r := NewRunner()

	res, err := r.Run(context.Background(), shellCommand(t, "failing run", "exit 3"))
	require.NoError(t, err)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
	assert.False(t, res.Succeeded())
}

func TestRunSpawnFailure(t *testing.T) {
	r := NewRunner()

	cmd := NewCommand("missing tool", "definitely-not-an-existing-binary-4242")
	res, err := r.Run(context.Background(), cmd)
	assert.Error(t, err)
	assert.Nil(t, res.ExitCode)
}

func TestStreamDeliversEventsInOrder(t *testing.T) {
	r := NewRunner()
	l := &recordingListener{}

	code, err := r.Stream(context.Background(), shellCommand(t, "streamed run", "echo one; echo two; echo oops 1>&2; exit 2"), l)
	require.NoError(t, err)
	require.NotNil(t, code)
	assert.Equal(t, 2, *code)

	assert.Equal(t, []string{"streamed run"}, l.started)
	assert.Equal(t, []string{"one", "two"}, l.stdout)
	assert.Equal(t, []string{"oops"}, l.stderr)
	require.NotNil(t, l.exitCode)
	assert.Equal(t, 2, *l.exitCode)
	assert.Equal(t, 1, l.ended)
}

func TestStreamSpawnFailureStillEnds(t *testing.T) {
	r := NewRunner()
	l := &recordingListener{}

	cmd := NewCommand("missing tool", "definitely-not-an-existing-binary-4242")
	code, err := r.Stream(context.Background(), cmd, l)
	assert.Error(t, err)
	assert.Nil(t, code)
	assert.Equal(t, 1, l.ended)
	assert.Nil(t, l.exitCode)
}

func TestQuotePSString(t *testing.T) {
	assert.Equal(t, `'C:\Program Files\Vendor'`, QuotePSString(`C:\Program Files\Vendor`))
	assert.Equal(t, `'it''s here'`, QuotePSString("it's here"))
}

func TestPowerShellCommandShape(t *testing.T) {
	cmd := PowerShell("enumerate drivers", "Get-WindowsDriver -Online")
	assert.Equal(t, "powershell", cmd.Path)
	assert.Equal(t, []string{"-NoProfile", "-NonInteractive", "-Command", "Get-WindowsDriver -Online"}, cmd.Args)
	assert.Equal(t, "enumerate drivers", cmd.Description)
}
