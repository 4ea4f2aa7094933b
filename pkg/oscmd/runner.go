package oscmd

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// driver enumerations can produce tens of megabytes of text,
	// so the capture ceiling must be generous to avoid silent truncation
	maxStreamCaptureSize = 32 * 1024 * 1024

	initialScanBufferSize = 64 * 1024
)

// Listener receives the lifecycle events of one streamed command run:
// OnStart once, OnOutput per line, OnEnd exactly once.
type Listener interface {
	OnStart(description string)
	OnOutput(line string, isErrorStream bool)
	OnEnd(exitCode *int)
}

// Result holds the complete output of a buffered command run.
// ExitCode is nil when the process outcome could not be determined.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode *int
}

func (r *Result) Succeeded() bool {
	return r.ExitCode != nil && *r.ExitCode == 0
}

// CommandRunner abstracts process execution so workflows can be tested
// without spawning real OS tools.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
	Stream(ctx context.Context, cmd Command, listener Listener) (*int, error)
}

type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the command and buffers both streams until the process ends.
// Used by callers that must parse complete output before proceeding.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	execCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	osSpecificCommandConfig(execCmd)

	stdOutBuffer := newCaptureWriter(io.Discard, maxStreamCaptureSize)
	execCmd.Stdout = stdOutBuffer

	stdErrBuffer := newCaptureWriter(io.Discard, maxStreamCaptureSize)
	execCmd.Stderr = stdErrBuffer

	log.Debugf("oscmd: executing %s", cmd.String())

	runErr := execCmd.Run()
	result := &Result{
		Stdout: stdOutBuffer.String(),
		Stderr: stdErrBuffer.String(),
	}

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			result.ExitCode = &code
			return result, nil
		}
		return result, errors.Wrapf(runErr, "oscmd: could not execute %s", cmd.Path)
	}

	code := execCmd.ProcessState.ExitCode()
	result.ExitCode = &code
	return result, nil
}

// Stream executes the command and forwards its output line by line to the
// listener. It returns the exit code that was also delivered via OnEnd.
func (r *Runner) Stream(ctx context.Context, cmd Command, listener Listener) (*int, error) {
	execCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	osSpecificCommandConfig(execCmd)

	stdout, err := execCmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "oscmd: create stdout pipe")
	}

	stderr, err := execCmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "oscmd: create stderr pipe")
	}

	listener.OnStart(cmd.Description)
	log.Debugf("oscmd: executing %s", cmd.String())

	if err := execCmd.Start(); err != nil {
		listener.OnEnd(nil)
		return nil, errors.Wrapf(err, "oscmd: could not start %s", cmd.Path)
	}

	var outputMu sync.Mutex
	emit := func(line string, isErrorStream bool) {
		outputMu.Lock()
		listener.OnOutput(line, isErrorStream)
		outputMu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		forwardLines(stdout, false, emit)
	}()
	go func() {
		defer wg.Done()
		forwardLines(stderr, true, emit)
	}()

	wg.Wait()

	var exitCode *int
	waitErr := execCmd.Wait()
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			exitCode = &code
		} else {
			listener.OnEnd(nil)
			return nil, errors.Wrapf(waitErr, "oscmd: %s did not exit cleanly", cmd.Path)
		}
	} else {
		code := execCmd.ProcessState.ExitCode()
		exitCode = &code
	}

	listener.OnEnd(exitCode)
	return exitCode, nil
}

func forwardLines(r io.Reader, isErrorStream bool, emit func(string, bool)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialScanBufferSize), maxStreamCaptureSize)
	for scanner.Scan() {
		emit(scanner.Text(), isErrorStream)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Debug("oscmd: output stream read interrupted")
	}
}
