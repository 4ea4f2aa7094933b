package oscmd

import (
	"strings"
)

// Command describes one invocation of an external OS tool. Arguments are
// kept as a list and handed to exec.Command as-is, so no shell quoting or
// string interpolation ever happens on this side.
type Command struct {
	Path        string
	Args        []string
	Description string
}

func NewCommand(description, path string, args ...string) Command {
	return Command{
		Path:        path,
		Args:        args,
		Description: description,
	}
}

// String returns the command line for logging purposes only.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// PowerShell builds a command that runs the given script through
// powershell.exe without loading profiles and without prompting.
func PowerShell(description, script string) Command {
	return Command{
		Path:        "powershell",
		Args:        []string{"-NoProfile", "-NonInteractive", "-Command", script},
		Description: description,
	}
}

// QuotePSString single-quotes a value for use inside a PowerShell script,
// doubling embedded single quotes. Single-quoted PowerShell strings
// undergo no variable expansion, so this is the only escaping needed.
func QuotePSString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
