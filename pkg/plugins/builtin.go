package plugins

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// BuiltinVersion is reported by every builtin plugin
const BuiltinVersion = "0.1.0"

const builtinAuthor = "hubcap"

// BuiltinPlugin is an in-process plugin registered without a manifest
type BuiltinPlugin struct {
	Descriptor Descriptor
	Instance   Plugin
}

// BuiltinPlugins returns the first-party wrappers around fd and ripgrep
func BuiltinPlugins() []BuiltinPlugin {
	return []BuiltinPlugin{
		newCommandBuiltin(
			"fd",
			"First-party wrapper around fd (fd-find) for fast file discovery.",
			"Wrapper around fd (fd-find). Supply a pattern and optional path, for example: fd src main.",
			"fd",
			nil,
		),
		newCommandBuiltin(
			"rg",
			"Ripgrep (rg) wrapper for searching file contents.",
			"Wrapper around ripgrep (rg). Provide a pattern and optional path or flags. "+
				"Runs rg --help when no arguments are given.",
			"rg",
			[]string{"--help"},
		),
	}
}

func newCommandBuiltin(name, description, help, command string, defaultArgs []string) BuiltinPlugin {
	md := Metadata{
		Name:         name,
		Version:      BuiltinVersion,
		Description:  description,
		Author:       builtinAuthor,
		Help:         help,
		ManifestPath: "builtin://" + name + "/manifest",
		LibraryPath:  "builtin://" + name + "/library",
	}

	return BuiltinPlugin{
		Descriptor: Descriptor{Metadata: md, Builtin: true},
		Instance: &commandPlugin{
			metadata:    md,
			command:     command,
			defaultArgs: defaultArgs,
			stdin:       os.Stdin,
			stdout:      os.Stdout,
			stderr:      os.Stderr,
		},
	}
}

// commandPlugin runs an external program with the caller's stdio
type commandPlugin struct {
	metadata    Metadata
	command     string
	defaultArgs []string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (p *commandPlugin) Name() string        { return p.metadata.Name }
func (p *commandPlugin) Description() string { return p.metadata.Description }
func (p *commandPlugin) Version() string     { return p.metadata.Version }
func (p *commandPlugin) Author() string      { return p.metadata.Author }
func (p *commandPlugin) Help() string        { return p.metadata.Help }

func (p *commandPlugin) Execute(ctx context.Context, args []string, _ ExecContext) error {
	if len(args) == 0 {
		args = p.defaultArgs
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	cmd.Stdin = p.stdin
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%s exited with status %d", p.metadata.Name, exitErr.ExitCode())
		}
		return fmt.Errorf("failed to run %s: %w", p.command, err)
	}
	return nil
}
