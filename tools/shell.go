package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/sandbox"
)

// ShellExecTool runs a shell command inside the sandbox root (or a
// sandbox-relative cwd), bounded by a timeout.
type ShellExecTool struct {
	sb *sandbox.Sandbox
}

func NewShellExecTool(sb *sandbox.Sandbox) *ShellExecTool { return &ShellExecTool{sb: sb} }

func (t *ShellExecTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "shell_exec",
		Description: "Executes a shell command. Use for git, npm, make, docker, tests, etc.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"command": map[string]interface{}{"type": "string", "description": "Command to execute"},
				"cwd":     map[string]interface{}{"type": "string", "description": "Working directory (default: workspace root)"},
				"timeout": map[string]interface{}{"type": "integer", "description": "Timeout in seconds (default: 30)", "default": 30},
			},
			"required": []string{"command"},
		},
		Required: []string{"command"},
		Confirm:  ConfirmAlways,
	}
}

func (t *ShellExecTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	command, _ := args["command"].(string)
	cwdArg, _ := args["cwd"].(string)
	timeoutSecs, hasTimeout := intArg(args, "timeout")
	if !hasTimeout || timeoutSecs <= 0 {
		timeoutSecs = 30
	}

	workDir := t.sb.Root()
	if cwdArg != "" {
		resolved, err := t.sb.Resolve(cwdArg)
		if err != nil {
			return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
		}
		workDir = resolved
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return &Result{
			Success:   false,
			Error:     fmt.Sprintf("timed out after %ds", timeoutSecs),
			ErrorKind: errors.KindTimeout,
			Payload:   map[string]interface{}{"command": command},
		}, nil
	}

	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return &Result{Success: false, Error: runErr.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	return &Result{Success: exitCode == 0, Payload: map[string]interface{}{
		"command":    command,
		"returncode": exitCode,
		"stdout":     stdout.String(),
		"stderr":     stderr.String(),
	}}, nil
}
