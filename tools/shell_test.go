package tools

import (
	"context"
	"testing"
)

func TestShellExecReturnsStdout(t *testing.T) {
	sb, _ := testSandbox(t)
	tool := NewShellExecTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"command": "echo hello"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, payload: %+v", res.Payload)
	}
	payload := res.Payload.(map[string]interface{})
	if payload["stdout"] != "hello\n" {
		t.Errorf("stdout = %q, want %q", payload["stdout"], "hello\n")
	}
	if payload["returncode"] != 0 {
		t.Errorf("returncode = %v, want 0", payload["returncode"])
	}
}

func TestShellExecNonZeroExit(t *testing.T) {
	sb, _ := testSandbox(t)
	tool := NewShellExecTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"command": "exit 3"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for non-zero exit code")
	}
	payload := res.Payload.(map[string]interface{})
	if payload["returncode"] != 3 {
		t.Errorf("returncode = %v, want 3", payload["returncode"])
	}
}

func TestShellExecTimeout(t *testing.T) {
	sb, _ := testSandbox(t)
	tool := NewShellExecTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"command": "sleep 5", "timeout": 1})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected timeout failure")
	}
}

func TestShellExecRequiresConfirmation(t *testing.T) {
	tool := NewShellExecTool(nil)
	if tool.Descriptor().Confirm != ConfirmAlways {
		t.Errorf("shell_exec Confirm policy = %v, want always", tool.Descriptor().Confirm)
	}
}
