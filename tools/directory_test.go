package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentichat/agentichat/sandbox"
)

func testSandbox(t *testing.T) (*sandbox.Sandbox, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := sandbox.New(root, sandbox.DefaultBlockedPatterns, sandbox.DefaultIgnoreDirs, sandbox.DefaultMaxFileSize)
	if err != nil {
		t.Fatalf("sandbox.New failed: %v", err)
	}
	return sb, root
}

func TestCreateDirectory(t *testing.T) {
	sb, root := testSandbox(t)
	tool := NewCreateDirectoryTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": "a/b/c"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error: %s", res.Error)
	}
	if info, statErr := os.Stat(filepath.Join(root, "a", "b", "c")); statErr != nil || !info.IsDir() {
		t.Fatalf("directory was not created: %v", statErr)
	}
}

func TestCreateDirectoryAlreadyExists(t *testing.T) {
	sb, _ := testSandbox(t)
	tool := NewCreateDirectoryTool(sb)
	tool.Execute(context.Background(), map[string]interface{}{"path": "dup"})

	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": "dup"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for already-existing directory")
	}
}

func TestDeleteDirectoryRequiresRecursiveWhenNonEmpty(t *testing.T) {
	sb, root := testSandbox(t)
	if err := os.MkdirAll(filepath.Join(root, "d", "inner"), 0o755); err != nil {
		t.Fatal(err)
	}
	tool := NewDeleteDirectoryTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": "d"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure deleting non-empty directory without recursive")
	}

	res, err = tool.Execute(context.Background(), map[string]interface{}{"path": "d", "recursive": true})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected recursive delete to succeed, got: %s", res.Error)
	}
	if _, statErr := os.Stat(filepath.Join(root, "d")); !os.IsNotExist(statErr) {
		t.Fatal("directory still exists after recursive delete")
	}
}

func TestMoveFile(t *testing.T) {
	sb, root := testSandbox(t)
	if err := os.WriteFile(filepath.Join(root, "src.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewMoveFileTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"source": "src.txt", "destination": "dst.txt"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if _, statErr := os.Stat(filepath.Join(root, "src.txt")); !os.IsNotExist(statErr) {
		t.Fatal("source still exists after move")
	}
	if _, statErr := os.Stat(filepath.Join(root, "dst.txt")); statErr != nil {
		t.Fatal("destination missing after move")
	}
}

func TestMoveFileDestinationExistsWithoutOverwrite(t *testing.T) {
	sb, root := testSandbox(t)
	os.WriteFile(filepath.Join(root, "src.txt"), []byte("hi"), 0o644)
	os.WriteFile(filepath.Join(root, "dst.txt"), []byte("there"), 0o644)
	tool := NewMoveFileTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"source": "src.txt", "destination": "dst.txt"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure when destination exists and overwrite is false")
	}
}

func TestCopyFileReportsBytesCopied(t *testing.T) {
	sb, root := testSandbox(t)
	content := "hello world"
	os.WriteFile(filepath.Join(root, "src.txt"), []byte(content), 0o644)
	tool := NewCopyFileTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"source": "src.txt", "destination": "dst.txt"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	payload := res.Payload.(map[string]interface{})
	if payload["bytes_copied"].(int64) != int64(len(content)) {
		t.Errorf("bytes_copied = %v, want %d", payload["bytes_copied"], len(content))
	}
	if _, statErr := os.Stat(filepath.Join(root, "src.txt")); statErr != nil {
		t.Fatal("source should still exist after copy")
	}
}

func TestCopyDirectoryTree(t *testing.T) {
	sb, root := testSandbox(t)
	os.MkdirAll(filepath.Join(root, "srcdir", "nested"), 0o755)
	os.WriteFile(filepath.Join(root, "srcdir", "a.txt"), []byte("a"), 0o644)
	os.WriteFile(filepath.Join(root, "srcdir", "nested", "b.txt"), []byte("b"), 0o644)
	tool := NewCopyFileTool(sb)

	res, err := tool.Execute(context.Background(), map[string]interface{}{"source": "srcdir", "destination": "dstdir"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if _, statErr := os.Stat(filepath.Join(root, "dstdir", "nested", "b.txt")); statErr != nil {
		t.Fatal("nested file missing after directory copy")
	}
}
