package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentichat/agentichat/errors"
)

func newTestSandbox(t *testing.T) (*Sandbox, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := New(root, nil, nil, 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return sb, root
}

func TestResolveContainment(t *testing.T) {
	sb, root := newTestSandbox(t)

	if _, err := os.Create(filepath.Join(root, "inside.txt")); err != nil {
		t.Fatal(err)
	}

	resolved, err := sb.Resolve("inside.txt")
	if err != nil {
		t.Fatalf("Resolve(inside.txt) error: %v", err)
	}
	if filepath.Dir(resolved) != root {
		t.Errorf("resolved path %q not under root %q", resolved, root)
	}

	_, err = sb.Resolve("../outside.txt")
	if errors.KindOf(err) != errors.KindPathOutsideSandbox {
		t.Fatalf("Resolve(../outside.txt) kind = %v, want PATH_OUTSIDE_SANDBOX", errors.KindOf(err))
	}
}

func TestResolveBlockedPattern(t *testing.T) {
	sb, _ := newTestSandbox(t)

	_, err := sb.Resolve(".env")
	if errors.KindOf(err) != errors.KindPathBlocked {
		t.Fatalf("Resolve(.env) kind = %v, want PATH_BLOCKED", errors.KindOf(err))
	}

	_, err = sb.Resolve("id_rsa")
	if errors.KindOf(err) != errors.KindPathBlocked {
		t.Fatalf("Resolve(id_rsa) kind = %v, want PATH_BLOCKED", errors.KindOf(err))
	}
}

func TestResolveDereferencesSymlink(t *testing.T) {
	sb, root := newTestSandbox(t)

	outsideDir := t.TempDir()
	outsideFile := filepath.Join(outsideDir, "secret.txt")
	if err := os.WriteFile(outsideFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(outsideFile, link); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	_, err := sb.Resolve("link.txt")
	if errors.KindOf(err) != errors.KindPathOutsideSandbox {
		t.Fatalf("Resolve(symlink escaping root) kind = %v, want PATH_OUTSIDE_SANDBOX", errors.KindOf(err))
	}
}

func TestCheckSize(t *testing.T) {
	sb, err := New(t.TempDir(), nil, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sb.Root(), "big.txt")
	if err := os.WriteFile(path, []byte("this is longer than ten bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := sb.CheckSize(path); errors.KindOf(err) != errors.KindFileTooLarge {
		t.Fatalf("CheckSize() kind = %v, want FILE_TOO_LARGE", errors.KindOf(err))
	}
}

func TestShouldIgnore(t *testing.T) {
	sb, root := newTestSandbox(t)

	ignored := filepath.Join(root, "node_modules", "pkg", "index.js")
	if !sb.ShouldIgnore(ignored) {
		t.Error("expected node_modules path to be ignored")
	}

	normal := filepath.Join(root, "src", "main.go")
	if sb.ShouldIgnore(normal) {
		t.Error("expected src path to not be ignored")
	}
}

func TestResolveNewFileNotYetCreated(t *testing.T) {
	sb, _ := newTestSandbox(t)

	resolved, err := sb.Resolve("fresh/nested/new.txt")
	if err != nil {
		t.Fatalf("Resolve() on not-yet-created path: %v", err)
	}
	if filepath.Base(resolved) != "new.txt" {
		t.Errorf("resolved = %q, want basename new.txt", resolved)
	}
}
