package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/sandbox"
)

// CreateDirectoryTool creates a new directory.
type CreateDirectoryTool struct {
	sb *sandbox.Sandbox
}

func NewCreateDirectoryTool(sb *sandbox.Sandbox) *CreateDirectoryTool {
	return &CreateDirectoryTool{sb: sb}
}

func (t *CreateDirectoryTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "create_directory",
		Description: "Creates a new directory.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Relative directory path to create"},
			},
			"required": []string{"path"},
		},
		Required: []string{"path"},
		Confirm:  ConfirmNever,
	}
}

func (t *CreateDirectoryTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, _ := args["path"].(string)

	resolved, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	if info, statErr := os.Stat(resolved); statErr == nil {
		if info.IsDir() {
			return &Result{Success: false, Error: fmt.Sprintf("directory %q already exists", path), ErrorKind: errors.KindCommandFailed}, nil
		}
		return &Result{Success: false, Error: fmt.Sprintf("%q already exists and is not a directory", path), ErrorKind: errors.KindCommandFailed}, nil
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	return &Result{Success: true, Payload: map[string]interface{}{"path": path, "absolute_path": resolved}}, nil
}

// DeleteDirectoryTool removes an (optionally non-empty) directory.
type DeleteDirectoryTool struct {
	sb *sandbox.Sandbox
}

func NewDeleteDirectoryTool(sb *sandbox.Sandbox) *DeleteDirectoryTool {
	return &DeleteDirectoryTool{sb: sb}
}

func (t *DeleteDirectoryTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "delete_directory",
		Description: "Deletes a directory, empty or (with recursive=true) with its contents.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":      map[string]interface{}{"type": "string", "description": "Relative directory path to delete"},
				"recursive": map[string]interface{}{"type": "boolean", "description": "Delete contents recursively", "default": false},
			},
			"required": []string{"path"},
		},
		Required: []string{"path"},
		Confirm:  ConfirmOnDestructive,
	}
}

func (t *DeleteDirectoryTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, _ := args["path"].(string)
	recursive, _ := args["recursive"].(bool)

	resolved, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return &Result{Success: false, Error: fmt.Sprintf("directory %q does not exist", path), ErrorKind: errors.KindFileNotFound}, nil
	}
	if !info.IsDir() {
		return &Result{Success: false, Error: fmt.Sprintf("%q is not a directory", path), ErrorKind: errors.KindCommandFailed}, nil
	}

	if !recursive {
		entries, readErr := os.ReadDir(resolved)
		if readErr != nil {
			return &Result{Success: false, Error: readErr.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
		if len(entries) > 0 {
			return &Result{Success: false, Error: fmt.Sprintf("directory %q is not empty; use recursive=true", path), ErrorKind: errors.KindCommandFailed}, nil
		}
		if err := os.Remove(resolved); err != nil {
			return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
	} else if err := os.RemoveAll(resolved); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	return &Result{Success: true, Payload: map[string]interface{}{"path": path}}, nil
}

// MoveFileTool moves or renames a file or directory. Unconditionally
// requires confirmation (SPEC_FULL.md §4.2's catalogue), unlike the
// original source it is grounded on — see DESIGN.md Decision 3.
type MoveFileTool struct {
	sb *sandbox.Sandbox
}

func NewMoveFileTool(sb *sandbox.Sandbox) *MoveFileTool { return &MoveFileTool{sb: sb} }

func (t *MoveFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "move_file",
		Description: "Moves or renames a file or directory.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"source":      map[string]interface{}{"type": "string", "description": "Relative source path"},
				"destination": map[string]interface{}{"type": "string", "description": "Relative destination path"},
				"overwrite":   map[string]interface{}{"type": "boolean", "description": "Overwrite destination if it exists", "default": false},
			},
			"required": []string{"source", "destination"},
		},
		Required: []string{"source", "destination"},
		Confirm:  ConfirmAlways,
	}
}

func (t *MoveFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	source, _ := args["source"].(string)
	destination, _ := args["destination"].(string)
	overwrite, _ := args["overwrite"].(bool)

	srcPath, dstPath, precheckResult, err := resolvePair(t.sb, source, destination, overwrite)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	if precheckResult != nil {
		return precheckResult, nil
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	if err := os.Rename(srcPath, dstPath); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	return &Result{Success: true, Payload: map[string]interface{}{"source": source, "destination": destination}}, nil
}

// CopyFileTool duplicates a file or directory tree.
type CopyFileTool struct {
	sb *sandbox.Sandbox
}

func NewCopyFileTool(sb *sandbox.Sandbox) *CopyFileTool { return &CopyFileTool{sb: sb} }

func (t *CopyFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "copy_file",
		Description: "Copies a file or a directory (with its contents).",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"source":      map[string]interface{}{"type": "string", "description": "Relative source path"},
				"destination": map[string]interface{}{"type": "string", "description": "Relative destination path"},
				"overwrite":   map[string]interface{}{"type": "boolean", "description": "Overwrite destination if it exists", "default": false},
			},
			"required": []string{"source", "destination"},
		},
		Required: []string{"source", "destination"},
		Confirm:  ConfirmNever,
	}
}

func (t *CopyFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	source, _ := args["source"].(string)
	destination, _ := args["destination"].(string)
	overwrite, _ := args["overwrite"].(bool)

	srcPath, dstPath, precheckResult, err := resolvePair(t.sb, source, destination, overwrite)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	if precheckResult != nil {
		return precheckResult, nil
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	info, _ := os.Stat(srcPath)
	if info.IsDir() {
		if err := os.RemoveAll(dstPath); err != nil {
			return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
		if err := copyTree(srcPath, dstPath); err != nil {
			return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
		return &Result{Success: true, Payload: map[string]interface{}{
			"source": source, "destination": destination, "type": "directory",
		}}, nil
	}

	n, err := copyFile(srcPath, dstPath)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	return &Result{Success: true, Payload: map[string]interface{}{
		"source": source, "destination": destination, "type": "file", "bytes_copied": n,
	}}, nil
}

// resolvePair resolves a source/destination pair shared by move_file and
// copy_file, returning a pre-built failure Result for the common
// not-found/overwrite checks so callers only handle the happy path.
func resolvePair(sb *sandbox.Sandbox, source, destination string, overwrite bool) (string, string, *Result, error) {
	srcPath, err := sb.Resolve(source)
	if err != nil {
		return "", "", nil, err
	}
	dstPath, err := sb.Resolve(destination)
	if err != nil {
		return "", "", nil, err
	}
	if _, statErr := os.Stat(srcPath); statErr != nil {
		return "", "", &Result{Success: false, Error: fmt.Sprintf("source %q does not exist", source), ErrorKind: errors.KindFileNotFound}, nil
	}
	if _, statErr := os.Stat(dstPath); statErr == nil && !overwrite {
		return "", "", &Result{Success: false, Error: fmt.Sprintf("destination %q already exists; use overwrite=true", destination), ErrorKind: errors.KindCommandFailed}, nil
	}
	return srcPath, dstPath, nil, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return io.Copy(out, in)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(src, p)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		_, err = copyFile(p, target)
		return err
	})
}
