package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/sandbox"
)

// ListFilesTool lists the entries of a directory, optionally recursively
// and filtered by a glob pattern.
type ListFilesTool struct {
	sb *sandbox.Sandbox
}

func NewListFilesTool(sb *sandbox.Sandbox) *ListFilesTool { return &ListFilesTool{sb: sb} }

func (t *ListFilesTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "list_files",
		Description: "Lists the files in a directory. Use recursive=true to include subdirectories.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":            map[string]interface{}{"type": "string", "description": "Relative directory path (default: .)"},
				"recursive":       map[string]interface{}{"type": "boolean", "description": "Walk subdirectories recursively", "default": false},
				"pattern":         map[string]interface{}{"type": "string", "description": "Glob pattern, e.g. *.go"},
				"include_ignored": map[string]interface{}{"type": "boolean", "description": "Include normally-ignored directories (.git, node_modules, ...)", "default": false},
			},
		},
		Confirm: ConfirmNever,
	}
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	recursive, _ := args["recursive"].(bool)
	pattern, _ := args["pattern"].(string)
	includeIgnored, _ := args["include_ignored"].(bool)

	dir, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	info, statErr := os.Stat(dir)
	if statErr != nil {
		return &Result{Success: false, Error: fmt.Sprintf("directory %q not found", path), ErrorKind: errors.KindFileNotFound}, nil
	}
	if !info.IsDir() {
		return &Result{Success: false, Error: fmt.Sprintf("%q is not a directory", path), ErrorKind: errors.KindCommandFailed}, nil
	}

	var files []string
	ignoredCount := 0

	walker := func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if !includeIgnored && p != dir && t.sb.ShouldIgnore(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if pattern != "" {
			if matched, _ := filepath.Match(pattern, d.Name()); !matched {
				return nil
			}
		}
		if !includeIgnored && t.sb.ShouldIgnore(p) {
			ignoredCount++
			return nil
		}
		rel, relErr := filepath.Rel(t.sb.Root(), p)
		if relErr != nil {
			return nil
		}
		files = append(files, rel)
		return nil
	}

	if recursive {
		if err := filepath.WalkDir(dir, walker); err != nil {
			return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
	} else {
		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			return &Result{Success: false, Error: readErr.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if pattern != "" {
				if matched, _ := filepath.Match(pattern, e.Name()); !matched {
					continue
				}
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
	}

	sort.Strings(files)
	payload := map[string]interface{}{"files": files, "count": len(files)}
	if ignoredCount > 0 {
		payload["ignored_count"] = ignoredCount
		payload["note"] = fmt.Sprintf("%d files ignored (.venv, node_modules, etc.)", ignoredCount)
	}
	return &Result{Success: true, Payload: payload}, nil
}

// ReadFileTool reads a file's content, optionally sliced by line range.
type ReadFileTool struct {
	sb *sandbox.Sandbox
}

func NewReadFileTool(sb *sandbox.Sandbox) *ReadFileTool { return &ReadFileTool{sb: sb} }

func (t *ReadFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "read_file",
		Description: "Reads a file's content.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":       map[string]interface{}{"type": "string", "description": "Relative file path"},
				"start_line": map[string]interface{}{"type": "integer", "description": "First line, 1-indexed (optional)"},
				"end_line":   map[string]interface{}{"type": "integer", "description": "Last line, 1-indexed (optional)"},
			},
			"required": []string{"path"},
		},
		Required: []string{"path"},
		Confirm:  ConfirmNever,
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, _ := args["path"].(string)

	resolved, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return &Result{Success: false, Error: fmt.Sprintf("file %q not found", path), ErrorKind: errors.KindFileNotFound}, nil
	}
	if info.IsDir() {
		return &Result{Success: false, Error: fmt.Sprintf("%q is not a file", path), ErrorKind: errors.KindCommandFailed}, nil
	}
	if err := t.sb.CheckSize(resolved); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	content := string(data)

	startLine, hasStart := intArg(args, "start_line")
	endLine, hasEnd := intArg(args, "end_line")
	if hasStart || hasEnd {
		lines := strings.Split(content, "\n")
		start := 0
		if hasStart && startLine > 0 {
			start = startLine - 1
		}
		end := len(lines)
		if hasEnd && endLine < end {
			end = endLine
		}
		if start > len(lines) {
			start = len(lines)
		}
		if end < start {
			end = start
		}
		content = strings.Join(lines[start:end], "\n")
	}

	return &Result{Success: true, Payload: map[string]interface{}{"content": content, "path": path}}, nil
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// WriteFileTool creates, overwrites, or appends to a file.
type WriteFileTool struct {
	sb *sandbox.Sandbox
}

func NewWriteFileTool(sb *sandbox.Sandbox) *WriteFileTool { return &WriteFileTool{sb: sb} }

func (t *WriteFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "write_file",
		Description: "Creates or modifies a file.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":    map[string]interface{}{"type": "string", "description": "Relative file path"},
				"content": map[string]interface{}{"type": "string", "description": "Content to write"},
				"mode":    map[string]interface{}{"type": "string", "enum": []string{"create", "overwrite", "append"}, "description": "Write mode (default: create)", "default": "create"},
			},
			"required": []string{"path", "content"},
		},
		Required: []string{"path", "content"},
		Confirm:  ConfirmOnDestructive,
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	mode, _ := args["mode"].(string)
	if mode == "" {
		mode = "create"
	}

	resolved, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}

	if mode == "create" {
		if _, statErr := os.Stat(resolved); statErr == nil {
			return &Result{Success: false, Error: fmt.Sprintf("file %q already exists (use mode=overwrite)", path), ErrorKind: errors.KindCommandFailed}, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	if mode == "append" {
		f, openErr := os.OpenFile(resolved, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if openErr != nil {
			return &Result{Success: false, Error: openErr.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
		defer f.Close()
		if _, err := f.WriteString(content); err != nil {
			return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
	} else {
		if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
			return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
		}
	}

	return &Result{Success: true, Payload: map[string]interface{}{
		"path":          path,
		"bytes_written": len(content),
	}}, nil
}

// DeleteFileTool removes a single file.
type DeleteFileTool struct {
	sb *sandbox.Sandbox
}

func NewDeleteFileTool(sb *sandbox.Sandbox) *DeleteFileTool { return &DeleteFileTool{sb: sb} }

func (t *DeleteFileTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "delete_file",
		Description: "Deletes a file.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Relative file path to delete"},
			},
			"required": []string{"path"},
		},
		Required: []string{"path"},
		Confirm:  ConfirmOnDestructive,
	}
}

func (t *DeleteFileTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	path, _ := args["path"].(string)

	resolved, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return &Result{Success: false, Error: fmt.Sprintf("file %q not found", path), ErrorKind: errors.KindFileNotFound}, nil
	}
	if info.IsDir() {
		return &Result{Success: false, Error: fmt.Sprintf("%q is not a file", path), ErrorKind: errors.KindCommandFailed}, nil
	}
	if err := os.Remove(resolved); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	return &Result{Success: true, Payload: map[string]interface{}{"path": path, "deleted": true}}, nil
}
