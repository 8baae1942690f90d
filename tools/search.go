package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentichat/agentichat/errors"
	"github.com/agentichat/agentichat/sandbox"
)

// SearchTextTool does a grep-like textual search across files.
type SearchTextTool struct {
	sb *sandbox.Sandbox
}

func NewSearchTextTool(sb *sandbox.Sandbox) *SearchTextTool { return &SearchTextTool{sb: sb} }

func (t *SearchTextTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "search_text",
		Description: "Searches for text across files (grep-like).",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query":          map[string]interface{}{"type": "string", "description": "Text or regex to search for"},
				"path":           map[string]interface{}{"type": "string", "description": "Directory to search (default: .)", "default": "."},
				"regex":          map[string]interface{}{"type": "boolean", "description": "Treat query as a regex", "default": false},
				"case_sensitive": map[string]interface{}{"type": "boolean", "description": "Case-sensitive match", "default": false},
			},
			"required": []string{"query"},
		},
		Required: []string{"query"},
		Confirm:  ConfirmNever,
	}
}

type match struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func (t *SearchTextTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	query, _ := args["query"].(string)
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	isRegex, _ := args["regex"].(bool)
	caseSensitive, _ := args["case_sensitive"].(bool)

	searchRoot, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	info, statErr := os.Stat(searchRoot)
	if statErr != nil {
		return &Result{Success: false, Error: fmt.Sprintf("path %q not found", path), ErrorKind: errors.KindFileNotFound}, nil
	}

	pattern := query
	if !isRegex {
		pattern = regexp.QuoteMeta(query)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, compileErr := regexp.Compile(pattern)
	if compileErr != nil {
		return &Result{Success: false, Error: "invalid regex: " + compileErr.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	var matches []match
	searchFile := func(p string) {
		if sizeErr := t.sb.CheckSize(p); sizeErr != nil {
			return
		}
		f, openErr := os.Open(p)
		if openErr != nil {
			return
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		rel, _ := filepath.Rel(t.sb.Root(), p)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				matches = append(matches, match{File: rel, Line: lineNum, Content: line})
			}
		}
	}

	if info.IsDir() {
		_ = filepath.WalkDir(searchRoot, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if d.IsDir() {
				if t.sb.ShouldIgnore(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if t.sb.ShouldIgnore(p) {
				return nil
			}
			searchFile(p)
			return nil
		})
	} else {
		searchFile(searchRoot)
	}

	return &Result{Success: true, Payload: map[string]interface{}{
		"query": query, "matches": matches, "count": len(matches),
	}}, nil
}

// GlobTool finds files matching a glob pattern.
type GlobTool struct {
	sb *sandbox.Sandbox
}

func NewGlobTool(sb *sandbox.Sandbox) *GlobTool { return &GlobTool{sb: sb} }

func (t *GlobTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "glob_search",
		Description: "Finds files using glob patterns, e.g. '*.go', '**/*.ts', 'src/**/*.tsx'.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"pattern":         map[string]interface{}{"type": "string", "description": "Glob pattern to search for"},
				"path":            map[string]interface{}{"type": "string", "description": "Starting directory (default: .)", "default": "."},
				"exclude":         map[string]interface{}{"type": "string", "description": "Additional exclusion pattern (optional)"},
				"include_ignored": map[string]interface{}{"type": "boolean", "description": "Include normally-ignored directories", "default": false},
			},
			"required": []string{"pattern"},
		},
		Required: []string{"pattern"},
		Confirm:  ConfirmNever,
	}
}

func (t *GlobTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	pattern, _ := args["pattern"].(string)
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	exclude, _ := args["exclude"].(string)
	includeIgnored, _ := args["include_ignored"].(bool)

	searchDir, err := t.sb.Resolve(path)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindOf(err)}, nil
	}
	info, statErr := os.Stat(searchDir)
	if statErr != nil {
		return &Result{Success: false, Error: fmt.Sprintf("directory %q not found", path), ErrorKind: errors.KindFileNotFound}, nil
	}
	if !info.IsDir() {
		return &Result{Success: false, Error: fmt.Sprintf("%q is not a directory", path), ErrorKind: errors.KindCommandFailed}, nil
	}

	fullPattern := filepath.ToSlash(filepath.Join(searchDir, pattern))
	matches, globErr := doublestar.FilepathGlob(fullPattern)
	if globErr != nil {
		return &Result{Success: false, Error: globErr.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	var results []string
	ignoredCount := 0
	for _, m := range matches {
		info, statErr := os.Stat(m)
		if statErr != nil || info.IsDir() {
			continue
		}
		if exclude != "" {
			if excluded, _ := doublestar.Match(exclude, filepath.ToSlash(m)); excluded {
				continue
			}
		}
		if !includeIgnored && t.sb.ShouldIgnore(m) {
			ignoredCount++
			continue
		}
		rel, relErr := filepath.Rel(t.sb.Root(), m)
		if relErr != nil {
			continue
		}
		results = append(results, rel)
	}
	sort.Strings(results)

	payload := map[string]interface{}{
		"matches": results, "count": len(results), "pattern": pattern, "search_dir": path,
	}
	if ignoredCount > 0 {
		payload["ignored_count"] = ignoredCount
		payload["note"] = fmt.Sprintf("%d files ignored (.venv, node_modules, etc.)", ignoredCount)
	}
	return &Result{Success: true, Payload: payload}, nil
}
