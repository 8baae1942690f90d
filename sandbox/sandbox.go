// Package sandbox validates filesystem paths against a workspace root,
// a set of blocked globs, and a per-file size cap, so that every
// file-touching tool refuses before any I/O happens.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentichat/agentichat/errors"
)

// DefaultBlockedPatterns mirrors the original project's credential-shaped
// path blocklist.
var DefaultBlockedPatterns = []string{
	"**/.env",
	"**/*.key",
	"**/*.pem",
	"**/id_rsa",
	"**/credentials.json",
	"**/.ssh/*",
}

// DefaultIgnoreDirs are skipped by listing/search tools; list_files and
// glob_search let the caller opt in with include_ignored, search_text does not.
var DefaultIgnoreDirs = []string{
	".git", ".venv", "venv", "node_modules", "__pycache__", ".tox", "dist", "build",
}

// DefaultMaxFileSize is the per-file byte cap when none is configured.
const DefaultMaxFileSize = 1_000_000

// Sandbox resolves and validates paths rooted at a single workspace
// directory. It is immutable after construction and safe for concurrent use.
type Sandbox struct {
	root         string
	blocked      []string
	ignoreDirs   []string
	maxFileSize  int64
}

// New constructs a Sandbox rooted at root. blocked and ignoreDirs may be
// nil, in which case the package defaults are used. maxFileSize <= 0 means
// DefaultMaxFileSize.
func New(root string, blocked []string, ignoreDirs []string, maxFileSize int64) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving sandbox root %q", root)
	}
	// Canonicalize the root itself so later comparisons are apples-to-apples
	// even when the root contains a symlinked component.
	canon, err := canonicalize(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "canonicalizing sandbox root %q", root)
	}
	if blocked == nil {
		blocked = DefaultBlockedPatterns
	}
	if ignoreDirs == nil {
		ignoreDirs = DefaultIgnoreDirs
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Sandbox{root: canon, blocked: blocked, ignoreDirs: ignoreDirs, maxFileSize: maxFileSize}, nil
}

// Root returns the sandbox's canonical root path.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve canonicalizes path (joined to the root when relative), verifies it
// is contained within the root, and checks it against the blocked-glob list.
//
// Decided (see SPEC_FULL.md §4.1): comparison is byte-exact on the
// EvalSymlinks-canonicalized string. On case-insensitive filesystems this is
// still correct because EvalSymlinks consults the real directory entries and
// normalizes case as part of resolving the path; on case-sensitive
// filesystems no additional folding is applied, since folding there would
// wrongly conflate distinct files.
func (s *Sandbox) Resolve(path string) (string, error) {
	joined := path
	if !filepath.IsAbs(path) {
		joined = filepath.Join(s.root, path)
	}
	joined = filepath.Clean(joined)

	canon, err := canonicalize(joined)
	if err != nil {
		return "", errors.Wrap(errors.KindFileNotFound, "path does not resolve: "+path, err)
	}

	rel, err := filepath.Rel(s.root, canon)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.KindPathOutsideSandbox, "path %q escapes the sandbox root", path)
	}

	for _, pattern := range s.blocked {
		match, mErr := doublestar.PathMatch(pattern, canon)
		if mErr != nil {
			return "", errors.Wrapf(mErr, "invalid blocked-path glob %q", pattern)
		}
		if !match {
			// Also try the glob against the root-relative form, since most
			// blocked patterns are written relative ("**/.env").
			match, mErr = doublestar.PathMatch(pattern, rel)
			if mErr != nil {
				return "", errors.Wrapf(mErr, "invalid blocked-path glob %q", pattern)
			}
		}
		if match {
			return "", errors.Newf(errors.KindPathBlocked, "path %q is blocked by pattern %q", path, pattern)
		}
	}

	return canon, nil
}

// CheckSize fails with FILE_TOO_LARGE if path (expected already-resolved)
// exceeds the configured maximum.
func (s *Sandbox) CheckSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(errors.KindFileNotFound, "cannot stat "+path, err)
	}
	if info.Size() > s.maxFileSize {
		return errors.Newf(errors.KindFileTooLarge, "file %q is %d bytes, exceeding the %d byte cap", path, info.Size(), s.maxFileSize)
	}
	return nil
}

// ShouldIgnore reports whether path lies under one of the default-ignored
// directory names (supplemented behavior, see SPEC_FULL.md §2.3).
func (s *Sandbox) ShouldIgnore(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, part := range parts {
		for _, ignored := range s.ignoreDirs {
			if part == ignored {
				return true
			}
		}
	}
	return false
}

// canonicalize resolves symlinks when the path exists, and otherwise falls
// back to filepath.Clean on the original path (so validation still works for
// paths that are about to be created, e.g. write_file on a new file).
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if os.IsNotExist(err) {
		// Dereference as much of the path as actually exists, then rejoin
		// the remaining (not-yet-created) components.
		dir := filepath.Dir(path)
		base := filepath.Base(path)
		if dir == path {
			// Reached the filesystem root without finding an existing
			// ancestor; nothing left to resolve.
			return path, nil
		}
		resolvedDir, dirErr := canonicalize(dir)
		if dirErr != nil {
			return "", dirErr
		}
		return filepath.Join(resolvedDir, base), nil
	}
	return "", err
}
