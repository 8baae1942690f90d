package tools

import (
	"github.com/agentichat/agentichat/config"
	"github.com/agentichat/agentichat/sandbox"
)

// NewDefaultRegistry builds a Registry with every catalogued tool, wired to
// the given sandbox and configuration.
func NewDefaultRegistry(sb *sandbox.Sandbox, cfg *config.Config) *Registry {
	r := NewRegistry()

	r.Register(NewListFilesTool(sb))
	r.Register(NewReadFileTool(sb))
	r.Register(NewWriteFileTool(sb))
	r.Register(NewDeleteFileTool(sb))
	r.Register(NewSearchTextTool(sb))
	r.Register(NewGlobTool(sb))
	r.Register(NewCreateDirectoryTool(sb))
	r.Register(NewDeleteDirectoryTool(sb))
	r.Register(NewMoveFileTool(sb))
	r.Register(NewCopyFileTool(sb))

	r.Register(NewShellExecTool(sb))
	r.Register(NewWebFetchTool())
	r.Register(NewWebSearchTool())
	r.Register(NewTodoWriteTool(cfg.DataDir))

	return r
}
