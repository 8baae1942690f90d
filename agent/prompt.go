package agent

import (
	"fmt"
	"strings"

	"github.com/agentichat/agentichat/tools"
)

// buildSystemPrompt composes the tool-use instructions the model needs,
// enumerating exactly the tools present in the registry rather than a fixed
// list, so it never drifts from what is actually callable (generalizes the
// original's hardcoded system message, core/agent.py's AgentLoop.run).
func buildSystemPrompt(schemas []tools.Schema) string {
	if len(schemas) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant with access to tools for interacting with the file system, the web, and task tracking.\n\n")
	b.WriteString("When the user asks for something that requires a tool, call it using this format:\n\n")
	b.WriteString("```json\n")
	b.WriteString(`{"name": "tool_name", "arguments": {"param1": "value1"}}` + "\n")
	b.WriteString("```\n\n")
	b.WriteString("Available tools:\n\n")
	for _, s := range schemas {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	b.WriteString("\nCall tools directly; do not explain to the user how to use them yourself.")
	return b.String()
}
