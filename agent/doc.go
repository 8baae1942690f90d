// Package agent provides the core agentic loop shared by every interaction
// mode (terminal CLI, websocket bridge).
//
// # Architecture
//
// The agent package is organized into two components:
//
//   - Core loop (this package): the Loop type and its processing logic
//   - Terminal subpackage (agent/terminal): the CLI interaction mode
//
// # Core Functionality
//
// The Loop type provides:
//
//   - A system prompt built once from the tool registry's current schemas
//   - An iteration loop driving backend.Chat, tool dispatch, and confirmation
//   - Context-budget-aware trimming of the outgoing request via memory.Manager
//   - Bounded concurrent tool execution when the model allows it
//   - A callback-based architecture so each host decides how to display events
//
// # Usage
//
// To create and use a loop:
//
//	loop := agent.New(backend, registry, confirmMgr, memMgr, conv,
//	    agent.WithMaxIterations(10),
//	    agent.WithMetadataStore(metaStore),
//	)
//
//	callbacks := agent.ProcessCallbacks{
//	    OnAssistantMessage: func(content string) { /* print it */ },
//	    OnToolCall: func(tc conversation.ToolCall) { /* announce it */ },
//	    OnToolResult: func(tc conversation.ToolCall, result *tools.Result) { /* show it */ },
//	    OnWarning: func(message string) { /* surface it */ },
//	}
//
//	reply, err := loop.ProcessUserInput(ctx, "user message", callbacks)
//
// # Tool Verbosity
//
// ToolVerbosity is carried on the host's side of the API for callbacks to
// consult when deciding how much detail to print; the loop itself never
// branches on it:
//
//   - ToolVerbosityNone: no tool execution details are shown
//   - ToolVerbosityInfo: basic tool execution information is shown
//   - ToolVerbosityAll: detailed tool execution information, arguments included
//
// # Subpackages
//
// agent/terminal provides an interactive command-line interface, including
// the confirmation-mode indicator shown in its input prompt. It does not
// display token usage.
package agent
