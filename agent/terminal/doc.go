// Package terminal implements the interactive command-line interface for
// an agent.Loop.
//
// It owns the small set of leading-"/" commands (/quit, /exit, /mode,
// /clear, /compress, /help) and forwards every other line to the loop as a
// new user message. Rendering of loop callbacks — assistant replies, tool
// calls and results, retries, warnings — and confirmation-mode cycling live
// here; the loop itself knows nothing about stdout formatting (SPEC_FULL.md §4.10: the
// slash-command REPL wrapper is host wiring, not part of the core loop).
//
// # Usage
//
//	loop := agent.New(backend, registry, confirm, mem, conv)
//	term := terminal.New(loop, confirm)
//	term.SetVerbosity(agent.ToolVerbosityInfo)
//	err := term.Run(ctx, initialPrompt)
//
// # Verbosity
//
// Tool-call detail is controlled independently of the confirmation mode:
//
//   - ToolVerbosityNone: no tool execution information is displayed
//   - ToolVerbosityInfo: the tool name is displayed when called
//   - ToolVerbosityAll: the tool name, arguments, and result are displayed
package terminal
