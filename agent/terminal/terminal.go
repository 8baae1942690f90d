package terminal

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/agentichat/agentichat/agent"
	"github.com/agentichat/agentichat/confirmation"
	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/llm"
	"github.com/agentichat/agentichat/tools"
)

// Terminal drives an agent.Loop from an interactive stdin/stdout session,
// recognizing a handful of leading-"/" commands itself and forwarding
// everything else to the loop as a new user message (SPEC_FULL.md §4.10: the
// slash-command REPL wrapper is host wiring, not part of the loop itself).
type Terminal struct {
	loop      *agent.Loop
	confirm   *confirmation.Manager
	verbosity agent.ToolVerbosity
}

// New creates a Terminal bound to loop and confirm, defaulting to no tool
// verbosity.
func New(loop *agent.Loop, confirm *confirmation.Manager) *Terminal {
	return &Terminal{loop: loop, confirm: confirm, verbosity: agent.ToolVerbosityNone}
}

// SetVerbosity changes how much tool-call detail the terminal prints.
func (t *Terminal) SetVerbosity(v agent.ToolVerbosity) {
	t.verbosity = v
}

// Run starts the interactive session, optionally processing an initial
// prompt first.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		if err := t.processTurn(ctx, initialPrompt); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("[%s] You: ", t.confirm.Mode())
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if t.handleCommand(ctx, line) {
				break
			}
			continue
		}

		if err := t.processTurn(ctx, line); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}

	return scanner.Err()
}

// handleCommand recognizes the small set of commands the terminal owns
// directly rather than forwarding to the loop. It returns true when the
// session should end.
func (t *Terminal) handleCommand(ctx context.Context, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true
	case "/mode":
		t.confirm.Cycle()
		fmt.Printf("confirmation mode: %s\n", t.confirm.Mode())
	case "/clear":
		t.loop.Reset()
		fmt.Println("conversation cleared")
	case "/compress":
		summary, err := t.loop.Compress(ctx, 0)
		if err != nil {
			fmt.Printf("compression failed: %v\n", err)
			break
		}
		fmt.Printf("conversation compressed; summary:\n%s\n", summary)
	case "/help":
		fmt.Println("/quit, /exit  end the session")
		fmt.Println("/mode         cycle confirmation mode: Ask -> Auto -> Force")
		fmt.Println("/clear        wipe the conversation and reset confirmation mode")
		fmt.Println("/compress     replace the whole conversation with a generated summary")
	default:
		fmt.Printf("unrecognized command: %s (try /help)\n", line)
	}
	return false
}

// processTurn forwards userInput to the loop, rendering its callbacks at the
// verbosity the terminal is currently set to.
func (t *Terminal) processTurn(ctx context.Context, userInput string) error {
	callbacks := agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			fmt.Printf("Assistant: %s\n", message)
		},
		OnToolCall: func(tc conversation.ToolCall) {
			switch t.verbosity {
			case agent.ToolVerbosityAll:
				fmt.Printf("-> calling `%s` with %v\n", tc.Name, tc.Arguments)
			case agent.ToolVerbosityInfo:
				fmt.Printf("-> calling `%s`\n", tc.Name)
			}
		},
		OnToolResult: func(tc conversation.ToolCall, result *tools.Result) {
			if t.verbosity != agent.ToolVerbosityAll {
				return
			}
			if result.Success {
				fmt.Printf("<- `%s` succeeded: %v\n", tc.Name, result.Payload)
			} else {
				fmt.Printf("<- `%s` failed: %s\n", tc.Name, result.Error)
			}
		},
		OnRetry: func(info llm.RetryInfo) {
			fmt.Printf("retrying (attempt %d/%d) after: %v\n", info.Attempt, info.MaxAttempts, info.Err)
		},
		OnWarning: func(message string) {
			fmt.Printf("Warning: %s\n", message)
		},
	}

	_, err := t.loop.ProcessUserInput(ctx, userInput, callbacks)
	return err
}
