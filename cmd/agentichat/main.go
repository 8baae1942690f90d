package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentichat/agentichat/agent"
	"github.com/agentichat/agentichat/agent/terminal"
	"github.com/agentichat/agentichat/confirmation"
	"github.com/agentichat/agentichat/config"
	"github.com/agentichat/agentichat/conversation"
	"github.com/agentichat/agentichat/llm"
	"github.com/agentichat/agentichat/memory"
	"github.com/agentichat/agentichat/metadata"
	"github.com/agentichat/agentichat/sandbox"
	"github.com/agentichat/agentichat/tools"
)

func main() {
	configFlag := flag.String("c", "", "Path to a config file (defaults to workspace/global discovery)")
	backendFlag := flag.String("b", "", "Backend name to use (defaults to config's default_backend)")
	modeFlag := flag.String("m", "ask", "Confirmation mode: 'ask', 'auto', or 'force'")
	toolVerbosityFlag := flag.String("tool-verbosity", "none", "Tool verbosity level: 'none', 'info', or 'all'")
	maxIterationsFlag := flag.Int("max-iterations", 0, "Override the loop's iteration ceiling (0 = use config)")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	backendName := *backendFlag
	if backendName == "" {
		backendName = cfg.DefaultBackend
	}
	backendCfg, ok := cfg.Backends[backendName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Backend %q is not configured\n", backendName)
		os.Exit(1)
	}

	backend, err := newBackend(backendCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing backend %q: %+v\n", backendName, err)
		os.Exit(1)
	}
	defer backend.Close()

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving working directory: %+v\n", err)
		os.Exit(1)
	}
	sb, err := sandbox.New(wd, cfg.Sandbox.BlockedPaths, nil, cfg.Sandbox.MaxFileSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing sandbox: %+v\n", err)
		os.Exit(1)
	}

	registry := tools.NewDefaultRegistry(sb, cfg)
	metaStore := metadata.Open(cfg.DataDir)
	memMgr := memory.New(backendCfg.ContextMaxTokens, memory.CompressionPolicy{
		AutoEnabled:      cfg.Compression.AutoEnabled,
		AutoThreshold:    cfg.Compression.AutoThreshold,
		AutoKeep:         cfg.Compression.AutoKeep,
		WarningThreshold: cfg.Compression.WarningThreshold,
		MaxMessages:      cfg.Compression.MaxMessages,
	})
	conv := conversation.New(backendCfg.Model)

	confirmMgr := confirmation.New(os.Stdin, os.Stdout)
	switch strings.ToLower(*modeFlag) {
	case "ask":
	case "auto":
		confirmMgr.Cycle()
	case "force":
		confirmMgr.Cycle()
		confirmMgr.Cycle()
	default:
		fmt.Fprintf(os.Stderr, "Invalid confirmation mode %q. Must be 'ask', 'auto', or 'force'.\n", *modeFlag)
		os.Exit(1)
	}

	verbosity, err := parseVerbosity(*toolVerbosityFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := []agent.Option{agent.WithMetadataStore(metaStore)}
	if *maxIterationsFlag > 0 {
		opts = append(opts, agent.WithMaxIterations(*maxIterationsFlag))
	} else if cfg.MaxIterations > 0 {
		opts = append(opts, agent.WithMaxIterations(cfg.MaxIterations))
	}
	if backendCfg.MaxParallelTools != nil {
		opts = append(opts, agent.WithMaxParallelTools(*backendCfg.MaxParallelTools))
	}

	loop := agent.New(backend, registry, confirmMgr, memMgr, conv, opts...)

	term := terminal.New(loop, confirmMgr)
	term.SetVerbosity(verbosity)

	initialPrompt := strings.Join(flag.Args(), " ")
	fmt.Println("agentichat is ready. Type your prompt.")
	if err := term.Run(context.Background(), initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Agent stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}

// newBackend constructs the llm.Backend named by cfg.Type, timing out and
// capping tokens per its fields.
func newBackend(cfg *config.BackendConfig) (llm.Backend, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	switch cfg.Type {
	case "local":
		return llm.NewLocalBackend(cfg.URL, cfg.Model, timeout), nil
	case "anthropic":
		return llm.NewAnthropicBackend(cfg.APIKey, cfg.Model, cfg.MaxTokens, timeout)
	case "openai":
		return llm.NewOpenAIBackend(cfg.APIKey, cfg.URL, cfg.Model, timeout)
	case "gemini":
		return llm.NewGeminiBackend(context.Background(), cfg.APIKey, cfg.Model, timeout)
	case "bedrock":
		return llm.NewBedrockBackend(context.Background(), cfg.Model, cfg.MaxTokens, timeout)
	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}

func parseVerbosity(s string) (agent.ToolVerbosity, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return agent.ToolVerbosityNone, nil
	case "info":
		return agent.ToolVerbosityInfo, nil
	case "all":
		return agent.ToolVerbosityAll, nil
	default:
		return 0, fmt.Errorf("invalid tool verbosity %q. Must be 'none', 'info', or 'all'", s)
	}
}
