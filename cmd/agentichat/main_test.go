package main

import (
	"testing"

	"github.com/agentichat/agentichat/agent"
	"github.com/agentichat/agentichat/config"
)

func TestParseVerbosity(t *testing.T) {
	cases := map[string]agent.ToolVerbosity{
		"":     agent.ToolVerbosityNone,
		"none": agent.ToolVerbosityNone,
		"info": agent.ToolVerbosityInfo,
		"all":  agent.ToolVerbosityAll,
		"ALL":  agent.ToolVerbosityAll,
	}
	for input, want := range cases {
		got, err := parseVerbosity(input)
		if err != nil {
			t.Errorf("parseVerbosity(%q) returned error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("parseVerbosity(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseVerbosityRejectsUnknown(t *testing.T) {
	if _, err := parseVerbosity("loud"); err == nil {
		t.Error("expected an error for an unrecognized verbosity level")
	}
}

func TestNewBackendRejectsUnknownType(t *testing.T) {
	_, err := newBackend(&config.BackendConfig{Type: "carrier-pigeon", Model: "x"})
	if err == nil {
		t.Error("expected an error for an unknown backend type")
	}
}

func TestNewBackendBuildsLocal(t *testing.T) {
	b, err := newBackend(&config.BackendConfig{Type: "local", URL: "http://localhost:11434", Model: "llama3", Timeout: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b == nil {
		t.Fatal("expected a non-nil backend")
	}
}
