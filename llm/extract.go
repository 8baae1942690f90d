package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/agentichat/agentichat/conversation"
)

var (
	sentinelPattern = regexp.MustCompile(`(?s)^\s*\[TOOL_CALLS\]\s*([A-Za-z0-9_\-]+)\s*(\{.*\})`)
	fencedPattern    = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	barePattern      = regexp.MustCompile(`(?s)\{[^{}]*"name"\s*:\s*"[^"]+"[^{}]*\{.*?\}[^{}]*\}`)
	xmlToolPattern   = regexp.MustCompile(`(?s)<tool_call>\s*<function=([A-Za-z0-9_\-]+)>(.*?)</function>\s*</tool_call>`)
	xmlParamPattern  = regexp.MustCompile(`(?s)<parameter=([^>]+)>(.*?)</parameter>`)
)

// ExtractToolCalls runs the ordered extraction pipeline described in
// SPEC_FULL.md §4.3 over assistant free-text content that carries no
// structured tool_calls field. Each stage contributes 0..N calls and the
// results are concatenated in stage order, except that the bare-JSON stage
// runs only when the sentinel and fenced stages found nothing, so an
// object inside a fenced block is not extracted a second time.
func ExtractToolCalls(content string) []conversation.ToolCall {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var calls []conversation.ToolCall
	calls = append(calls, extractSentinel(content)...)
	calls = append(calls, extractFenced(content)...)
	if len(calls) == 0 {
		calls = append(calls, extractBare(content)...)
	}
	calls = append(calls, extractXML(content)...)
	return calls
}

func extractSentinel(content string) []conversation.ToolCall {
	m := sentinelPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	args := parseArguments(m[2])
	return []conversation.ToolCall{{ID: newCallID(), Name: m[1], Arguments: args}}
}

func extractFenced(content string) []conversation.ToolCall {
	matches := fencedPattern.FindAllStringSubmatch(content, -1)
	var calls []conversation.ToolCall
	for _, m := range matches {
		call, ok := parseNameArgsObject(m[1])
		if ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func extractBare(content string) []conversation.ToolCall {
	matches := barePattern.FindAllString(content, -1)
	var calls []conversation.ToolCall
	for _, raw := range matches {
		call, ok := parseNameArgsObject(raw)
		if ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func extractXML(content string) []conversation.ToolCall {
	matches := xmlToolPattern.FindAllStringSubmatch(content, -1)
	var calls []conversation.ToolCall
	for _, m := range matches {
		name := m[1]
		body := m[2]
		args := map[string]interface{}{}
		for _, p := range xmlParamPattern.FindAllStringSubmatch(body, -1) {
			args[strings.TrimSpace(p[1])] = strings.TrimSpace(p[2])
		}
		calls = append(calls, conversation.ToolCall{ID: newCallID(), Name: name, Arguments: args})
	}
	return calls
}

// parseNameArgsObject parses a raw JSON object expected to carry "name" and
// "arguments" (or the "parameters" synonym, see SPEC_FULL.md §2.3).
func parseNameArgsObject(raw string) (conversation.ToolCall, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return conversation.ToolCall{}, false
	}
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return conversation.ToolCall{}, false
	}
	argsField, ok := obj["arguments"]
	if !ok {
		argsField = obj["parameters"]
	}
	return conversation.ToolCall{ID: newCallID(), Name: name, Arguments: normalizeArguments(argsField)}, true
}

// parseArguments parses the sentinel stage's trailing JSON object directly.
func parseArguments(raw string) map[string]interface{} {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return map[string]interface{}{}
	}
	return obj
}

// normalizeArguments accepts a JSON-string, a map, or anything else,
// returning a map in every case (SPEC_FULL.md §4.3: any other type becomes
// the empty map).
func normalizeArguments(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case string:
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(t), &obj); err == nil {
			return obj
		}
		return map[string]interface{}{}
	default:
		return map[string]interface{}{}
	}
}

func newCallID() string {
	return uuid.NewString()
}
