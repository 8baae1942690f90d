package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentichat/agentichat/errors"
)

// TodoItem is a single entry in the session's task list.
type TodoItem struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm"`
}

var validTodoStatuses = map[string]bool{"pending": true, "in_progress": true, "completed": true}

// TodoWriteTool persists the session's task list to a JSON file under the
// configured data directory, so it survives across agent-loop iterations.
type TodoWriteTool struct {
	dataDir string
}

func NewTodoWriteTool(dataDir string) *TodoWriteTool {
	return &TodoWriteTool{dataDir: dataDir}
}

func (t *TodoWriteTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "todo_write",
		Description: "Creates and manages a structured task list for the current session.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"todos": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"content":    map[string]interface{}{"type": "string"},
							"status":     map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
							"activeForm": map[string]interface{}{"type": "string"},
						},
						"required": []string{"content", "status", "activeForm"},
					},
					"description": "The complete, up-to-date task list",
				},
			},
			"required": []string{"todos"},
		},
		Required: []string{"todos"},
		Confirm:  ConfirmNever,
	}
}

func (t *TodoWriteTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	raw, ok := args["todos"].([]interface{})
	if !ok {
		return &Result{Success: false, Error: "todos must be an array", ErrorKind: errors.KindCommandFailed}, nil
	}

	todos := make([]TodoItem, 0, len(raw))
	for i, entry := range raw {
		item, ok := entry.(map[string]interface{})
		if !ok {
			return &Result{Success: false, Error: fmt.Sprintf("todos[%d] must be an object", i), ErrorKind: errors.KindCommandFailed}, nil
		}
		content, _ := item["content"].(string)
		status, _ := item["status"].(string)
		activeForm, _ := item["activeForm"].(string)
		if content == "" {
			return &Result{Success: false, Error: fmt.Sprintf("todos[%d].content is required", i), ErrorKind: errors.KindCommandFailed}, nil
		}
		if !validTodoStatuses[status] {
			return &Result{Success: false, Error: fmt.Sprintf("todos[%d].status must be one of pending, in_progress, completed", i), ErrorKind: errors.KindCommandFailed}, nil
		}
		if activeForm == "" {
			return &Result{Success: false, Error: fmt.Sprintf("todos[%d].activeForm is required", i), ErrorKind: errors.KindCommandFailed}, nil
		}
		todos = append(todos, TodoItem{Content: content, Status: status, ActiveForm: activeForm})
	}

	if err := os.MkdirAll(t.dataDir, 0o755); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	savePath := filepath.Join(t.dataDir, "current_todos.json")
	data, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	if err := os.WriteFile(savePath, data, 0o644); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	var pending, inProgress, completed int
	for _, item := range todos {
		switch item.Status {
		case "pending":
			pending++
		case "in_progress":
			inProgress++
		case "completed":
			completed++
		}
	}

	return &Result{Success: true, Payload: map[string]interface{}{
		"total_tasks":  len(todos),
		"pending":      pending,
		"in_progress":  inProgress,
		"completed":    completed,
		"saved_to":     savePath,
	}}, nil
}
