package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseTaskList extracts task texts from a model answer. It accepts a JSON array
// of strings, an object with a "tasks" array, and either form wrapped in a
// markdown code fence or surrounded by prose. Array elements may also be
// objects carrying the text in "content", "task", "title" or "text".
func ParseTaskList(content string) ([]string, error) {
	content = stripCodeFence(strings.TrimSpace(content))
	if content == "" {
		return nil, ErrEmptyResponse
	}

	if items, err := decodeTaskList(content); err == nil {
		return items, nil
	}

	// Fall back to the outermost JSON value embedded in surrounding text
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(content, pair[0])
		end := strings.LastIndex(content, pair[1])
		if start == -1 || end <= start {
			continue
		}
		if items, err := decodeTaskList(content[start : end+1]); err == nil {
			return items, nil
		}
	}
	return nil, fmt.Errorf("failed to parse task list from response")
}

func decodeTaskList(s string) ([]string, error) {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Tasks []json.RawMessage `json:"tasks"`
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		switch {
		case wrapped.Tasks != nil:
			list = wrapped.Tasks
		case wrapped.Items != nil:
			list = wrapped.Items
		default:
			return nil, fmt.Errorf("object has no tasks array")
		}
	}

	items := make([]string, 0, len(list))
	for _, elem := range list {
		if text := elementText(elem); text != "" {
			items = append(items, text)
		}
	}
	return items, nil
}

func elementText(elem json.RawMessage) string {
	var s string
	if err := json.Unmarshal(elem, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]any
	if err := json.Unmarshal(elem, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"content", "task", "title", "text"} {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl != -1 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
