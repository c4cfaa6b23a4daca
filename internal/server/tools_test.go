package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	want := []string{
		"image_load",
		"ocr_recognize",
		"ocr_recognize_region",
		"ocr_detect_rotation",
		"ocr_fix_rotation",
		"ocr_engine_info",
	}
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}

	seen := make(map[string]bool)
	for i, tool := range tools {
		if tool.Name != want[i] {
			t.Errorf("tool %d: got %s, want %s", i, tool.Name, want[i])
		}
		if seen[tool.Name] {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		seen[tool.Name] = true

		if tool.Description == "" {
			t.Errorf("%s: missing description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s: schema type %v", tool.Name, tool.InputSchema["type"])
		}

		props, _ := tool.InputSchema["properties"].(map[string]interface{})
		required, _ := tool.InputSchema["required"].([]string)
		for _, r := range required {
			if _, ok := props[r]; !ok {
				t.Errorf("%s: required field %s not in properties", tool.Name, r)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New(Options{Recognizer: &fakeRecognizer{}})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	tools, ok := result["tools"].([]Tool)
	if !ok || len(tools) != len(GetToolDefinitions()) {
		t.Errorf("tools = %v", result["tools"])
	}
}
