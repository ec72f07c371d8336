package output

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewYAMLFormatter(t *testing.T) {
	formatter := NewYAMLFormatter(nil)
	if formatter.options == nil {
		t.Error("formatter.options is nil")
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	data := map[string]interface{}{
		"pool": "worker",
		"sizes": map[string]int{
			"core": 2,
			"max":  8,
		},
	}

	var buf bytes.Buffer
	if err := NewYAMLFormatter(nil).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}
	if result["pool"] != "worker" {
		t.Errorf("pool = %v, want worker", result["pool"])
	}
	if !strings.Contains(buf.String(), "\n  core: 2") {
		t.Errorf("expected two-space indentation, got:\n%s", buf.String())
	}
}

func TestYAMLFormatter_FormatResults(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLFormatter(nil).FormatResults(&buf, sampleResults()); err != nil {
		t.Fatalf("FormatResults() error = %v", err)
	}

	var items []map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("Failed to parse YAML: %v", err)
	}

	tests := []struct {
		index int
		state string
		key   string
		value interface{}
	}{
		{index: 0, state: "succeeded", key: "data", value: 42},
		{index: 1, state: "failed", key: "error", value: "connection refused"},
		{index: 2, state: "cancelled", key: "duration", value: "0s"},
	}

	if len(items) != len(tests) {
		t.Fatalf("got %d items, want %d", len(items), len(tests))
	}

	for _, tt := range tests {
		item := items[tt.index]
		if item["state"] != tt.state {
			t.Errorf("item %d state = %v, want %s", tt.index, item["state"], tt.state)
		}
		if item[tt.key] != tt.value {
			t.Errorf("item %d %s = %v, want %v", tt.index, tt.key, item[tt.key], tt.value)
		}
	}
}

func TestYAMLFormatter_FormatStats(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLFormatter(nil).FormatStats(&buf, sampleStats()); err != nil {
		t.Fatalf("FormatStats() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"name: worker",
		"rejected-handler: abort",
		"idle-timeout: 30m0s",
		"queue-remaining-capacity: 97",
		"state: Terminated",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\nGot:\n%s", want, output)
		}
	}
}
