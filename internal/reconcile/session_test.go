package reconcile

import (
	"encoding/json"
	"testing"
)

func sessionDefaults(t *testing.T) []Leaf {
	t.Helper()
	return Flatten([]byte(`{
		"enabled": true,
		"leverage": 5,
		"provider": "deepseek",
		"exclude_symbols": ["BTCUSDT", "ETHUSDT"]
	}`))
}

func TestSessionRoundTrip(t *testing.T) {
	defaults := sessionDefaults(t)
	s := OpenSession("llm_config", defaults)

	if s.IsDirty() {
		t.Error("Fresh session must not be dirty")
	}

	payload := s.Payload()
	if len(payload) != len(defaults) {
		t.Fatalf("Expected payload of %d entries, got %d", len(defaults), len(payload))
	}
	for _, leaf := range defaults {
		if CanonicalSerialize(payload[leaf.Path]) != CanonicalSerialize(leaf.Value) {
			t.Errorf("Payload[%s] differs from default", leaf.Path)
		}
	}
}

func TestSessionBooleanCoercion(t *testing.T) {
	s := OpenSession("mode_config", sessionDefaults(t))

	s.SetValue("enabled", "false")
	v, _ := s.Value("enabled")
	if v != false {
		t.Errorf("Expected boolean false, got %T %v", v, v)
	}

	s.SetValue("enabled", "YES")
	v, _ = s.Value("enabled")
	if v != true {
		t.Errorf("Expected yes to coerce to true, got %v", v)
	}

	s.SetValue("enabled", "banana")
	v, _ = s.Value("enabled")
	if v != false {
		t.Errorf("Expected non-true input to coerce to false, got %v", v)
	}
}

func TestSessionNumberParseFailureRetainsPrevious(t *testing.T) {
	s := OpenSession("mode_config", sessionDefaults(t))

	s.SetValue("leverage", "abc")
	v, _ := s.Value("leverage")
	if CanonicalSerialize(v) != "5" {
		t.Errorf("Expected unparsable input to retain 5, got %v", v)
	}
	if s.IsDirty() {
		t.Error("Retained value must not mark the session dirty")
	}

	s.SetValue("leverage", "10")
	v, _ = s.Value("leverage")
	if CanonicalSerialize(v) != "10" {
		t.Errorf("Expected 10, got %v", v)
	}
	if !s.IsDirty() {
		t.Error("Changed value must mark the session dirty")
	}
}

func TestSessionArraySplitAndTrim(t *testing.T) {
	s := OpenSession("mode_config", sessionDefaults(t))

	s.SetValue("exclude_symbols", "BTCUSDT,  SOLUSDT , DOGEUSDT")
	v, _ := s.Value("exclude_symbols")
	arr, ok := v.([]interface{})
	if !ok {
		t.Fatalf("Expected array value, got %T", v)
	}
	expected := []string{"BTCUSDT", "SOLUSDT", "DOGEUSDT"}
	if len(arr) != len(expected) {
		t.Fatalf("Expected %d elements, got %d", len(expected), len(arr))
	}
	for i, want := range expected {
		if arr[i] != want {
			t.Errorf("Element %d: expected %q, got %v", i, want, arr[i])
		}
	}
}

func TestSessionStringPassThrough(t *testing.T) {
	s := OpenSession("llm_config", sessionDefaults(t))

	s.SetValue("provider", "claude")
	v, _ := s.Value("provider")
	if v != "claude" {
		t.Errorf("Expected raw string stored, got %v", v)
	}
}

func TestSessionUnknownPathIgnored(t *testing.T) {
	s := OpenSession("llm_config", sessionDefaults(t))
	s.SetValue("no_such_path", "1")
	if _, ok := s.Value("no_such_path"); ok {
		t.Error("Unknown paths must not be added to the session")
	}
	if s.IsDirty() {
		t.Error("Unknown path writes must not dirty the session")
	}
}

func TestSessionReset(t *testing.T) {
	s := OpenSession("mode_config", sessionDefaults(t))
	s.SetValue("leverage", "20")
	s.SetValue("enabled", "false")
	if !s.IsDirty() {
		t.Fatal("Expected dirty session before reset")
	}

	s.Reset()

	if s.IsDirty() {
		t.Error("Reset session must be clean")
	}
	v, _ := s.Value("leverage")
	if CanonicalSerialize(v) != "5" {
		t.Errorf("Expected leverage back at 5, got %v", v)
	}
}

// Full editing pass over capital allocation: a bad edit blocks the save, then
// reverting the edit passes validation with the original payload intact.
func TestCapitalAllocationEditScenario(t *testing.T) {
	defaults := Flatten([]byte(`{
		"ultra_fast_percent": 10,
		"scalp_percent": 30,
		"swing_percent": 40,
		"position_percent": 20
	}`))
	s := OpenSession("capital_allocation", defaults)
	v := NewValidator()

	s.SetValue("swing_percent", "35")
	err := v.Validate("capital_allocation", s.Payload())
	if err == nil {
		t.Fatal("Expected validation failure at 105% total")
	}
	expected := "Total allocation must be 100%. Current total: 105.0%"
	if err.Message != expected {
		t.Errorf("Expected %q, got %q", expected, err.Message)
	}

	s.SetValue("swing_percent", "40")
	if err := v.Validate("capital_allocation", s.Payload()); err != nil {
		t.Errorf("Expected pass after reverting, got %q", err.Message)
	}
	if s.IsDirty() {
		t.Error("Session must be clean after reverting to the original value")
	}
	payload := s.Payload()
	for _, leaf := range defaults {
		if CanonicalSerialize(payload[leaf.Path]) != CanonicalSerialize(leaf.Value) {
			t.Errorf("Payload[%s] should equal the original default", leaf.Path)
		}
	}
}

func TestSessionJSONNumberOriginals(t *testing.T) {
	// Leaves produced by Flatten carry json.Number; edits must still coerce
	// to numbers, and failed parses must retain the json.Number original.
	defaults := []Leaf{{Path: "timeout_ms", Value: json.Number("5000")}}
	s := OpenSession("llm_config", defaults)

	s.SetValue("timeout_ms", "2500")
	v, _ := s.Value("timeout_ms")
	if _, ok := v.(float64); !ok {
		t.Errorf("Expected float64 after numeric edit, got %T", v)
	}

	s.SetValue("timeout_ms", "fast")
	v, _ = s.Value("timeout_ms")
	if CanonicalSerialize(v) != "2500" {
		t.Errorf("Expected previous value retained, got %v", v)
	}
}
