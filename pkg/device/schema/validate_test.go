package schema

import (
	"encoding/json"
	"testing"
)

func TestValidate_StatusValid(t *testing.T) {
	v := NewValidator()

	err := v.ValidateJSON(Status, []byte(`{"uuid":"0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11","name":"bed","target":4}`))
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_StatusMissingTarget(t *testing.T) {
	v := NewValidator()

	err := v.ValidateJSON(Status, []byte(`{"uuid":"0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11"}`))
	if err == nil {
		t.Error("expected validation error for missing target")
	}
}

func TestValidate_StatusOutOfRange(t *testing.T) {
	v := NewValidator()

	err := v.ValidateJSON(Status, []byte(`{"uuid":"0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11","target":8}`))
	if err == nil {
		t.Error("expected validation error for target 8")
	}
}

func TestValidate_StatusFractionalTarget(t *testing.T) {
	v := NewValidator()

	err := v.ValidateJSON(Status, []byte(`{"uuid":"0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11","target":2.5}`))
	if err == nil {
		t.Error("expected validation error for non-integer target")
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	v := NewValidator()

	err := v.ValidateJSON(Status, []byte(`{"uuid":`))
	if err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestValidate_CommandSetNeedsTarget(t *testing.T) {
	v := NewValidator()

	err := v.Validate(Command, map[string]any{"action": "set"})
	if err == nil {
		t.Error("expected validation error for set without target")
	}

	err = v.Validate(Command, map[string]any{"action": "set", "target": 3})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_CommandOnOff(t *testing.T) {
	v := NewValidator()

	for _, a := range []string{"on", "off", "OFF"} {
		if err := v.Validate(Command, map[string]any{"action": a}); err != nil {
			t.Errorf("action %q: expected valid payload, got: %v", a, err)
		}
	}
}

func TestValidate_CommandUnknownAction(t *testing.T) {
	v := NewValidator()

	err := v.Validate(Command, map[string]any{"action": "dim"})
	if err == nil {
		t.Error("expected validation error for invalid enum value")
	}
}

func TestValidate_CommandUnknownProperty(t *testing.T) {
	v := NewValidator()

	err := v.Validate(Command, map[string]any{"action": "on", "colour": "red"})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	err := v.Validate(json.RawMessage(`{}`), map[string]any{
		"anything": "goes",
	})
	if err != nil {
		t.Errorf("empty schema should skip validation, got: %v", err)
	}
}

func TestValidate_NilSchema(t *testing.T) {
	v := NewValidator()

	err := v.ValidateJSON(nil, []byte(`not even json`))
	if err != nil {
		t.Errorf("nil schema should skip validation, got: %v", err)
	}
}

func TestValidate_CachesSchema(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(Command, map[string]any{"action": "on"}); err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateJSON(Command, []byte(`{"action":"off"}`)); err != nil {
		t.Fatal(err)
	}

	v.mu.RLock()
	cacheSize := len(v.cache)
	v.mu.RUnlock()
	if cacheSize != 1 {
		t.Errorf("expected 1 cached schema, got %d", cacheSize)
	}
}
