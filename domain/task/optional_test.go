package task

import (
	"encoding/json"
	"testing"
)

func TestPatch_UnmarshalTriState(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		absent     bool
		null       bool
		value      string
		emptyPatch bool
	}{
		{name: "absent", body: `{"title":"New title"}`, absent: true},
		{name: "null", body: `{"assignedTo":null}`, null: true},
		{name: "value", body: `{"assignedTo":"user-2"}`, value: "user-2"},
		{name: "empty object", body: `{}`, absent: true, emptyPatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Patch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if p.AssignedTo.IsAbsent() != tt.absent {
				t.Errorf("IsAbsent() = %v, want %v", p.AssignedTo.IsAbsent(), tt.absent)
			}
			if p.AssignedTo.IsNull() != tt.null {
				t.Errorf("IsNull() = %v, want %v", p.AssignedTo.IsNull(), tt.null)
			}
			v, ok := p.AssignedTo.Get()
			if ok != (tt.value != "") || v != tt.value {
				t.Errorf("Get() = (%q, %v), want %q", v, ok, tt.value)
			}
			if p.IsEmpty() != tt.emptyPatch {
				t.Errorf("IsEmpty() = %v, want %v", p.IsEmpty(), tt.emptyPatch)
			}
		})
	}
}

func TestPatch_Version(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"status":"DONE","version":4}`), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	v, ok := p.Version.Get()
	if !ok || v != 4 {
		t.Errorf("expected version 4, got (%d, %v)", v, ok)
	}
}

func TestPatch_WrongTypeFails(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`{"status":5}`), &p); err == nil {
		t.Error("expected error for non-string status")
	}
}

func TestOptional_MarshalOmitsAbsent(t *testing.T) {
	p := Patch{Title: Some("Ship it"), AssignedTo: Null[string]()}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"title":"Ship it","assignedTo":null}` {
		t.Errorf("unexpected JSON %s", data)
	}
}
