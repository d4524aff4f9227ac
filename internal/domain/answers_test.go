package domain

import (
	"encoding/json"
	"testing"
)

func TestValueConversions(t *testing.T) {
	if b, ok := TextValue("YES").Bool(); !ok || !b {
		t.Error("Expected text YES to read as true")
	}
	if b, ok := TextValue("no").Bool(); !ok || b {
		t.Error("Expected text no to read as false")
	}
	if _, ok := TextValue("sometimes").Bool(); ok {
		t.Error("Expected arbitrary text to not read as boolean")
	}
	if n, ok := TextValue(" 140 ").Number(); !ok || n != 140 {
		t.Errorf("Expected numeric text to parse, got %v %v", n, ok)
	}
	if _, ok := BoolValue(true).Number(); ok {
		t.Error("Expected boolean to not read as number")
	}
}

func TestValueIsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected bool
	}{
		{"Zero", Value{}, true},
		{"Blank text", TextValue("   "), true},
		{"Text", TextValue("no"), false},
		{"False", BoolValue(false), false},
		{"Zero number", NumberValue(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsEmpty(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAnswerSetJSON(t *testing.T) {
	var answers AnswerSet
	if err := json.Unmarshal([]byte(`{"cough":"yes","fever":true,"systolicBP":142.5,"note":null}`), &answers); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if s, _ := answers["cough"].Text(); s != "yes" {
		t.Errorf("Expected cough=yes, got %v", answers["cough"])
	}
	if b, _ := answers["fever"].Bool(); !b {
		t.Errorf("Expected fever=true, got %v", answers["fever"])
	}
	if n, _ := answers["systolicBP"].Number(); n != 142.5 {
		t.Errorf("Expected systolicBP=142.5, got %v", answers["systolicBP"])
	}
	if answers.Has("note") {
		t.Error("Null answer should count as missing")
	}

	out, err := json.Marshal(AnswerSet{"fever": BoolValue(true)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"fever":true}` {
		t.Errorf("Unexpected JSON %s", out)
	}
}

func TestAnswerSetFromMap(t *testing.T) {
	answers, err := AnswerSetFromMap(map[string]any{"age": 42, "gender": "female", "smoker": false})
	if err != nil {
		t.Fatalf("AnswerSetFromMap failed: %v", err)
	}
	if n, _ := answers["age"].Number(); n != 42 {
		t.Errorf("Expected age 42, got %v", answers["age"])
	}

	if _, err := AnswerSetFromMap(map[string]any{"list": []string{"a"}}); err == nil {
		t.Error("Expected error for non-scalar answer")
	}
}

func TestAnswerSetClone(t *testing.T) {
	original := AnswerSet{"cough": TextValue("yes")}
	clone := original.Clone()
	clone["cough"] = TextValue("no")

	if s, _ := original["cough"].Text(); s != "yes" {
		t.Error("Mutating the clone changed the original")
	}
	if (AnswerSet(nil)).Clone() == nil {
		t.Error("Cloning nil should return an empty set")
	}
}
