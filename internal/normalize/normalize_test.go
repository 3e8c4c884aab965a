package normalize

import (
	"reflect"
	"testing"
)

func TestLoose(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Accuracy", "accuracy"},
		{"  Data   Accuracy \t", "data accuracy"},
		{"Completeness\n", "completeness"},
		{"ÄCCURACY", "äccuracy"},
	}

	for _, tt := range tests {
		if got := Loose(tt.in); got != tt.want {
			t.Errorf("Loose(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCriterionName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"accuracy", "Accuracy"},
		{"  data   accuracy ", "Data accuracy"},
		{"Data Accuracy", "Data Accuracy"},
		{"completeness\t", "Completeness"},
		{"éclat", "Éclat"},
		{"123 things", "123 things"},
		{"ıntegrity", "ıntegrity"},
		{"ſize", "ſize"},
		{"ςigma", "ςigma"},
		{"µ-scale", "µ-scale"},
	}

	for _, tt := range tests {
		if got := CriterionName(tt.in); got != tt.want {
			t.Errorf("CriterionName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIdempotent(t *testing.T) {
	inputs := []string{"", "  Mixed   CASE  name ", "accuracy", "timeliness\n\tof data"}
	for _, in := range inputs {
		once := Loose(in)
		if Loose(once) != once {
			t.Errorf("Loose not idempotent for %q", in)
		}
		c := CriterionName(in)
		if CriterionName(c) != c {
			t.Errorf("CriterionName not idempotent for %q", in)
		}
	}
}

func TestRedundant(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Data is correct.", "data is correct", true},
		{"Data is correct", "Data is correct", true},
		{"The data is correct", "The data is correct and also verified against an external gold standard", false},
		{"Timeliness", "Completeness", false},
		{"", "", true},
		{"", "something", false},
	}

	for _, tt := range tests {
		if got := Redundant(tt.a, tt.b); got != tt.want {
			t.Errorf("Redundant(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCollapseDefinitions(t *testing.T) {
	got := CollapseDefinitions([]string{"Data is correct.", "data is correct", "", "Data is timely"})
	want := []string{"Data is correct.", "Data is timely"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollapseDefinitions = %v, want %v", got, want)
	}

	if got := CollapseDefinitions(nil); got != nil {
		t.Errorf("expected nil for nil input, got %v", got)
	}
}

func TestRedundantIndexes(t *testing.T) {
	texts := []string{
		"Data is correct",
		"data is  correct",
		"Data is correct and complete",
		"Completely unrelated text",
	}
	// 1 is an exact loose duplicate of 0; 0 is a near-substring of 2 and shorter
	got := RedundantIndexes(texts)
	want := []int{0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RedundantIndexes = %v, want %v", got, want)
	}

	if got := RedundantIndexes(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestCriterionName_KeepsLooseKey(t *testing.T) {
	for _, in := range []string{"accuracy", "ıntegrity", "ſize", "ςigma", "µ-scale", "ǆungla", "éclat"} {
		if got, want := Loose(CriterionName(in)), Loose(in); got != want {
			t.Errorf("Loose(CriterionName(%q)) = %q, want %q", in, got, want)
		}
	}
}
