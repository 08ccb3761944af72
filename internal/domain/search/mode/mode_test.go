package mode

import "testing"

func TestIsValid(t *testing.T) {
	for _, m := range []Mode{Text, Vector, Hybrid} {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}
	for _, m := range []Mode{"", "semantic", "keyword", "Vector"} {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Mode
		wantOK bool
	}{
		{"", Vector, true},
		{"Vector", Vector, true},
		{"TEXT", Text, true},
		{" hybrid ", Hybrid, true},
		{"geo", "geo", false},
	}
	for _, tc := range tests {
		got, ok := Parse(tc.in, Vector)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("Parse(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestLegs(t *testing.T) {
	if Text.UsesVectors() || !Text.UsesKeywords() {
		t.Error("text mode runs keywords only")
	}
	if !Vector.UsesVectors() || Vector.UsesKeywords() {
		t.Error("vector mode runs vectors only")
	}
	if !Hybrid.UsesVectors() || !Hybrid.UsesKeywords() {
		t.Error("hybrid mode runs both legs")
	}
}
