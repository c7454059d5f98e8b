package mailgrade

import "testing"

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "A+"},
		{95, "A+"},
		{94, "A"},
		{90, "A"},
		{89, "B"},
		{80, "B"},
		{79, "C"},
		{70, "C"},
		{69, "D"},
		{60, "D"},
		{59, "E"},
		{50, "E"},
		{49, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestGradeColor(t *testing.T) {
	tests := []struct {
		grade string
		want  string
	}{
		{"A+", "#00c853"},
		{"A", "#00e676"},
		{"B", "#2979ff"},
		{"C", "#ffea00"},
		{"D", "#ff9100"},
		{"E", "#ff6d00"},
		{"F", "#ff1744"},
		{"Z", "#666"},
	}
	for _, tt := range tests {
		if got := GradeColor(tt.grade); got != tt.want {
			t.Errorf("GradeColor(%q) = %q, want %q", tt.grade, got, tt.want)
		}
	}
}
