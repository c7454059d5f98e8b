package mailgrade

// ScoreVersion identifies the scoring profile. Bump it whenever
// weights or grade bands change so stored results stay comparable.
const ScoreVersion = "1.0"

// MaxScore is the sum of all control weights.
const MaxScore = 100

// Grade bands, highest threshold first.
var gradeBands = []struct {
	threshold int
	grade     string
}{
	{95, "A+"},
	{90, "A"},
	{80, "B"},
	{70, "C"},
	{60, "D"},
	{50, "E"},
}

// GradeFor maps a total score to its letter grade.
func GradeFor(score int) string {
	for _, band := range gradeBands {
		if score >= band.threshold {
			return band.grade
		}
	}
	return "F"
}

var gradeColors = map[string]string{
	"A+": "#00c853",
	"A":  "#00e676",
	"B":  "#2979ff",
	"C":  "#ffea00",
	"D":  "#ff9100",
	"E":  "#ff6d00",
	"F":  "#ff1744",
}

// GradeColor returns the display color for a letter grade.
func GradeColor(grade string) string {
	if color, ok := gradeColors[grade]; ok {
		return color
	}
	return "#666"
}
