package proctor

// MarkingScheme holds the point values for one plan tier. Wrong is the
// penalty magnitude: a scheme of {correct:+4, wrong:-1} is expressed as
// {Correct: 4, Wrong: 1}.
type MarkingScheme struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
	Skipped int `json:"skipped"`
}

// Question is one entry of the question set handed over by the provider.
type Question struct {
	ID            string   `json:"id"`
	Section       string   `json:"section"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// SectionScore is the per-section subtotal of a graded attempt.
type SectionScore struct {
	Section  string `json:"section"`
	Correct  int    `json:"correct"`
	Wrong    int    `json:"wrong"`
	Skipped  int    `json:"skipped"`
	RawScore int    `json:"raw_score"`
}

// Result is the grading outcome of one attempt.
type Result struct {
	Correct    int            `json:"correct"`
	Wrong      int            `json:"wrong"`
	Skipped    int            `json:"skipped"`
	RawScore   int            `json:"raw_score"`
	MaxScore   int            `json:"max_score"`
	Percentage float64        `json:"percentage"`
	Passed     bool           `json:"passed"`
	PerSection []SectionScore `json:"per_section"`
}

// Score grades a final answer set against the question set and marking
// scheme. It never fails: answers referencing unknown question IDs are
// ignored, and a missing or out-of-range selection counts as skipped.
// The percentage is clamped to [0, 100] so heavy negative marking cannot
// drive it below zero. Pass/fail compares against passPercent, which is
// per-tier data rather than logic.
func Score(answers map[string]int, questions []Question, scheme MarkingScheme, passPercent float64) Result {
	res := Result{}
	sectionIdx := make(map[string]int)

	for _, q := range questions {
		idx, ok := sectionIdx[q.Section]
		if !ok {
			idx = len(res.PerSection)
			sectionIdx[q.Section] = idx
			res.PerSection = append(res.PerSection, SectionScore{Section: q.Section})
		}
		sec := &res.PerSection[idx]

		res.MaxScore += scheme.Correct

		selected, answered := answers[q.ID]
		switch {
		case !answered || selected < 0 || selected >= len(q.Options):
			res.Skipped++
			sec.Skipped++
			res.RawScore += scheme.Skipped
			sec.RawScore += scheme.Skipped
		case selected == q.CorrectOption:
			res.Correct++
			sec.Correct++
			res.RawScore += scheme.Correct
			sec.RawScore += scheme.Correct
		default:
			res.Wrong++
			sec.Wrong++
			res.RawScore -= scheme.Wrong
			sec.RawScore -= scheme.Wrong
		}
	}

	if res.MaxScore > 0 {
		res.Percentage = float64(res.RawScore) / float64(res.MaxScore) * 100
	}
	if res.Percentage < 0 {
		res.Percentage = 0
	}
	if res.Percentage > 100 {
		res.Percentage = 100
	}

	res.Passed = res.Percentage >= passPercent

	return res
}
