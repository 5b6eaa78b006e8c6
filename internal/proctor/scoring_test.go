package proctor

import "testing"

func TestScore_MixedAnswers(t *testing.T) {
	// Four questions answered [correct, wrong, skipped, correct] under
	// {correct:+4, wrong:-1}: raw = 2*4 - 1 = 7 of a possible 16.
	answers := map[string]int{"q1": 0, "q2": 3, "q4": 3}
	res := Score(answers, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 55)

	if res.Correct != 2 || res.Wrong != 1 || res.Skipped != 1 {
		t.Fatalf("classification: got c=%d w=%d s=%d", res.Correct, res.Wrong, res.Skipped)
	}
	if res.RawScore != 7 {
		t.Fatalf("raw score: got %d, want 7", res.RawScore)
	}
	if res.MaxScore != 16 {
		t.Fatalf("max score: got %d, want 16", res.MaxScore)
	}
	if res.Percentage != 43.75 {
		t.Fatalf("percentage: got %v, want 43.75", res.Percentage)
	}
	if res.Passed {
		t.Fatal("43.75%% should not pass a 55%% threshold")
	}
}

func TestScore_PercentageNeverNegative(t *testing.T) {
	// All wrong under heavy negative marking must clamp to 0.
	answers := map[string]int{"q1": 1, "q2": 0, "q3": 0, "q4": 0}
	res := Score(answers, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 55)

	if res.Wrong != 4 {
		t.Fatalf("wrong: got %d, want 4", res.Wrong)
	}
	if res.RawScore != -4 {
		t.Fatalf("raw score: got %d, want -4", res.RawScore)
	}
	if res.Percentage != 0 {
		t.Fatalf("percentage: got %v, want 0", res.Percentage)
	}
}

func TestScore_EmptyAnswerSet(t *testing.T) {
	res := Score(nil, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 55)

	if res.Skipped != 4 || res.Correct != 0 || res.Wrong != 0 {
		t.Fatalf("all questions should be skipped: %+v", res)
	}
	if res.RawScore != 0 || res.Percentage != 0 {
		t.Fatalf("empty attempt should score zero: %+v", res)
	}
}

func TestScore_UnknownQuestionIgnored(t *testing.T) {
	answers := map[string]int{"q1": 0, "ghost": 2}
	res := Score(answers, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 55)

	if res.Correct != 1 || res.Wrong != 0 || res.Skipped != 3 {
		t.Fatalf("unknown id leaked into classification: %+v", res)
	}
}

func TestScore_OutOfRangeSelectionIsSkipped(t *testing.T) {
	answers := map[string]int{"q1": 9, "q2": -2}
	res := Score(answers, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 55)

	if res.Skipped != 4 {
		t.Fatalf("out-of-range selections should grade as skipped: %+v", res)
	}
}

func TestScore_PerSection(t *testing.T) {
	answers := map[string]int{"q1": 0, "q2": 1, "q3": 0}
	res := Score(answers, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 55)

	if len(res.PerSection) != 2 {
		t.Fatalf("sections: got %d, want 2", len(res.PerSection))
	}

	apt := res.PerSection[0]
	if apt.Section != "aptitude" || apt.Correct != 2 || apt.Wrong != 0 || apt.Skipped != 0 || apt.RawScore != 8 {
		t.Fatalf("aptitude subtotal wrong: %+v", apt)
	}

	rsn := res.PerSection[1]
	if rsn.Section != "reasoning" || rsn.Correct != 0 || rsn.Wrong != 1 || rsn.Skipped != 1 || rsn.RawScore != -1 {
		t.Fatalf("reasoning subtotal wrong: %+v", rsn)
	}
}

func TestScore_PassThresholdIsData(t *testing.T) {
	answers := map[string]int{"q1": 0, "q2": 1, "q3": 2, "q4": 3}

	skills := Score(answers, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 55)
	if !skills.Passed || skills.Percentage != 100 {
		t.Fatalf("perfect attempt should pass at 55: %+v", skills)
	}

	partial := map[string]int{"q1": 0, "q2": 1, "q3": 2}
	selective := Score(partial, fourQuestions(), MarkingScheme{Correct: 4, Wrong: 1}, 88)
	if selective.Passed {
		t.Fatalf("75%% should fail an 88%% threshold: %+v", selective)
	}
}
