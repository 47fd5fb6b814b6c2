package polarity

import "testing"

func TestEstimate_Bounds(t *testing.T) {
	v := NewVader()
	for _, text := range []string{
		"this is amazing, great work",
		"terrible, awful, worst project ever",
		"the meeting is at noon",
		"",
	} {
		pol, subj, err := v.Estimate(text)
		if err != nil {
			t.Fatalf("Estimate(%q) failed: %v", text, err)
		}
		if pol < -1 || pol > 1 {
			t.Errorf("Estimate(%q) polarity %v outside [-1,1]", text, pol)
		}
		if subj < 0 || subj > 1 {
			t.Errorf("Estimate(%q) subjectivity %v outside [0,1]", text, subj)
		}
	}
}

func TestEstimate_Direction(t *testing.T) {
	v := NewVader()
	pos, _, err := v.Estimate("this is amazing, great work, love it")
	if err != nil {
		t.Fatal(err)
	}
	neg, _, err := v.Estimate("this is horrible, hate it, total disaster")
	if err != nil {
		t.Fatal(err)
	}
	if pos <= 0 {
		t.Errorf("expected positive polarity, got %v", pos)
	}
	if neg >= 0 {
		t.Errorf("expected negative polarity, got %v", neg)
	}
	if pos <= neg {
		t.Errorf("ordering broken: pos=%v neg=%v", pos, neg)
	}
}
