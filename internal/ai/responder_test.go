package ai

import (
	"strings"
	"testing"

	"chengbot/internal/engine"
)

func TestCleanResponse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain reply", "plain reply"},
		{"sourced claim【4:0†whitepaper.pdf】 here", "sourced claim here"},
		{"**very** important", "very important"},
		{"1. first 2. second", "first second"},
		{"too   many\n\nspaces", "too many spaces"},
		{"  padded  ", "padded"},
		{"**bold**【1:2†doc】 and 3. listed", "bold and listed"},
	}
	for _, tc := range cases {
		if got := CleanResponse(tc.in); got != tc.want {
			t.Errorf("CleanResponse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPrompt(t *testing.T) {
	req := Request{
		Message: &engine.Message{
			Content:  "is gigacheng still alive?",
			Keywords: []string{"rug", "scam"},
		},
		Sentiment: engine.Result{
			Polarity:     -0.42,
			Subjectivity: 0.8,
			Category:     engine.CategoryBearish,
		},
		Context: engine.Summary{
			CurrentTopic: "rug",
			TopTopics: []engine.TopicCount{
				{Topic: "rug", Count: 3},
				{Topic: "scam", Count: 2},
			},
		},
		Username: "anon42",
		IsReply:  true,
	}

	prompt := FormatPrompt(req)

	for _, want := range []string{
		"Sender: anon42",
		"Is Reply: true",
		"Score: -0.42",
		"Subjectivity: 0.80",
		"Keywords: rug, scam",
		"Current Chat Context: rug",
		"Active Discussion Topics: rug, scam",
		"This is a reply to your previous message. Message: is gigacheng still alive?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestFormatPrompt_Defaults(t *testing.T) {
	req := Request{
		Message:  &engine.Message{Content: "hello"},
		Username: "anon",
	}
	prompt := FormatPrompt(req)

	if !strings.Contains(prompt, "Keywords: None") {
		t.Error("expected Keywords: None for empty keywords")
	}
	if !strings.Contains(prompt, "Current Chat Context: None") {
		t.Error("expected Current Chat Context: None for empty topic")
	}
	if strings.Contains(prompt, "This is a reply") {
		t.Error("non-reply prompt must not carry the reply preamble")
	}
	if !strings.Contains(prompt, "\nMessage: hello") {
		t.Error("expected bare Message line")
	}
}
