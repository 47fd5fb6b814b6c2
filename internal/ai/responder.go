// Package ai generates chat responses through the OpenAI Assistants API,
// one persistent thread per chat.
package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"chengbot/internal/engine"
)

// Responder produces a reply for a chat given an already-analyzed message.
type Responder interface {
	Respond(ctx context.Context, chatID string, req Request) (string, error)
}

// Request carries the analyzed message and its surrounding context into the
// prompt.
type Request struct {
	Message   *engine.Message
	Sentiment engine.Result
	Context   engine.Summary
	Username  string
	IsReply   bool
}

var (
	citationRe = regexp.MustCompile(`【\d+:\d+†[^】]+】`)
	boldRe     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	listRe     = regexp.MustCompile(`\d\.\s+`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// CleanResponse strips citation markers, bold markup and numbered-list
// prefixes, then collapses whitespace. Assistant output is meant to read as
// an ordinary chat message.
func CleanResponse(text string) string {
	cleaned := citationRe.ReplaceAllString(text, "")
	cleaned = boldRe.ReplaceAllString(cleaned, "$1")
	cleaned = listRe.ReplaceAllString(cleaned, "")
	cleaned = spaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// FormatPrompt prefixes the user message with an analysis block so the
// assistant can tune its tone to the room.
func FormatPrompt(req Request) string {
	keywords := "None"
	if len(req.Message.Keywords) > 0 {
		keywords = strings.Join(req.Message.Keywords, ", ")
	}

	topic := req.Context.CurrentTopic
	if topic == "" {
		topic = "None"
	}
	topics := make([]string, 0, len(req.Context.TopTopics))
	for _, tc := range req.Context.TopTopics {
		topics = append(topics, tc.Topic)
	}

	replyContext := ""
	if req.IsReply {
		replyContext = "This is a reply to your previous message. "
	}

	return fmt.Sprintf(`[Message Analysis:
Sender: %s
Is Reply: %v
Sentiment: %s
Score: %.2f
Subjectivity: %.2f
Keywords: %s
Current Chat Context: %s
Active Discussion Topics: %s]

%sMessage: %s`,
		req.Username,
		req.IsReply,
		req.Sentiment.Category,
		req.Sentiment.Polarity,
		req.Sentiment.Subjectivity,
		keywords,
		topic,
		strings.Join(topics, ", "),
		replyContext,
		req.Message.Content,
	)
}
