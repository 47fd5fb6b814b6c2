package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"chengbot/pkg/retrylimit"
)

const (
	runPollInterval = time.Second
	runTimeout      = 30 * time.Second
)

// statusError carries the HTTP status of an OpenAI client error so the retry
// package's limiter can react to 429s and 5xx.
type statusError struct {
	err  error
	code int
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

// wrapStatus adapts openai errors, which expose HTTPStatusCode as a field,
// onto retrylimit.HTTPError. Non-HTTP errors pass through unchanged.
func wrapStatus(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &statusError{err: err, code: apiErr.HTTPStatusCode}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &statusError{err: err, code: reqErr.HTTPStatusCode}
	}
	return err
}

// ThreadStore persists the chat-to-thread mapping across restarts.
type ThreadStore interface {
	ThreadID(chatID string) (string, error)
	SetThreadID(chatID, threadID string) error
}

// AssistantClient talks to a pre-configured OpenAI assistant. One thread per
// chat keeps the assistant's conversational memory scoped to that chat.
type AssistantClient struct {
	client      *openai.Client
	assistantID string
	threads     ThreadStore
	limiter     *retrylimit.AdaptiveLimiter
}

func NewAssistantClient(apiKey, assistantID string, threads ThreadStore) *AssistantClient {
	return &AssistantClient{
		client:      openai.NewClient(apiKey),
		assistantID: assistantID,
		threads:     threads,
		limiter:     retrylimit.NewAdaptiveLimiter(2, 1, 5, rate.Limit(0.5), 0.5),
	}
}

// CheckAssistant verifies the assistant exists and is reachable. Called once
// at startup so a bad ID fails fast instead of on the first message.
func (c *AssistantClient) CheckAssistant(ctx context.Context) error {
	assistant, err := c.client.RetrieveAssistant(ctx, c.assistantID)
	if err != nil {
		return fmt.Errorf("retrieve assistant %s: %w", c.assistantID, err)
	}
	name := "unnamed"
	if assistant.Name != nil {
		name = *assistant.Name
	}
	log.Printf("[INFO] Connected to assistant %q model=%s (%s)", name, assistant.Model, c.assistantID)
	return nil
}

func (c *AssistantClient) threadFor(ctx context.Context, chatID string) (string, error) {
	threadID, err := c.threads.ThreadID(chatID)
	if err != nil {
		return "", err
	}
	if threadID != "" {
		return threadID, nil
	}

	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if err := c.threads.SetThreadID(chatID, thread.ID); err != nil {
		return "", fmt.Errorf("persist thread id: %w", err)
	}
	log.Printf("[INFO] Created new thread %s for chat %s", thread.ID, chatID)
	return thread.ID, nil
}

// Respond sends the formatted message into the chat's thread, runs the
// assistant, and returns the cleaned reply.
func (c *AssistantClient) Respond(ctx context.Context, chatID string, req Request) (string, error) {
	threadID, err := c.threadFor(ctx, chatID)
	if err != nil {
		return "", err
	}

	prompt := FormatPrompt(req)
	err = retrylimit.WithRetry(ctx, func() error {
		_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		})
		return wrapStatus(err)
	}, c.limiter)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	if err := c.waitForRun(ctx, threadID, run.ID); err != nil {
		return "", err
	}

	return c.latestAssistantReply(ctx, threadID, run.ID)
}

func (c *AssistantClient) waitForRun(ctx context.Context, threadID, runID string) error {
	deadline := time.Now().Add(runTimeout)
	ticker := time.NewTicker(runPollInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("assistant run %s timed out after %s", runID, runTimeout)
		}

		run, err := c.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return fmt.Errorf("retrieve run: %w", err)
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return nil
		case openai.RunStatusFailed, openai.RunStatusExpired, openai.RunStatusCancelled:
			return fmt.Errorf("assistant run %s ended with status %s", runID, run.Status)
		case openai.RunStatusRequiresAction:
			// Tool calls are not configured for this assistant; log and keep
			// polling so the run can expire server-side.
			log.Printf("[ERR] Run %s requires action; no tool handler installed", runID)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *AssistantClient) latestAssistantReply(ctx context.Context, threadID, runID string) (string, error) {
	limit := 1
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Text != nil {
				return CleanResponse(part.Text.Value), nil
			}
		}
	}
	return "", errors.New("no assistant response found")
}
