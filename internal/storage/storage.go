// Package storage persists per-chat bot state: the OpenAI thread mapping and
// the last confirmed response time. Backed by a JSON file datastore with
// autosave and atomic writes.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/datastore"
)

// All chats live under a single key so the full mapping can be listed and
// backed up without key enumeration support from the datastore.
const chatsKey = "chats"

type Storage struct {
	ds *datastore.DataStore
}

// ChatRecord is everything remembered about one chat between restarts.
type ChatRecord struct {
	ThreadID       string    `json:"thread_id,omitempty"`
	LastResponseAt time.Time `json:"last_response_at,omitempty"`
}

func New(ctx context.Context, filePath string) (*Storage, error) {
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func (s *Storage) getChats() (map[string]ChatRecord, error) {
	chats := map[string]ChatRecord{}
	found, err := s.ds.Get(chatsKey, &chats)
	if err != nil {
		return nil, fmt.Errorf("read chat records: %w", err)
	}
	if !found || chats == nil {
		chats = map[string]ChatRecord{}
	}
	return chats, nil
}

func (s *Storage) putChats(chats map[string]ChatRecord) error {
	if err := s.ds.Set(chatsKey, chats); err != nil {
		return fmt.Errorf("write chat records: %w", err)
	}
	return nil
}

// ThreadID returns the stored conversation thread for a chat, or "" when the
// chat has none yet.
func (s *Storage) ThreadID(chatID string) (string, error) {
	chats, err := s.getChats()
	if err != nil {
		return "", err
	}
	return chats[chatID].ThreadID, nil
}

func (s *Storage) SetThreadID(chatID, threadID string) error {
	chats, err := s.getChats()
	if err != nil {
		return err
	}
	record := chats[chatID]
	record.ThreadID = threadID
	chats[chatID] = record
	return s.putChats(chats)
}

// DeleteThread drops the thread mapping but keeps the rest of the record.
func (s *Storage) DeleteThread(chatID string) error {
	chats, err := s.getChats()
	if err != nil {
		return err
	}
	record, ok := chats[chatID]
	if !ok {
		return nil
	}
	record.ThreadID = ""
	chats[chatID] = record
	return s.putChats(chats)
}

// AllThreads returns every chat that currently has a thread mapping.
func (s *Storage) AllThreads() (map[string]string, error) {
	chats, err := s.getChats()
	if err != nil {
		return nil, err
	}
	threads := make(map[string]string)
	for chatID, record := range chats {
		if record.ThreadID != "" {
			threads[chatID] = record.ThreadID
		}
	}
	return threads, nil
}

// LastResponseAt returns the zero time when the bot has never responded in
// the chat.
func (s *Storage) LastResponseAt(chatID string) (time.Time, error) {
	chats, err := s.getChats()
	if err != nil {
		return time.Time{}, err
	}
	return chats[chatID].LastResponseAt, nil
}

func (s *Storage) SetLastResponseAt(chatID string, at time.Time) error {
	chats, err := s.getChats()
	if err != nil {
		return err
	}
	record := chats[chatID]
	record.LastResponseAt = at
	chats[chatID] = record
	return s.putChats(chats)
}
