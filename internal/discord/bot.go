// Package discord adapts Discord message events onto the message processor
// and delivers generated responses back into channels.
package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"chengbot/internal/config"
	"chengbot/internal/engine"
	"chengbot/internal/processor"
)

// Bot is the Discord front end. All decision logic lives in the processor;
// the bot only translates events and sends. It implements processor.Sender,
// so it is constructed first and handed the processor at Run.
type Bot struct {
	dg   *discordgo.Session
	cfg  *config.Settings
	proc *processor.Processor
}

func New(cfg *config.Settings) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return &Bot{dg: dg, cfg: cfg}, nil
}

// Run connects, wires handlers, starts the dead chat watcher, and blocks
// until the context ends.
func (b *Bot) Run(ctx context.Context, proc *processor.Processor) error {
	b.proc = proc

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	go b.proc.RunDeadChatWatcher(ctx)

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Cleaning up...")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[INFO] Logged in as %s#%s", r.User.Username, r.User.Discriminator)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if m.Content == "" {
		return
	}
	if !b.cfg.ChatAllowed(m.ChannelID) {
		return
	}

	isReplyToBot := m.ReferencedMessage != nil &&
		m.ReferencedMessage.Author != nil &&
		m.ReferencedMessage.Author.ID == s.State.User.ID

	msg := &engine.Message{
		ID:        m.ID,
		Content:   m.Content,
		AuthorID:  m.Author.ID,
		Timestamp: time.Now(),
		ContextID: m.ChannelID,
	}

	username := m.Author.Username
	if username == "" {
		username = "Unknown"
	}

	b.proc.Handle(context.Background(), m.ChannelID, msg, username, isReplyToBot)
}

// Send implements processor.Sender. An empty replyToID sends a plain channel
// message.
func (b *Bot) Send(chatID, replyToID, text string) error {
	if replyToID == "" {
		_, err := b.dg.ChannelMessageSend(chatID, text)
		return err
	}
	_, err := b.dg.ChannelMessageSendReply(chatID, text, &discordgo.MessageReference{
		MessageID: replyToID,
		ChannelID: chatID,
	})
	return err
}
