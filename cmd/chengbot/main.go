// cmd/chengbot/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chengbot/internal/ai"
	"chengbot/internal/analysis"
	"chengbot/internal/config"
	"chengbot/internal/discord"
	"chengbot/internal/polarity"
	"chengbot/internal/processor"
	"chengbot/internal/storage"
)

func main() {
	log.Printf("[INFO] Starting chengbot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.New()

	store, err := storage.New(ctx, cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	alog, err := analysis.New(cfg.AnalysisDir)
	if err != nil {
		log.Fatal(err)
	}

	assistant := ai.NewAssistantClient(cfg.OpenAIAPIKey, cfg.AssistantID, store)
	if err := assistant.CheckAssistant(ctx); err != nil {
		log.Fatal(err)
	}

	bot, err := discord.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	proc := processor.New(cfg.Engine(), polarity.NewVader(), assistant, bot, store, alog, cfg.MaxDailyResponses)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx, proc); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	proc.LogDailySummary()
	log.Println("[INFO] chengbot exited cleanly")
}
