// cmd/resetthreads/main.go
//
// Backs up and clears every stored chat-to-thread mapping so each chat gets a
// fresh assistant thread on its next message. Run while the bot is stopped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"chengbot/internal/config"
	"chengbot/internal/storage"
)

const backupDir = "thread_backups"

type backup struct {
	Timestamp string            `json:"timestamp"`
	Threads   map[string]string `json:"threads"`
}

func main() {
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := storage.New(context.Background(), cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	threads, err := store.AllThreads()
	if err != nil {
		log.Fatal(err)
	}
	if len(threads) == 0 {
		fmt.Println("No threads found to reset.")
		return
	}

	fmt.Printf("Found %d chat thread(s).\n", len(threads))
	fmt.Println("WARNING: this clears all assistant conversation history.")
	if !*yes && !confirm() {
		fmt.Println("Operation cancelled.")
		return
	}

	if err := writeBackup(threads); err != nil {
		log.Fatal(err)
	}

	failed := 0
	for chatID, threadID := range threads {
		if err := store.DeleteThread(chatID); err != nil {
			log.Printf("[ERR] Failed to reset thread for chat %s: %v", chatID, err)
			failed++
			continue
		}
		log.Printf("[INFO] Cleared thread %s for chat %s", threadID, chatID)
	}

	fmt.Printf("\nReset %d thread(s), %d failure(s).\n", len(threads)-failed, failed)
	fmt.Println("Restart the bot to apply changes.")
}

func confirm() bool {
	fmt.Print("Do you want to continue? (y/N): ")
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y"
}

func writeBackup(threads map[string]string) error {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(backupDir, fmt.Sprintf("thread_backup_%s.json", stamp))

	data, err := json.MarshalIndent(backup{Timestamp: stamp, Threads: threads}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	log.Printf("[INFO] Thread backup saved to %s", path)
	return nil
}
