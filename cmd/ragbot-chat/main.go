package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/kailas-cloud/ragbot/internal/tui"
	"github.com/kailas-cloud/ragbot/internal/version"
	ragbot "github.com/kailas-cloud/ragbot/pkg/sdk"
)

func main() {
	_ = godotenv.Load()

	var addr, apiKey string
	var showVersion bool
	flag.StringVar(&addr, "addr", envOr("RAGBOT_URL", "http://localhost:8080"), "ragbot server base URL")
	flag.StringVar(&apiKey, "api-key", os.Getenv("RAGBOT_API_KEY"), "bearer token for the server")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("ragbot-chat", version.String())
		return
	}

	client, err := ragbot.New(addr, ragbot.WithAPIKey(apiKey))
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	health, err := client.Health(context.Background())
	if err != nil {
		log.Fatalf("server unreachable: %v", err)
	}
	if !health.Healthy() {
		fmt.Fprintf(os.Stderr, "warning: server reports %s %v\n", health.Status, health.Checks)
	}

	open := func(ctx context.Context, q string, history []ragbot.Turn) (tui.Fragments, error) {
		stream, err := client.Ask(ctx, q, history)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}

	p := tea.NewProgram(tui.New(open, addr), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
