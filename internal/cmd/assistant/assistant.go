// Package assistant parses assistant command flags and runs the MCP server
// over stdio.
package assistant

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	assistantsvc "github.com/avelione/grimoire.chat/internal/assistant"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/genai/openai"
	"github.com/avelione/grimoire.chat/internal/platform/config"
	"github.com/avelione/grimoire.chat/internal/platform/otel"
	"github.com/avelione/grimoire.chat/internal/storage/sqlite"
)

const (
	serverName    = "grimoire-assistant"
	serverVersion = "0.1.0"
)

// Config holds assistant command configuration.
type Config struct {
	DBPath        string `env:"GRIMOIRE_DB_PATH" envDefault:"grimoire.db"`
	OpenAIKey     string `env:"GRIMOIRE_OPENAI_API_KEY"`
	OpenAIModel   string `env:"GRIMOIRE_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"GRIMOIRE_OPENAI_BASE_URL"`
	ChatBaseURL   string `env:"GRIMOIRE_CHAT_BASE_URL" envDefault:"https://discord.com/api/v10"`
	ChatToken     string `env:"GRIMOIRE_CHAT_TOKEN"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.OpenAIModel, "model", cfg.OpenAIModel, "Model used for sheet synthesis")
	fs.StringVar(&cfg.ChatBaseURL, "chat-url", cfg.ChatBaseURL, "Base URL of the chat gateway")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run wires the store, generator, and chat gateway, then serves the
// assistant tools over MCP stdio until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, serverName)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown telemetry: %v", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	gen, err := openai.New(openai.Config{
		ResponsesURL: cfg.OpenAIBaseURL,
		APIKey:       cfg.OpenAIKey,
		Model:        cfg.OpenAIModel,
	})
	if err != nil {
		return fmt.Errorf("build generator: %w", err)
	}

	client, err := chat.NewGatewayClient(chat.GatewayConfig{
		BaseURL: cfg.ChatBaseURL,
		Token:   cfg.ChatToken,
	})
	if err != nil {
		return fmt.Errorf("build chat client: %w", err)
	}

	svc, err := assistantsvc.New(store, client, gen)
	if err != nil {
		return fmt.Errorf("build assistant: %w", err)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	assistantsvc.AddTools(server, svc)

	log.Printf("serving %s tools on stdio", serverName)
	return server.Run(ctx, &mcp.StdioTransport{})
}
