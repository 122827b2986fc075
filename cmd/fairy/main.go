package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kurazuuuuuu/fairy/pkg/clients"
	"github.com/kurazuuuuuu/fairy/pkg/config"
	"github.com/kurazuuuuuu/fairy/pkg/database"
	"github.com/kurazuuuuuu/fairy/pkg/embeddings"
	"github.com/kurazuuuuuu/fairy/pkg/research"
	"github.com/kurazuuuuuu/fairy/pkg/server"
)

var (
	keyword string
	userID  string
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	rootCmd := &cobra.Command{
		Use:   "fairy",
		Short: "Run a Fairy research from the terminal",
		Long:  `Runs one research pipeline pass: grounded web research, citation extraction, summarization and persistence, then prints the result.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("keyword") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter research keyword: ")
				input, _ := reader.ReadString('\n')
				keyword = strings.TrimSpace(input)
			}
			if keyword == "" {
				slog.Error("Keyword cannot be empty")
				os.Exit(1)
			}

			cfg := config.Load()
			ctx := context.Background()

			db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
			if err != nil {
				slog.Error("Failed to connect to database", "error", err)
				os.Exit(1)
			}
			defer db.Close()

			if err := db.InitSchema(ctx); err != nil {
				slog.Error("Failed to initialize schema", "error", err)
				os.Exit(1)
			}
			if err := db.EnsureVectorExtension(ctx); err != nil {
				slog.Error("Failed to ensure vector extension", "error", err)
				os.Exit(1)
			}
			if err := db.CreateEmbeddingsTable(ctx, cfg.CollectionName, embeddings.Dimension); err != nil {
				slog.Error("Failed to create embeddings table", "error", err)
				os.Exit(1)
			}

			client, err := clients.NewGenAI(ctx, cfg.GeminiApiKey)
			if err != nil {
				slog.Error("Failed to init Gemini client", "error", err)
				os.Exit(1)
			}

			resolver := research.NewURLResolver(time.Duration(cfg.FetchTimeoutSec) * time.Second)
			svc := server.NewService(db, cfg,
				research.NewResearchGenerator(client, cfg.ResearchModel, nil),
				research.NewSummarizer(client, cfg.SummaryModel, cfg.SmartMessageLimit, nil),
				research.NewCitationExtractor(resolver, nil),
				embeddings.NewGoogleEmbedder(client, cfg.EmbeddingModel))

			slog.Info("Starting research", "keyword", keyword, "user", userID)

			result, err := svc.Research(ctx, research.Request{UserID: userID, Keyword: keyword})
			if err != nil {
				slog.Error("Research failed", "error", err)
				os.Exit(1)
			}

			fmt.Println(result.SmartMessage)
			fmt.Println()
			for _, src := range result.Sources {
				if src.Title != "" {
					fmt.Printf("- %s (%s)\n", src.Title, src.URL)
				} else {
					fmt.Printf("- %s\n", src.URL)
				}
			}
			fmt.Printf("\nid: %s  elapsed: %.2fs\n", result.ID, result.ElapsedSeconds)
		},
	}

	rootCmd.Flags().StringVarP(&keyword, "keyword", "k", "", "The research keyword")
	rootCmd.Flags().StringVarP(&userID, "user", "u", "cli", "Identifier recorded as the result owner")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
