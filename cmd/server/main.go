package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/kurazuuuuuu/fairy/pkg/clients"
	"github.com/kurazuuuuuu/fairy/pkg/config"
	"github.com/kurazuuuuuu/fairy/pkg/database"
	"github.com/kurazuuuuuu/fairy/pkg/embeddings"
	"github.com/kurazuuuuuu/fairy/pkg/research"
	"github.com/kurazuuuuuu/fairy/pkg/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	// Database Connection
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := db.EnsureVectorExtension(ctx); err != nil {
		log.Fatalf("Failed to ensure vector extension: %v", err)
	}
	if err := db.CreateEmbeddingsTable(ctx, cfg.CollectionName, embeddings.Dimension); err != nil {
		log.Fatalf("Failed to create embeddings table: %v", err)
	}

	// Gemini client shared by generator, summarizer and embedder
	client, err := clients.NewGenAI(ctx, cfg.GeminiApiKey)
	if err != nil {
		log.Fatalf("Failed to init Gemini client: %v", err)
	}

	resolver := research.NewURLResolver(time.Duration(cfg.FetchTimeoutSec) * time.Second)
	gen := research.NewResearchGenerator(client, cfg.ResearchModel, nil)
	sum := research.NewSummarizer(client, cfg.SummaryModel, cfg.SmartMessageLimit, nil)
	ext := research.NewCitationExtractor(resolver, nil)
	embedder := embeddings.NewGoogleEmbedder(client, cfg.EmbeddingModel)

	svc := server.NewService(db, cfg, gen, sum, ext, embedder)
	handler := server.NewHandler(svc)

	// Web Server Setup
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
