package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/askdb/internal/agent"
	"github.com/kalambet/askdb/internal/api"
	"github.com/kalambet/askdb/internal/config"
	"github.com/kalambet/askdb/internal/ingest"
	"github.com/kalambet/askdb/internal/memory"
	"github.com/kalambet/askdb/internal/ollama"
	"github.com/kalambet/askdb/internal/retrieval"
	"github.com/kalambet/askdb/internal/sqlexec"
	"github.com/kalambet/askdb/internal/storage"
	"github.com/kalambet/askdb/internal/translate"
)

var withMCP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the askdb HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withMCP, "mcp", false, "also expose the MCP stdio server")
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runServer() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check Ollama readiness; pull missing models.
	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, ollamaClient, cfg.Ollama.ChatModel, cfg.Ollama.EmbedModel, os.Stderr); err != nil {
		return err
	}

	// Open storage and seed fixtures if the database is empty.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()
	if err := store.Seed(); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Bootstrap the retrieval corpus (schema docs + SQL patterns).
	embedder := retrieval.NewEmbedder(ollamaClient, cfg.Ollama.EmbedModel)
	vectorStore := retrieval.NewSQLiteStore(store.DB())
	if err := ingest.Bootstrap(ctx, embedder, vectorStore); err != nil {
		return fmt.Errorf("bootstrapping retrieval corpus: %w", err)
	}
	retriever := retrieval.NewRetriever(embedder, vectorStore)

	// Per-user history store.
	history, err := memory.NewStore(cfg.Storage.MemoryDir)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}

	// Assemble the pipeline.
	generator := translate.NewGenerator(ollamaClient, cfg.Ollama.ChatModel, retriever, cfg.Retrieval.TopK)
	formatter := translate.NewFormatter(ollamaClient, cfg.Ollama.ChatModel)
	executor := sqlexec.NewExecutor(store.DB())
	pipeline := agent.New(history, generator, executor, formatter, cfg.Retrieval.HistoryLimit)

	handler := api.NewHandler(api.Deps{Agent: pipeline, Token: cfg.Server.Token})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Optionally expose the same pipeline over MCP (stdio transport).
	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Agent: pipeline, Schema: ingest.Catalog{}})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("askdb listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
