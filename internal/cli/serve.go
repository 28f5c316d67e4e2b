package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aetherlab/aether/internal/config"
	"github.com/aetherlab/aether/internal/engine"
	"github.com/aetherlab/aether/internal/server"
	"github.com/aetherlab/aether/internal/store"
)

var (
	servePort        int
	serveIngredients string
	serveRules       string
	serveNoVector    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides default)")
	serveCmd.Flags().StringVar(&serveIngredients, "ingredients", "", "Ingredient catalog JSON to import on startup")
	serveCmd.Flags().StringVar(&serveRules, "rules", "", "Physiological rule JSON to import on startup")
	serveCmd.Flags().BoolVar(&serveNoVector, "no-vector", false, "Skip the vector backend and use keyword retrieval")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if url := os.Getenv("AETHER_OLLAMA_URL"); url != "" {
		cfg.Retrieval.OllamaURL = url
	}
	if serveIngredients != "" {
		cfg.Data.IngredientsPath = serveIngredients
	}
	if serveRules != "" {
		cfg.Data.RulesPath = serveRules
	}

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		if env := os.Getenv("AETHER_DB"); env != "" {
			dbPath = env
		} else {
			var err error
			dbPath, err = store.DefaultDBPath()
			if err != nil {
				return fmt.Errorf("resolve db path: %w", err)
			}
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := importSeeds(db, cfg.Data.IngredientsPath, cfg.Data.RulesPath); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	eng, err := engine.New(ctx, db, engine.Options{
		OllamaURL:      cfg.Retrieval.OllamaURL,
		EmbeddingModel: cfg.Retrieval.EmbeddingModel,
		DisableVector:  serveNoVector || cfg.Retrieval.Disabled,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  retrieval: %s (%d rules)\n", eng.RetrievalMode(), len(eng.Rules()))

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "aether serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	return httpServer.Shutdown(shutdownCtx)
}
