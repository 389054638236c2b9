package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/law-agent/backend/internal/config"
	"github.com/zhouzirui/law-agent/backend/internal/handler"
	"github.com/zhouzirui/law-agent/backend/internal/model/persona"
	"github.com/zhouzirui/law-agent/backend/internal/service/ai"
	"github.com/zhouzirui/law-agent/backend/internal/service/chat"
	"github.com/zhouzirui/law-agent/backend/internal/service/conversation"
	"github.com/zhouzirui/law-agent/backend/internal/service/document"
	"github.com/zhouzirui/law-agent/backend/internal/service/extract"
	"github.com/zhouzirui/law-agent/backend/pkg/utils"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "law-agent",
	Short: "Legal question chat backend backed by a local Ollama model",
	Long: `Serves the legal assistant chat API.

Every turn is answered: when the local model is unavailable, slow or returns
an unusable reply, a keyword-matched canned response is sent instead.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.SetVerbose(verbose)
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log prompts and pipeline state transitions")
	rootCmd.AddCommand(askCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app 持有一次进程生命周期内的全部服务。
type app struct {
	cfg          *config.Config
	sessions     *chat.Service
	documents    *document.Store
	client       *ai.Client
	conversation *conversation.Orchestrator
}

func newApp() (*app, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	sessions := chat.NewService()
	documents := document.NewStore()
	client := ai.NewClient(cfg.Inference)
	assembler := ai.NewAssembler(persona.Counsel(), cfg.Chat.HistoryWindow)

	orch := conversation.New(sessions, documents, assembler, client, conversation.Config{
		DefaultSessionID:  cfg.Chat.DefaultSessionID,
		MinResponseLength: cfg.Chat.MinResponseLength,
	})
	log.Printf("inference client ready: %s", client)

	return &app{
		cfg:          cfg,
		sessions:     sessions,
		documents:    documents,
		client:       client,
		conversation: orch,
	}, nil
}

func serve(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	router := handler.NewRouter(a.cfg, handler.Services{
		Conversation: a.conversation,
		Sessions:     a.sessions,
		Documents:    a.documents,
		Extractor:    extract.NewTextExtractor(),
		ModelName:    a.client.Model(),
	})

	return startServer(ctx, a.cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Law agent backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
