package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/config"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/quickreply"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/ai"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/monitor"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Log)

	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, using system environment variables only")
	}

	location, _ := cfg.Chat.Location()

	recorder, err := openRecorder(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer recorder.Close()

	gatewayClient := gateway.New(cfg.Backend)
	info := gatewayClient.Info()
	log.Info().
		Str("baseUrl", info.BaseURL).
		Str("environment", info.Environment).
		Msg("backend configured")

	replier, err := newReplier(ctx, cfg, gatewayClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize replier")
	}

	quickReplies := quickreply.NewMemoryStore(quickreply.Seed())
	chatService := chat.NewService(replier, recorder,
		chat.WithDefaultUserID(cfg.Backend.UserID),
		chat.WithConversationOptions(
			chat.WithLocation(location),
			chat.WithQuickReplies(quickReplies),
		),
	)
	defer chatService.Close()

	deps := handler.Dependencies{
		Chat:         chatService,
		QuickReplies: quickReplies,
		Gateway:      gatewayClient,
	}

	if cfg.Monitor.Enabled && cfg.Monitor.Spec != "" {
		healthMonitor := monitor.New(gatewayClient, cfg.Monitor.Spec)
		if err := healthMonitor.Start(); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Monitor.Spec).Msg("failed to start health monitor")
		}
		defer healthMonitor.Stop()
		deps.Status = healthMonitor
	} else {
		log.Info().Msg("backend health monitor disabled")
	}

	startServer(ctx, cfg.Server, handler.NewRouter(deps))
}

func openRecorder(cfg config.StorageConfig) (store.Recorder, error) {
	if cfg.Backend == config.StorageMemory {
		log.Info().Msg("conversation history kept in memory")
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewSQLiteStore(cfg.DSN)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dsn", cfg.DSN).Msg("conversation history stored in sqlite")
	return s, nil
}

func newReplier(ctx context.Context, cfg *config.Config, gatewayClient *gateway.Client) (chat.Replier, error) {
	if cfg.Chat.Replier != config.ReplierArk {
		return gatewayClient, nil
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	aiService, err := ai.NewService(ctx, chatModel)
	if err != nil {
		return nil, err
	}
	log.Info().Str("model", cfg.AI.Model).Msg("replying with the Ark model directly")
	return aiService, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("PSTI chatbot listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}
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
