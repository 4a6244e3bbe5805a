// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/tubequeue/internal/api/connect"
	"github.com/osa030/tubequeue/internal/app/catalog"
	"github.com/osa030/tubequeue/internal/app/notification"
	"github.com/osa030/tubequeue/internal/app/playback"
	"github.com/osa030/tubequeue/internal/app/session"
	"github.com/osa030/tubequeue/internal/domain/queue"
	"github.com/osa030/tubequeue/internal/infra/config"
	"github.com/osa030/tubequeue/internal/infra/logger"
	"github.com/osa030/tubequeue/internal/infra/resolver"
	"github.com/osa030/tubequeue/internal/infra/spotify"
	"github.com/osa030/tubequeue/internal/infra/store"
	"github.com/osa030/tubequeue/internal/infra/youtube"
	"github.com/osa030/tubequeue/internal/infra/ytdlp"
	"github.com/osa030/tubequeue/internal/infra/ytmusic"
)

var (
	app        = kingpin.New("tubequeue-server", "tubequeue playback queue server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Log format: console or json").Enum("console", "json")

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		Format: *logFormat,
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkConfigCmd.FullCommand() {
		printConfigSummary(cfg)
		return
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	// Session store
	sessionStore, err := store.New(cfg.Store.Type, cfg.Store.Settings)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			zlog.Error().Msgf("Failed to close session store: %v", err)
		}
	}()

	// yt-dlp lists albums, playlists and mixes, and may also resolve streams
	ytdlpConfig, err := resolver.YTDLPConfig(cfg.Resolver.Type, cfg.Resolver.Settings)
	if err != nil {
		return fmt.Errorf("invalid yt-dlp settings: %w", err)
	}
	ytdlpClient := ytdlp.New(ytdlpConfig)

	streamResolver, err := resolver.New(cfg.Resolver.Type, cfg.Resolver.Settings, ytdlpClient)
	if err != nil {
		return fmt.Errorf("failed to create stream resolver: %w", err)
	}

	// Catalog providers
	deps := catalog.Deps{
		YTMusic: ytmusic.New(),
		Lister:  ytdlpClient,
		Matcher: youtube.NewMatcher(),
	}
	if cfg.HasProvider("spotify") {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
		deps.Spotify = spotifyClient
	}
	catalogChain, err := catalog.NewChainFromConfig(cfg.Catalog, deps)
	if err != nil {
		return fmt.Errorf("failed to create catalog provider chain: %w", err)
	}

	// Playback controller and session manager
	controller := playback.NewController(sessionStore, streamResolver, queue.NewSequencer(nil), playback.Config{
		Messages: playback.Messages{
			EndOfList:  cfg.Messages.EndOfList,
			Goodbye:    cfg.Messages.Goodbye,
			LikedQuery: cfg.Session.LikedQuery,
		},
	})
	notifManager := notification.NewManager()
	sessionMgr := session.NewManager(catalogChain, controller, notifManager, session.Config{
		OperationTimeout: cfg.Session.OperationTimeout(),
		Messages:         cfg.Messages,
	})

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register services
	playbackPath, playbackHandler := apiconnect.NewPlaybackServiceHandler(
		apiconnect.NewPlaybackService(sessionMgr),
		connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.API.Token)),
	)
	mux.Handle(playbackPath, playbackHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", serverAddr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Drop watchers first so open streams do not hold the shutdown
	notifManager.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printConfigSummary prints the effective configuration without secrets.
func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration OK")
	fmt.Printf("  %-20s %s\n", "addr", cfg.Server.Addr)
	fmt.Printf("  %-20s %s\n", "store", cfg.Store.Type)
	fmt.Printf("  %-20s %s\n", "resolver", cfg.Resolver.Type)
	fmt.Printf("  %-20s %s\n", "operation timeout", cfg.Session.OperationTimeout())
	for i, p := range cfg.Catalog.Providers {
		fmt.Printf("  %-20s %d. %s (%s)\n", "catalog provider", i+1, p.DisplayName, p.Type)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
