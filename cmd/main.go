package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/latoulicious/Musho/internal/commands"
	"github.com/latoulicious/Musho/internal/config"
	"github.com/latoulicious/Musho/internal/handlers"
	"github.com/latoulicious/Musho/internal/version"
	"github.com/latoulicious/Musho/pkg/database"
	"github.com/latoulicious/Musho/pkg/fetcher"
	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/music"
	"github.com/latoulicious/Musho/pkg/player"
)

func main() {
	// Initialize application with proper error handling
	if err := initializeApplication(); err != nil {
		log.Fatalf("Application initialization failed: %v", err)
	}
}

// initializeApplication handles the complete application initialization process
func initializeApplication() error {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
		// Continue execution as .env file might not exist in production
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize PostgreSQL for log, history, and error persistence when
	// configured; the bot runs fine without it.
	var db *gorm.DB
	var repo *database.PlaybackRepository
	if cfg.DatabaseURL != "" {
		db, err = database.NewGormDBFromConfig(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying database: %w", err)
		}
		defer sqlDB.Close()

		repo = database.NewPlaybackRepository(db)
	}

	// Initialize centralized logging system
	loggerFactory := initializeCentralizedLogging(repo)

	// Validate system dependencies for the download and playback pipeline
	if err := validateSystemDependencies(); err != nil {
		log.Printf("Warning: system dependencies validation failed: %v", err)
		log.Printf("Audio functionality may be limited. Please ensure ffmpeg and yt-dlp are installed.")
	}

	// Load download provider configuration (YAML/TOML/env cascade)
	fetcherConfig, err := fetcher.NewConfigManager()
	if err != nil {
		return fmt.Errorf("failed to load fetcher config: %w", err)
	}

	downloadConfig := fetcherConfig.GetDownloadConfig()
	if err := os.MkdirAll(downloadConfig.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	mediaFetcher := fetcher.NewMediaFetcher(fetcherConfig, loggerFactory)

	// Create a new Discord session using the provided token
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	// Wire the music manager: voice sink, playback notifier, occupancy probe
	sink := player.NewDiscordVoiceSink(dg, loggerFactory.CreateLogger("voice"))
	notifier := commands.NewDiscordNotifier(dg, loggerFactory)
	managerOpts := music.ManagerOptions{
		MaxBuffer:      downloadConfig.MaxBuffer,
		LeaveGrace:     cfg.LeaveGrace,
		LeaveChimePath: cfg.LeaveChimePath,
		AloneThreshold: cfg.AloneThreshold,
	}
	if repo != nil {
		managerOpts.Store = repo
	}
	manager := music.NewManager(mediaFetcher, sink, notifier, handlers.ChannelOccupancy(dg), managerOpts, loggerFactory)

	// Inject the manager into the command layer
	commands.InitializeMusicCommands(manager)
	handlers.SetCommandPrefix(cfg.CommandPrefix)

	// Register the message and voice state handlers
	dg.AddHandler(handlers.MessageHandler)
	dg.AddHandler(handlers.VoiceStateUpdateHandler)

	// Start health check HTTP server
	healthServer := startHealthCheckServer(cfg.HealthCheckPort)

	// Open a websocket connection to Discord and begin listening.
	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	// Start the auto-leave sweep
	if err := manager.Start(); err != nil {
		return fmt.Errorf("failed to start music manager: %w", err)
	}

	log.Printf("%s is running. Press CTRL-C to exit.", version.Get().String())
	log.Printf("Health check endpoint available at http://localhost:%d/health", cfg.HealthCheckPort)

	// Wait here until CTRL-C or other term signal is received.
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Println("Shutting down gracefully...")

	// Shutdown health check server
	shutdownHealthServer(healthServer)

	// Stop playback, cancel downloads, and release every queued file
	manager.Shutdown()

	// Cleanly close down the Discord session.
	dg.Close()

	log.Println("Application shutdown complete")
	return nil
}

// initializeCentralizedLogging sets up the centralized logging system. With a
// database repository logs are persisted; without one they go to stdout only.
func initializeCentralizedLogging(repo *database.PlaybackRepository) logging.LoggerFactory {
	var loggerFactory logging.LoggerFactory
	if repo != nil {
		loggerFactory = logging.NewDatabaseLoggerFactory(repo)
	} else {
		loggerFactory = logging.NewLoggerFactory()
	}

	logging.SetGlobalLoggerFactory(loggerFactory)

	systemLogger := loggerFactory.CreateLogger("system")
	systemLogger.Info("Centralized logging system initialized successfully", map[string]interface{}{
		"database_connected": repo != nil,
	})

	return loggerFactory
}

// validateSystemDependencies validates that required system dependencies are available
func validateSystemDependencies() error {
	if err := player.ValidateSystemDependencies(); err != nil {
		return err
	}
	return fetcher.ValidateSystemDependencies()
}

// Health check system for basic system validation
var systemHealth = &SystemHealth{
	StartTime: time.Now(),
	Status:    "starting",
}

type SystemHealth struct {
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	Audio     bool      `json:"audio_system_ready"`
}

// startHealthCheckServer starts the HTTP server for health checks
func startHealthCheckServer(port int) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthCheckHandler)
	mux.HandleFunc("/status", statusHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Starting health check server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health check server error: %v", err)
		}
	}()

	systemHealth.Status = "running"

	return server
}

// healthCheckHandler handles the /health endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	systemHealth.Uptime = time.Since(systemHealth.StartTime).String()
	systemHealth.Audio = validateSystemDependencies() == nil

	w.Header().Set("Content-Type", "application/json")

	if systemHealth.Audio {
		w.WriteHeader(http.StatusOK)
		systemHealth.Status = "healthy"
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		systemHealth.Status = "unhealthy"
	}

	fmt.Fprintf(w, `{
		"status": "%s",
		"uptime": "%s",
		"audio_system_ready": %t,
		"start_time": "%s"
	}`, systemHealth.Status, systemHealth.Uptime, systemHealth.Audio,
		systemHealth.StartTime.Format(time.RFC3339))
}

// statusHandler handles the /status endpoint for more detailed information
func statusHandler(w http.ResponseWriter, r *http.Request) {
	systemHealth.Uptime = time.Since(systemHealth.StartTime).String()
	systemHealth.Audio = validateSystemDependencies() == nil

	info := version.Get()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, `{
		"application": "Musho Discord Bot",
		"version": "%s",
		"status": "%s",
		"uptime": "%s",
		"start_time": "%s",
		"components": {
			"audio_pipeline": %t,
			"discord_connection": true
		}
	}`, info.Version, systemHealth.Status, systemHealth.Uptime,
		systemHealth.StartTime.Format(time.RFC3339), systemHealth.Audio)
}

// shutdownHealthServer gracefully shuts down the health check server
func shutdownHealthServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Health check server shutdown error: %v", err)
	}
}
