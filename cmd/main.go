package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luckydraw/internal/config"
	"luckydraw/internal/handlers"
	"luckydraw/internal/models"
	"luckydraw/internal/remote"
	"luckydraw/internal/scene"
	"luckydraw/internal/services"
	"luckydraw/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"golang.org/x/sync/errgroup"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:assets
var assetsFS embed.FS

func main() {
	// 1. Load configuration (.env, config.yaml, LUCKYDRAW_* variables)
	cfg, err := config.Load("")
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logOut := io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
		if err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	defer logger.Init("luckydraw", cfg.LogVerbose, false, logOut).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the snapshot store and restore the session
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.Storage.Driver, err)
	}
	defer store.Close()

	session := services.NewSessionStore(store, cfg.Storage.Name)
	session.Restore(ctx)

	// 4. Load participants, remote first when configured
	var (
		fetcher services.UserFetcher
		drawer  services.RemoteDrawer
	)
	if cfg.API.Enabled {
		client := remote.NewClient(remote.Config{
			BaseURL:       cfg.API.BaseURL,
			UsersEndpoint: cfg.API.UsersEndpoint,
			DrawEndpoint:  cfg.API.DrawEndpoint,
			Timeout:       cfg.API.Timeout,
		})
		fetcher, drawer = client, client
	}
	static, err := staticRepository(cfg.Participants.File)
	if err != nil {
		logger.Fatalf("Failed to load participants: %v", err)
	}
	participants, err := services.NewFallbackRepository(fetcher, static).FetchAll(ctx)
	if err != nil {
		logger.Fatalf("Failed to load participants: %v", err)
	}
	session.SetParticipants(participants)
	logger.Infof("Loaded %d participants", len(participants))

	// 5. Start the particle scene
	photos := services.BundledPhotos()
	if cfg.Participants.PhotoDir != "" {
		photos = os.DirFS(cfg.Participants.PhotoDir)
	}
	renderer := scene.NewRasterRenderer()
	sc := scene.New(scene.Config{
		ParticleCount: cfg.Scene.ParticleCount,
		Width:         cfg.Scene.Width,
		Height:        cfg.Scene.Height,
	},
		scene.NewPhotoLoader(cfg.Participants.PhotoBaseURL, photos, cfg.API.Timeout),
		renderer,
		scene.NewTickerScheduler(cfg.Scene.FPS),
	)
	if err := sc.Mount(ctx, participants); err != nil {
		logger.Fatalf("Failed to mount scene: %v", err)
	}
	defer sc.Close()

	// 6. Initialize the draw session
	service := services.NewLotteryService(services.NewDrawEngine(), drawer)
	controller := services.NewSessionController(session, service, models.DefaultPrizeLevels(), sc)
	if _, err := controller.SelectLocale(cfg.Locale); err != nil {
		logger.Warningf("Ignoring locale %q: %v", cfg.Locale, err)
	}

	// 7. Load HTML templates from the embedded filesystem.
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}
	httpHandler := handlers.NewHTTPHandler(controller, sc, renderer, templates)

	// 8. Set up the Gin router
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	assetsSubFS, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		logger.Fatalf("Failed to create assets sub-filesystem: %v", err)
	}
	r.StaticFS("/assets", http.FS(assetsSubFS))
	photoSubFS, err := fs.Sub(photos, "photos")
	if err != nil {
		logger.Fatalf("Failed to create photos sub-filesystem: %v", err)
	}
	r.StaticFS("/photos", http.FS(photoSubFS))
	httpHandler.RegisterRoutes(r)

	// 9. Run the server until interrupted
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server starting on http://localhost:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Infof("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return storage.OpenSQLite(cfg.Storage.Path)
	case "file":
		return storage.NewFileStore(cfg.Storage.Path)
	case "mongo":
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return storage.OpenMongo(openCtx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Collection)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func staticRepository(path string) (*services.StaticRepository, error) {
	if path == "" {
		return services.NewBundledRepository()
	}
	return services.NewFileRepository(path)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept-Language"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
