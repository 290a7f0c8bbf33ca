package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WebPressive/webpressive.github.io/internal/config"
	"github.com/WebPressive/webpressive.github.io/internal/db"
	"github.com/WebPressive/webpressive.github.io/internal/handlers"
	"github.com/WebPressive/webpressive.github.io/internal/render"
	"github.com/WebPressive/webpressive.github.io/internal/services"
	"github.com/WebPressive/webpressive.github.io/internal/session"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialize database
	if err := db.InitDatabase(cfg.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize services
	wsService := services.NewWebSocketService()
	go wsService.Run()
	preferencesService := services.NewPreferencesService(db.DB)

	// Presenter joins the sync topic in-process
	store := render.NewImageStore()
	presenter := session.NewPresenter(wsService.Join(cfg.Sync.Topic), store, cfg.SessionOptions())
	defer presenter.Close()
	wsService.OnReceiver(func(c *services.Client) { presenter.AttachReceiver(c) })

	source := func() (session.Deck, error) {
		if cfg.Deck.Dir == "" {
			return render.DemoDeck(store)
		}
		return services.NewDeckLoader(cfg.Deck.Dir, store).Load()
	}
	deck, err := source()
	if err != nil {
		log.Fatalf("Failed to load deck: %v", err)
	}
	if err := presenter.Load(deck); err != nil {
		log.Fatalf("Failed to start presentation: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := presenter.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Presenter stopped: %v", err)
		}
	}()

	// Initialize handlers
	presenterHandler := handlers.NewPresenterHandler(presenter, source)
	preferencesHandler := handlers.NewPreferencesHandler(preferencesService)
	wsHandler := handlers.NewWebSocketHandler(wsService)
	staticHandler := handlers.NewStaticHandler(store)

	// Setup routes
	router := mux.NewRouter()
	handlers.SetupRoutes(router, presenterHandler, preferencesHandler, wsHandler, staticHandler)

	// Configure server
	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	// Configure TLS if enabled
	if cfg.TLS.Enabled {
		server.TLSConfig = &tls.Config{
			MinVersion: getTLSVersion(cfg.TLS.MinVersion),
		}

		log.Printf("Starting HTTPS server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("TLS Certificate: %s", cfg.TLS.CertFile)
		log.Printf("TLS Key: %s", cfg.TLS.KeyFile)
		log.Printf("TLS Min Version: %s", cfg.TLS.MinVersion)
		log.Printf("Sync topic: %s", cfg.Sync.Topic)

		log.Fatal(server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile))
	} else {
		log.Printf("Starting HTTP server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Sync topic: %s", cfg.Sync.Topic)
		log.Printf("Warning: HTTP mode is not recommended for production")

		log.Fatal(server.ListenAndServe())
	}
}

// getTLSVersion converts string version to tls.Version constant
func getTLSVersion(version string) uint16 {
	switch version {
	case "1.0":
		return tls.VersionTLS10
	case "1.1":
		return tls.VersionTLS11
	case "1.2":
		return tls.VersionTLS12
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
