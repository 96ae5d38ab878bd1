package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/Ujjwal250802/chatapplication/internal/auth"
	"github.com/Ujjwal250802/chatapplication/internal/channel"
	"github.com/Ujjwal250802/chatapplication/internal/config"
	"github.com/Ujjwal250802/chatapplication/internal/handlers"
	"github.com/Ujjwal250802/chatapplication/internal/identity"
	"github.com/Ujjwal250802/chatapplication/internal/payment"
	"github.com/Ujjwal250802/chatapplication/internal/store"
	"github.com/Ujjwal250802/chatapplication/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Error("open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	gw, err := payment.NewSimGateway(cfg.Gateway.KeyID, cfg.Gateway.KeySecret)
	if err != nil {
		log.Error("init payment gateway", "err", err)
		os.Exit(1)
	}

	creds := transport.Credentials{APIKey: cfg.Transport.APIKey, APISecret: cfg.Transport.APISecret}
	hub := transport.NewHub(creds, log)
	defer hub.Close()

	api := &handlers.API{
		Auth:         auth.NewService(st),
		Hub:          hub,
		Identity:     identity.NewResolver(creds),
		Channels:     channel.NewResolver(st),
		Orchestrator: payment.NewOrchestrator(gw, st, log),
		Emitter:      payment.NewEmitter(cfg.Payments.NotifyDelay, log),
		Store:        st,
		Log:          log,
	}

	app := fiber.New()
	api.Register(app)

	log.Info("listening", "addr", cfg.Server.Addr)
	if err := app.Listen(cfg.Server.Addr); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
