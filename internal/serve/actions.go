package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/textiq/internal/common"
	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/estimator"
	"github.com/dtnitsch/textiq/pkg/store"
)

// ServeAction runs the estimation HTTP API until interrupted.
func ServeAction(c *cli.Context) error {
	log := common.NewLogger(c.String("log-level"), c.String("log-format"))
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded .env")
	}
	cfg := models.LoadConfig(c.String("config"), log)

	est, err := estimator.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build estimator: %w", err)
	}
	defer est.Close()

	srv := &server{est: est, log: log}
	if db, err := store.Open(cfg.Store.Path, log); err != nil {
		log.Warn("run store unavailable, estimates will not be recorded", "error", err)
	} else {
		srv.db = db
		defer db.Close()
	}

	app := fiber.New(fiber.Config{
		AppName:     "textiq",
		ReadTimeout: time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
	})
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(cors.New())
	srv.routes(app)

	// Interrupt drains in-flight requests before Listen returns.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	addr := c.String("addr")
	if addr == "" {
		addr = os.Getenv("TEXTIQ_ADDR")
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	log.Info("estimation API listening", "addr", addr)
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
