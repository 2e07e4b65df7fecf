// Package components wires the singleton application container: config,
// logger, store, scheduler, Kafka sweep consumer (optional), router and
// HTTP server, in the order each depends on the last.
package components

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"creditmeter/internal/api/middleware"
	"creditmeter/internal/api/routes"
	"creditmeter/internal/infrastructure/database"
	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/infrastructure/messaging"
	"creditmeter/internal/infrastructure/messaging/kafka"
	"creditmeter/internal/pkg/config"
	"creditmeter/internal/pkg/logging"
	"creditmeter/internal/scheduler"
)

// Container holds every application component and satisfies
// handlers.HandlerDependencies.
type Container struct {
	Config       *config.Config
	Store        *postgres.Store
	Sweeper      *scheduler.Sweeper
	tickConsumer *messaging.SweepTickConsumer
	tickerCancel context.CancelFunc
	Router       *gin.Engine
	Server       *http.Server
}

var (
	instance     *Container
	instanceOnce sync.Once
	instanceErr  error
)

func GetInstance() (*Container, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = newContainer()
	})
	return instance, instanceErr
}

func New() (*Container, error) {
	return GetInstance()
}

func newContainer() (*Container, error) {
	c := &Container{Config: config.Load()}

	logging.Init(c.Config)
	logging.Info("config loaded", nil)

	ctx := context.Background()
	if err := database.Init(ctx, c.Config); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	c.Store = database.Repo

	c.Sweeper = scheduler.NewSweeper(
		c.Store,
		c.Config.Ledger.ReservationTTL,
		c.Config.Ledger.SweepChunkSize,
		c.Config.Ledger.SweepWallClockCap,
	)

	if err := c.initSweepSchedule(); err != nil {
		return nil, fmt.Errorf("init sweep schedule: %w", err)
	}

	if err := c.initServer(); err != nil {
		return nil, fmt.Errorf("init server: %w", err)
	}

	logging.Info("all components initialized", nil)
	return c, nil
}

// initSweepSchedule starts either the Kafka tick consumer (when a broker
// URL is configured) or the in-process ticker, never both — one sweep
// cadence driver per deployment.
func (c *Container) initSweepSchedule() error {
	if c.Config.Ledger.BrokerURL == "" {
		ctx, cancel := context.WithCancel(context.Background())
		c.tickerCancel = cancel
		ticker := scheduler.NewTicker(c.Sweeper, c.Config.Ledger.SweepInterval)
		go ticker.Run(ctx)
		logging.Info("in-process sweep ticker started", map[string]interface{}{
			"interval": c.Config.Ledger.SweepInterval.String(),
		})
		return nil
	}

	kafkaCfg := kafka.NewConfigFromEnv()
	consumer, err := messaging.NewSweepTickConsumer(kafkaCfg, c.Sweeper)
	if err != nil {
		return fmt.Errorf("create sweep tick consumer: %w", err)
	}
	if err := consumer.Start(); err != nil {
		return fmt.Errorf("start sweep tick consumer: %w", err)
	}
	c.tickConsumer = consumer
	return nil
}

func (c *Container) initServer() error {
	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	c.Router = gin.Default()
	c.Router.Use(middleware.CORS(c.Config))
	routes.RegisterRoutes(c.Router, c, c.Store, c.Config.Ledger.DefaultReserveAmount)

	c.Server = &http.Server{
		Addr:           ":" + c.Config.Server.Port,
		Handler:        c.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return nil
}

// GetStore satisfies handlers.HandlerDependencies.
func (c *Container) GetStore() *postgres.Store {
	return c.Store
}

func (c *Container) Start() error {
	logging.Info("starting HTTP server", map[string]interface{}{"address": c.Server.Addr})
	go func() {
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("server failed to start", err, nil)
			os.Exit(1)
		}
	}()
	c.waitForShutdown()
	return nil
}

func (c *Container) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		logging.Error("forced shutdown", err, nil)
	}
	logging.Info("shutdown complete", nil)
}

func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if c.tickerCancel != nil {
		c.tickerCancel()
	}
	if c.tickConsumer != nil {
		if err := c.tickConsumer.Stop(); err != nil {
			logging.Error("failed to stop sweep tick consumer", err, nil)
		}
	}
	c.Store.Close()
	return nil
}
