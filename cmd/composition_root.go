package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	httpin "shiptrack/internal/adapters/in/http"
	"shiptrack/internal/adapters/in/ws"
	"shiptrack/internal/adapters/out/jwtauth"
	"shiptrack/internal/adapters/out/memory"
	"shiptrack/internal/adapters/out/postgres"
	"shiptrack/internal/adapters/out/postgres/shipmentrepo"
	"shiptrack/internal/adapters/out/redisbus"
	"shiptrack/internal/core/application/realtime"
	"shiptrack/internal/core/application/usecases/commands"
	"shiptrack/internal/core/application/usecases/queries"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/jobs"
	"shiptrack/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger

	gormDB     *gorm.DB
	uowFactory ports.UnitOfWorkFactory
	reader     ports.ShipmentReader
	locations  ports.LocationWriter

	registry        *prometheus.Registry
	shipmentMetrics *metrics.ShipmentMetrics
	realtimeMetrics *metrics.RealtimeMetrics
	jobMetrics      *metrics.JobMetrics

	authenticator *jwtauth.Authenticator
	rooms         *realtime.RoomRegistry
	fanout        *realtime.Fanout
	writer        *realtime.LocationWriter
	relay         *realtime.LocationRelay
	hub           *realtime.NotificationHub
	gateway       *ws.Gateway

	redisClient *redis.Client
	bus         *redisbus.Bus
}

// NewCompositionRoot opens storage and the optional Redis backplane and
// wires the realtime components. Close releases what it opened.
func NewCompositionRoot(ctx context.Context, cfg Config, logger *slog.Logger) (*CompositionRoot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CompositionRoot{cfg: cfg, logger: logger}

	authenticator, err := jwtauth.New(jwtauth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})
	if err != nil {
		return nil, err
	}
	c.authenticator = authenticator

	if err := c.openStorage(ctx); err != nil {
		return nil, err
	}

	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.shipmentMetrics = metrics.NewShipmentMetrics(c.registry)
	c.realtimeMetrics = metrics.NewRealtimeMetrics(c.registry)
	c.jobMetrics = metrics.NewJobMetrics(c.registry)

	c.rooms = realtime.NewRoomRegistry(cfg.Realtime.Shards, logger)
	c.rooms.OnBroadcast(func(event string, delivered, dropped int) {
		c.realtimeMetrics.AddDelivered(event, delivered)
		c.realtimeMetrics.AddDropped(event, dropped)
	})

	var backplane realtime.Backplane
	if cfg.Redis.Enabled() {
		if err := c.openBackplane(ctx); err != nil {
			c.Close()
			return nil, err
		}
		backplane = c.bus
	}
	c.fanout = realtime.NewFanout(c.rooms, backplane, logger)
	c.hub = realtime.NewNotificationHub(c.fanout, logger)
	c.writer = realtime.NewLocationWriter(c.locations, c.realtimeMetrics, logger)

	relay, err := realtime.NewLocationRelay(c.fanout, c.writer, c.reader, realtime.RelayOptions{
		BindPublisher: cfg.Realtime.BindPublisher,
	}, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.relay = relay
	c.hub.OnTerminal(relay.Forget)

	c.gateway = ws.NewGateway(c.authenticator, c.rooms, c.relay, ws.Options{
		SendBuffer:  cfg.Realtime.SendBuffer,
		CheckOrigin: originChecker(cfg.Realtime.AllowedOrigins),
	}, logger)

	return c, nil
}

func (c *CompositionRoot) openStorage(ctx context.Context) error {
	if c.cfg.DB.Driver == DBDriverMemory {
		store := memory.NewStore()
		c.uowFactory = memory.NewUnitOfWorkFactory(store)
		c.reader = store
		c.locations = store
		c.logger.WarnContext(ctx, "Using in-memory storage; data is lost on restart")
		return nil
	}

	opts := c.dbOptions()
	db, err := postgres.Open(opts)
	if err != nil {
		return err
	}
	if c.cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, db, opts); err != nil {
			closeDB(db)
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	c.gormDB = db
	c.uowFactory = postgres.NewGormUnitOfWorkFactory(db)
	c.reader = shipmentrepo.NewGormShipmentReader(db)
	c.locations = shipmentrepo.NewGormShipmentRepository(db)
	return nil
}

func (c *CompositionRoot) dbOptions() postgres.Options {
	return postgres.Options{
		Driver:          c.cfg.DB.Driver,
		DSN:             c.cfg.DB.ConnectionString(),
		MaxOpenConns:    c.cfg.DB.MaxOpenConns,
		MaxIdleConns:    c.cfg.DB.MaxIdleConns,
		ConnMaxLifetime: c.cfg.DB.ConnMaxLifetime,
	}
}

func (c *CompositionRoot) openBackplane(ctx context.Context) error {
	client, err := redisbus.NewClient(ctx, redisbus.Options{
		URL:          c.cfg.Redis.URL,
		Address:      c.cfg.Redis.Address,
		Password:     c.cfg.Redis.Password,
		DB:           c.cfg.Redis.DB,
		DialTimeout:  c.cfg.Redis.DialTimeout,
		ReadTimeout:  c.cfg.Redis.ReadTimeout,
		WriteTimeout: c.cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return err
	}
	bus, err := redisbus.New(client, c.cfg.Redis.Channel, uuid.NewString(), c.logger)
	if err != nil {
		_ = client.Close()
		return err
	}
	c.redisClient = client
	c.bus = bus
	return nil
}

func (c *CompositionRoot) CreateCreateShipmentCommandHandler() commands.CreateShipmentCommandHandler {
	return commands.NewCreateShipmentCommandHandler(c.shipmentUoWFactory())
}

func (c *CompositionRoot) CreateClaimShipmentCommandHandler() commands.ClaimShipmentCommandHandler {
	return commands.NewClaimShipmentCommandHandler(c.shipmentUoWFactory(), c.hub, c.shipmentMetrics)
}

func (c *CompositionRoot) CreateUpdateStatusCommandHandler() commands.UpdateStatusCommandHandler {
	return commands.NewUpdateStatusCommandHandler(c.shipmentUoWFactory(), c.hub, c.shipmentMetrics)
}

func (c *CompositionRoot) CreateCompleteDeliveryCommandHandler() commands.CompleteDeliveryCommandHandler {
	return commands.NewCompleteDeliveryCommandHandler(c.shipmentUoWFactory(), c.hub, c.shipmentMetrics)
}

func (c *CompositionRoot) CreateGetShipmentQueryHandler() queries.GetShipmentQueryHandler {
	return queries.NewGetShipmentQueryHandler(c.reader)
}

func (c *CompositionRoot) CreateListShipmentsQueryHandler() queries.ListShipmentsQueryHandler {
	return queries.NewListShipmentsQueryHandler(c.reader)
}

func (c *CompositionRoot) shipmentUoWFactory() commands.ShipmentUoWFactory {
	return FuncShipmentUoWFactory(func() commands.ShipmentUoW {
		return c.uowFactory.Create()
	})
}

// HTTPServer builds the echo instance serving the API, /health, /metrics,
// /swagger and /ws.
func (c *CompositionRoot) HTTPServer() (*echo.Echo, error) {
	server := httpin.NewServer(
		c.CreateCreateShipmentCommandHandler(),
		c.CreateClaimShipmentCommandHandler(),
		c.CreateUpdateStatusCommandHandler(),
		c.CreateCompleteDeliveryCommandHandler(),
		c.CreateGetShipmentQueryHandler(),
		c.CreateListShipmentsQueryHandler(),
	)
	return httpin.NewRouter(server, httpin.RouterOptions{
		Authenticator: c.authenticator,
		Gatherer:      c.registry,
		Logger:        c.logger,
		Streaming:     c.gateway,
	})
}

// Gateway is the streaming endpoint mounted by HTTPServer.
func (c *CompositionRoot) Gateway() *ws.Gateway {
	return c.gateway
}

func (c *CompositionRoot) Jobs() *jobs.JobManager {
	return jobs.NewJobManager(c.writer, c.rooms, c.realtimeMetrics, c.jobMetrics, c.logger)
}

// Subscribe starts receiving broadcasts from other instances. It returns a
// nil subscription when no backplane is configured.
func (c *CompositionRoot) Subscribe(ctx context.Context) (*redisbus.Subscription, error) {
	if c.bus == nil {
		return nil, nil
	}
	return c.bus.Subscribe(ctx, c.fanout)
}

// Close releases the database and Redis connections.
func (c *CompositionRoot) Close() error {
	var errList []error
	if c.redisClient != nil {
		errList = append(errList, c.redisClient.Close())
	}
	if c.gormDB != nil {
		if sqlDB, err := c.gormDB.DB(); err == nil {
			errList = append(errList, sqlDB.Close())
		}
	}
	return errors.Join(errList...)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// originChecker returns nil, the upgrader's same-origin default, when no
// origins are configured. "*" allows any origin.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

type FuncShipmentUoWFactory func() commands.ShipmentUoW

func (f FuncShipmentUoWFactory) Create() commands.ShipmentUoW {
	return f()
}
