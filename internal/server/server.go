package server

import (
	"github.com/Sakeerin/GoBuddy/internal/auth"
	"github.com/Sakeerin/GoBuddy/internal/booking"
	"github.com/Sakeerin/GoBuddy/internal/config"
	"github.com/Sakeerin/GoBuddy/internal/editor"
	"github.com/Sakeerin/GoBuddy/internal/event"
	"github.com/Sakeerin/GoBuddy/internal/generator"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/provider/bookingprovider"
	"github.com/Sakeerin/GoBuddy/internal/provider/poi"
	"github.com/Sakeerin/GoBuddy/internal/provider/routing"
	"github.com/Sakeerin/GoBuddy/internal/provider/weather"
	"github.com/Sakeerin/GoBuddy/internal/replan"
	"github.com/Sakeerin/GoBuddy/internal/stream"
	"github.com/Sakeerin/GoBuddy/internal/trip"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB)
	tripSvc := trip.NewService(s.DB)
	store := itinerary.NewStore(s.DB)
	pois := poi.NewStubCatalog()

	var router routing.Provider
	if s.Cfg.GoogleMapsAPIKey != "" {
		googleRouter, err := routing.NewGoogleAdapter(s.Cfg.GoogleMapsAPIKey)
		if err != nil {
			router = routing.NewStubAdapter()
		} else {
			router = googleRouter
		}
	} else {
		router = routing.NewStubAdapter()
	}

	providers := bookingprovider.NewRegistry()
	providers.Register("fake", bookingprovider.NewFakeAdapter("fake"))

	forecaster := weather.NewStubProvider()

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
	trip.RegisterRoutes(s.App.Group("/trips"), tripSvc, jwtMiddleware, authSvc)
	generator.RegisterRoutes(s.App.Group("/trips"), generator.NewHandler(generator.New(store, pois), store, tripSvc), jwtMiddleware)
	booking.RegisterRoutes(s.App.Group("/bookings"), booking.NewService(s.DB, s.Redis, providers), jwtMiddleware)
	event.RegisterRoutes(s.App.Group("/events"), event.NewService(s.DB, store, forecaster), jwtMiddleware)
	editor.RegisterRoutes(s.App.Group("/trips"), editor.NewService(store, pois, tripSvc), jwtMiddleware)
	replanSvc := replan.NewService(s.DB, store, pois, router, tripSvc).
		WithLimits(s.Cfg.ReplanMaxProposals, s.Cfg.RollbackWindow()).
		WithStream(s.Stream)
	replan.RegisterRoutes(s.App.Group("/replan"), replanSvc, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
