package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tsfopeneyes/center-management-sub001/internal/auth"
	"github.com/tsfopeneyes/center-management-sub001/internal/config"
	"github.com/tsfopeneyes/center-management-sub001/internal/directory"
	"github.com/tsfopeneyes/center-management-sub001/internal/presence"
	"github.com/tsfopeneyes/center-management-sub001/internal/program"
	"github.com/tsfopeneyes/center-management-sub001/internal/reconcile"
	"github.com/tsfopeneyes/center-management-sub001/internal/report"
	"github.com/tsfopeneyes/center-management-sub001/internal/stream"
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
	staffOnly := auth.RequireRole("staff")
	tz := s.Cfg.Location()

	dir := directory.NewService(s.DB, s.Redis)
	programs := program.NewService(s.DB)
	presenceSvc := presence.NewService(s.DB, s.Redis, s.Stream, programs, tz)
	reconcileSvc := reconcile.NewService(s.DB, s.Cfg.ReconcileWorkers, tz, s.Cfg.ClosingTime)
	reportSvc := report.NewService(s.DB, dir, nil)

	presence.RegisterRoutes(s.App.Group("/presence"), presenceSvc, dir, jwtMiddleware)
	reconcile.RegisterRoutes(s.App.Group("/reconcile", jwtMiddleware), reconcileSvc, staffOnly)
	report.RegisterRoutes(s.App.Group("/reports", jwtMiddleware), reportSvc, staffOnly)
	directory.RegisterRoutes(s.App.Group("/locations"), dir)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
