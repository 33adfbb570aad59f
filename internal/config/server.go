package config

import (
	detectionHandler "ProjectSpatial/internal/api/detection/handler"
	detectionRepository "ProjectSpatial/internal/api/detection/repository"
	detectionService "ProjectSpatial/internal/api/detection/service"
	"ProjectSpatial/internal/middleware"
	"ProjectSpatial/pkg/catalog"
	"ProjectSpatial/pkg/gemini"
	"ProjectSpatial/pkg/redis"
	"ProjectSpatial/pkg/s3"
	"ProjectSpatial/pkg/stream"
	"ProjectSpatial/pkg/utils"
	websocketPkg "ProjectSpatial/pkg/websocket"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	handlers     []handler
	redisServer  redis.IRedis
	geminiClient gemini.IGemini
	s3Client     s3.ItfS3
	frameHub     stream.IFrameHub
	frameRelay   websocketPkg.IRelay
	catalog      catalog.ICatalog
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be set before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithFrameHub(hub stream.IFrameHub) ServerOption {
	return func(s *Server) error {
		s.frameHub = hub
		return nil
	}
}

// WithFrameRelay needs the frame hub, so it must come after WithFrameHub.
func WithFrameRelay() ServerOption {
	return func(s *Server) error {
		if s.frameHub == nil {
			return fmt.Errorf("frame hub must be set before frame relay")
		}
		s.frameRelay = websocketPkg.NewRelayClient(s.frameHub)
		return nil
	}
}

func WithCatalog() ServerOption {
	return func(s *Server) error {
		cat, err := catalog.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to load product catalog: %v", err)
			}
			return fmt.Errorf("failed to load product catalog: %w", err)
		}
		s.catalog = cat
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Detection
	detectionRepo := detectionRepository.New(s.redisServer, s.log)
	detectionServices := detectionService.NewDetectionService(
		s.log,
		detectionRepo,
		s.s3Client,
		s.geminiClient,
		s.frameHub,
		s.frameRelay,
		s.catalog,
		s.utils,
	)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, detectionHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown() error {
	if s.frameRelay != nil {
		s.frameRelay.CloseAll()
	}
	if s.geminiClient != nil {
		s.geminiClient.Close()
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			s.log.Errorf("Failed to close Redis client: %v", err)
		}
	}
	return s.engine.Shutdown()
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
