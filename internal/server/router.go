package server

import (
	"context"

	"filetree-service/internal/handler"
	"filetree-service/internal/handler/authHandler"
	"filetree-service/internal/handler/demoHandler"
	"filetree-service/internal/handler/fileHandler"
	"filetree-service/pkg/logger"
	"filetree-service/pkg/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type AuthService interface {
	authHandler.AuthService
	middleware.Authenticator
	demoHandler.SessionCreator
}

type Services struct {
	Auth   AuthService
	Files  fileHandler.FileService
	Demo   demoHandler.DemoService
	Health *handler.Health
}

type Options struct {
	Logger         *logger.Logger
	MaxUploadBytes int64
	AuthRateLimit  float64
	AuthRateBurst  int
	CORSOrigins    []string
}

func NewRouter(svc Services, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger(context.Background())
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.Metrics())

	if svc.Health != nil {
		r.GET("/healthz", svc.Health.HTTP())
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(opts.AuthRateLimit, opts.AuthRateBurst).Middleware()
	requireUser := middleware.Auth(svc.Auth)

	auth := authHandler.New(svc.Auth)
	files := fileHandler.NewFileHandler(svc.Files, opts.MaxUploadBytes)
	demo := demoHandler.New(svc.Auth, svc.Demo)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/signup", limiter, auth.SignUp)
		authGroup.POST("/signin", limiter, auth.SignIn)
		authGroup.POST("/refresh", auth.Refresh)
		authGroup.POST("/signout", auth.SignOut)

		demoGroup := api.Group("/demo")
		demoGroup.POST("/sessions", limiter, demo.CreateSession)
		demoGroup.POST("/files", demo.AddFile)
		demoGroup.GET("/files", demo.ListFiles)

		fileGroup := api.Group("/files", requireUser)
		fileGroup.POST("/upload", files.Upload)
		fileGroup.GET("", files.List)
		fileGroup.GET("/:id/content", files.Content)
		fileGroup.PATCH("/:id", files.Rename)
		fileGroup.DELETE("/:id", files.Delete)

		folderGroup := api.Group("/folders", requireUser)
		folderGroup.POST("", files.CreateFolder)
		folderGroup.DELETE("/:id", files.DeleteFolder)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	config.ExposeHeaders = []string{middleware.RequestIDHeader}
	config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}

	for _, o := range origins {
		if o == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins
	return config
}
