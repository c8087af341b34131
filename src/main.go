package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"rentals/src/boot"
	"rentals/src/config"
	"rentals/src/middlewares"
	"strings"
	"syscall"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	apiPrefix string = "/api/v1"
)

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine, enabled bool) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if enabled {
			log.Println("server is under maintenance")
			failure(ctx, http.StatusServiceUnavailable, "server is under maintenance")
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func corsMiddleware(cfg *config.App) gin.HandlerFunc {
	if cfg.APIEnv == config.ENV_LOCAL {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOrigins = []string{strings.TrimRight(cfg.AppHost, "/")}
	cc.AllowCredentials = true
	return cors.New(cc)
}

func newServer(app *boot.App) *gin.Engine {
	cfg := app.Config
	router := setupRouter()
	router.Use(corsMiddleware(cfg))
	registerValidators()

	router = maintenanceModeMiddleware(router, cfg.MaintenanceMode)

	// the provider calls this without a user session
	paymentWebhookRoute(router, app)

	if app.Local != nil && !cfg.IsProd() {
		localCheckoutRoutes(router, app)
	}

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware([]byte(cfg.JWTSecret), app.Users))
	{
		checkoutHandlers(authorized, app)
		bookingHandlers(authorized, app)
	}
	return router
}

func initLogger(logFile string) {
	if logFile == "" {
		return
	}
	gin.ForceConsoleColor()
	logger := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}
	gin.DefaultWriter = io.MultiWriter(logger, os.Stdout)
	log.SetOutput(io.MultiWriter(logger, os.Stderr))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %s\n", err.Error())
	}
	initLogger(cfg.LogFile)
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		log.Println("[Boot] WARNING: JWT_SECRET is not set, using an insecure development secret")
		cfg.JWTSecret = "local-development-secret"
	}

	app, err := boot.InitApp(cfg)
	if err != nil {
		log.Fatalf("Error initializing app: %s\n", err.Error())
	}
	if err := boot.InitScheduler(cfg, app.Sweeper); err != nil {
		log.Fatalf("Error starting scheduler: %s\n", err.Error())
	}
	if cfg.StoreDriver == config.STORE_MEMORY {
		for _, user := range boot.DemoUsers() {
			token, err := middlewares.IssueToken([]byte(cfg.JWTSecret), &user, 24*time.Hour)
			if err == nil {
				log.Printf("[Boot] demo %s token: %s\n", user.Role, token)
			}
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %s\n", err.Error())
	}
	app.Close()
	log.Println("Server exiting")
}
