package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	swaggoFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"LMS-backend/internal/catalog"
	"LMS-backend/internal/circulation/borrowings"
	"LMS-backend/internal/circulation/events"
	"LMS-backend/internal/circulation/policy"
	"LMS-backend/internal/circulation/reservations"
	"LMS-backend/internal/members"
	"LMS-backend/internal/platform/auth"
	"LMS-backend/internal/platform/db"
	"LMS-backend/internal/platform/middleware"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	// Event publisher; transitions still commit when the broker is down.
	var pub events.Publisher = events.Nop{}
	if cfg.AMQP.Enabled {
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL)
		if err != nil {
			log.Printf("[WARN] broker unavailable, events disabled: %v", err)
		} else {
			pub = p
			defer p.Close()
		}
	}

	pol := policy.Policy{LoanDays: cfg.Policy.LoanDays, WeeklyFee: cfg.Policy.WeeklyFee}
	secret := []byte(cfg.Auth.Secret)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS is only needed while the frontend runs on its own port.
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length", "X-Total-Count"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggoFiles.Handler))

	authSvc := auth.NewService(conn, secret)
	catalogSvc := catalog.NewService(conn)
	memberSvc := members.NewService(conn)
	borrowSvc := borrowings.NewService(conn, pol, pub)
	reserveSvc := reservations.NewService(conn, pub)

	// /api/v1
	api := r.Group("/api/v1", middleware.RateLimit(20, 40))
	auth.RegisterRoutes(api.Group("/auth"), authSvc)

	authed := api.Group("", auth.RequireAuth(secret))
	catalog.RegisterRoutes(authed, catalogSvc)
	members.RegisterRoutes(authed, memberSvc)
	borrowings.RegisterRoutes(authed, borrowSvc)
	reservations.RegisterRoutes(authed, reserveSvc)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	catalog.RegisterAdminRoutes(admin, catalogSvc)
	members.RegisterAdminRoutes(admin, memberSvc)
	borrowings.RegisterAdminRoutes(admin, borrowSvc)
	auth.RegisterAdminRoutes(admin.Group("/auth"), authSvc)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		if cfg.Certificate.Cert != "" && cfg.Certificate.Key != "" {
			certFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Key)
			log.Printf("[INFO] listening on https://%s", cfg.Server.Addr)
			if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
			return
		}
		log.Printf("[INFO] listening on http://%s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
