package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"parkhub/internal/api"
	"parkhub/internal/auth"
	"parkhub/internal/cache"
	"parkhub/internal/config"
	"parkhub/internal/queue"
	"parkhub/internal/repository"
	"parkhub/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	lotRepo := repository.NewLotRepository(database)
	spotRepo := repository.NewSpotRepository(database)
	reservationRepo := repository.NewReservationRepository(database)
	userRepo := repository.NewUserRepository(database)

	pool := service.NewSpotPool(lotRepo, spotRepo)
	billing := service.NewBillingCalculator(cfg.Billing)

	reservationSvc := service.NewReservationService(pool, billing, reservationRepo, lotRepo)
	lotSvc := service.NewLotService(pool, lotRepo)
	authSvc := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL)
	sender := service.NewSenderService()
	exportSvc := service.NewExportService(reservationRepo)
	jobSvc := service.NewJobService(reservationRepo, sender)

	if redisClient := cache.NewRedisClient(); redisClient != nil {
		lotSvc.Cache = cache.NewLotCache(redisClient, cfg.CacheTTL)
	}

	publisher := queue.NewPublisher()
	reservationSvc.Events = publisher

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := queue.NewConsumer(reservationRepo, userRepo, sender, exportSvc)
	go consumer.Run(ctx)

	scheduler := cron.New()
	scheduler.AddFunc("0 18 * * *", func() {
		if err := jobSvc.SendDailyReminders(context.Background()); err != nil {
			log.Printf("daily reminder job: %v", err)
		}
	})
	scheduler.AddFunc("0 6 1 * *", func() {
		if err := jobSvc.SendMonthlyReports(context.Background(), time.Now().UTC()); err != nil {
			log.Printf("monthly report job: %v", err)
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	authMW := auth.NewMiddleware([]byte(cfg.JWTSecret))
	limiter := api.NewRateLimiter(10, 20)

	authHandler := api.NewAuthHandler(authSvc)
	userHandler := api.NewUserHandler(reservationSvc, lotSvc, exportSvc, publisher)
	adminHandler := api.NewAdminHandler(lotSvc, authSvc, reservationRepo)

	r := mux.NewRouter()
	r.Use(limiter.Middleware)

	// Public endpoints
	r.HandleFunc("/api/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/login", authHandler.Login).Methods("POST")

	// User endpoints (authenticated)
	user := r.PathPrefix("/api/user").Subrouter()
	user.Use(authMW.Authenticate)
	user.HandleFunc("/parking-lots", userHandler.ListLots).Methods("GET")
	user.HandleFunc("/allocate", userHandler.Allocate).Methods("POST")
	user.HandleFunc("/reservations", userHandler.ListReservations).Methods("GET")
	user.HandleFunc("/reservations/{id}/terminate", userHandler.Terminate).Methods("POST")
	user.HandleFunc("/summary", userHandler.Summary).Methods("GET")
	user.HandleFunc("/export-csv", userHandler.ExportCSV).Methods("GET")
	user.HandleFunc("/export", userHandler.RequestExport).Methods("POST")

	// Admin endpoints (authenticated, admin role)
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(authMW.Authenticate, authMW.RequireRole("admin"))
	admin.HandleFunc("/parking-lots", adminHandler.ListLots).Methods("GET")
	admin.HandleFunc("/parking-lots", adminHandler.CreateLot).Methods("POST")
	admin.HandleFunc("/parking-lots/{id}", adminHandler.UpdateLot).Methods("PUT")
	admin.HandleFunc("/parking-lots/{id}/resize", adminHandler.Resize).Methods("POST")
	admin.HandleFunc("/parking-lots/{id}/disable", adminHandler.Disable).Methods("POST")
	admin.HandleFunc("/parking-lots/{id}/restore", adminHandler.Restore).Methods("POST")
	admin.HandleFunc("/parking-lots/{id}/status", adminHandler.LotStatus).Methods("GET")
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/revenue", adminHandler.RevenueSummary).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{"Content-Disposition"}),
	)

	log.Printf("Server running on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, cors(handlers.LoggingHandler(os.Stdout, r))))
}
