package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	webAdapter "pharmastock/internal/adapters/web"
	"pharmastock/internal/app"
	"pharmastock/internal/cases"
	"pharmastock/internal/config"
	"pharmastock/internal/core"
	"pharmastock/internal/db"
	"pharmastock/internal/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer conn.Close()

	if err := migrations.Run(conn); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	locationService := core.NewLocationService(conn)
	stockService := core.NewStockService(conn)
	transactionService := core.NewTransactionService(conn, stockService)
	catalogService := core.NewCatalogService(conn)
	queryService := core.NewQueryService(conn)
	notificationService := core.NewNotificationService(conn, queryService)
	authService := core.NewAuthService(conn)
	caseService := cases.NewService(conn)

	svc := app.NewAppService(
		catalogService,
		locationService,
		stockService,
		transactionService,
		queryService,
		notificationService,
		authService,
		caseService,
	)

	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.Secret)

	log.Printf("server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
