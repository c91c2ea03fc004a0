package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"pharmadesk/m/internal/api"
	"pharmadesk/m/internal/catalog"
	"pharmadesk/m/internal/config"
	"pharmadesk/m/internal/database"
	"pharmadesk/m/internal/history"
	"pharmadesk/m/internal/invoice"
	"pharmadesk/m/internal/migrations"
	"pharmadesk/m/internal/refill"
	"pharmadesk/m/internal/scanner"
	"pharmadesk/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.LoadMedicines(db, cfg.CatalogCSV)
	seed.EnsureDemoData(db)

	var scanClient scanner.Client
	if cfg.ScannerAPIKey != "" {
		scanClient = scanner.NewVisionClient(cfg.ScannerAPIURL, cfg.ScannerAPIKey)
	} else {
		log.Println("no scanner API key configured, using stub prescription parser")
		scanClient = scanner.NewStubClient()
	}

	tariff := invoice.NewTariff(cfg.DeliveryChargeInside, cfg.DeliveryChargeOutside)
	handler := api.New(
		catalog.NewStore(db),
		history.NewSQLStore(db),
		refill.NewStore(db),
		scanClient,
		tariff,
	)

	log.Printf("PharmaDesk POS server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
