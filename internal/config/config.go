package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration values.
type Config struct {
	HTTPPort    string
	DatabaseDSN string

	// Flat delivery surcharge per zone, in currency units.
	DeliveryChargeInside  float64
	DeliveryChargeOutside float64

	ScannerAPIURL string
	ScannerAPIKey string

	CatalogCSV string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "file:pharmadesk.db"
	}

	return Config{
		HTTPPort:              port,
		DatabaseDSN:           dsn,
		DeliveryChargeInside:  floatEnv("DELIVERY_CHARGE_INSIDE", 60),
		DeliveryChargeOutside: floatEnv("DELIVERY_CHARGE_OUTSIDE", 130),
		ScannerAPIURL:         os.Getenv("SCANNER_API_URL"),
		ScannerAPIKey:         os.Getenv("SCANNER_API_KEY"),
		CatalogCSV:            envOrDefault("CATALOG_CSV", "assets/medicine.csv"),
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		log.Printf("invalid %s value %q, defaulting to %v", key, raw, fallback)
		return fallback
	}
	return value
}
