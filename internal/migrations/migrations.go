package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the POS backend.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS medicines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            brand TEXT NOT NULL,
            generic TEXT NOT NULL DEFAULT '',
            strength TEXT NOT NULL DEFAULT '',
            pack_size INTEGER DEFAULT 1,
            buying_price REAL DEFAULT 0,
            selling_price REAL NOT NULL,
            rack TEXT NOT NULL DEFAULT '',
            stock_total INTEGER NOT NULL DEFAULT 0,
            min_stock INTEGER NOT NULL DEFAULT 0,
            is_chronic INTEGER NOT NULL DEFAULT 0,
            UNIQUE(brand, strength)
        );`,
		`CREATE TABLE IF NOT EXISTS patients (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            mobile TEXT NOT NULL,
            dob TEXT NOT NULL DEFAULT '',
            wallet_balance REAL NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            patient_name TEXT NOT NULL,
            mobile TEXT NOT NULL,
            order_date TEXT NOT NULL,
            total_amount REAL NOT NULL,
            discount_amount REAL NOT NULL DEFAULT 0,
            fulfillment_type TEXT NOT NULL,
            initial TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id TEXT NOT NULL,
            description TEXT NOT NULL,
            FOREIGN KEY(order_id) REFERENCES orders(id)
        );`,
		`CREATE TABLE IF NOT EXISTS stock_logs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            medicine_id INTEGER NOT NULL,
            change INTEGER NOT NULL,
            type TEXT NOT NULL,
            user TEXT NOT NULL DEFAULT '',
            reason TEXT NOT NULL DEFAULT '',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id)
        );`,
		`CREATE TABLE IF NOT EXISTS refill_schedules (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            patient_id INTEGER NOT NULL,
            medicine_name TEXT NOT NULL,
            next_refill_date TEXT NOT NULL,
            interval_days INTEGER NOT NULL DEFAULT 30,
            status TEXT NOT NULL DEFAULT 'active',
            last_contacted TEXT,
            FOREIGN KEY(patient_id) REFERENCES patients(id)
        );`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}
}
