package seed

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// LoadMedicines ingests the catalog CSV into the medicines table,
// ignoring duplicates. Expected columns: brand, generic, strength,
// pack_size, buying_price, selling_price, rack, stock_total, min_stock,
// is_chronic.
func LoadMedicines(db *sqlx.DB, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load medicine catalog %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read medicine header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Printf("unable to start medicine transaction: %v", err)
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO medicines (brand, generic, strength, pack_size, buying_price, selling_price, rack, stock_total, min_stock, is_chronic) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("unable to prepare medicine insert: %v", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read medicine row: %v", err)
			continue
		}
		if len(record) < 10 {
			continue
		}
		brand := strings.TrimSpace(record[0])
		if brand == "" {
			continue
		}
		generic := strings.TrimSpace(record[1])
		strength := strings.TrimSpace(record[2])
		packSize := intField(record[3], 1)
		buying := floatField(record[4])
		selling := floatField(record[5])
		rack := strings.TrimSpace(record[6])
		stock := intField(record[7], 0)
		minStock := intField(record[8], 0)
		chronic := boolField(record[9])

		if _, err := stmt.Exec(brand, generic, strength, packSize, buying, selling, rack, stock, minStock, chronic); err != nil {
			log.Printf("unable to insert medicine %s: %v", brand, err)
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("unable to commit medicine seed: %v", err)
	} else {
		log.Printf("seeded medicine catalog with %d rows", rows)
	}
}

func intField(raw string, fallback int64) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func floatField(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}

func boolField(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
