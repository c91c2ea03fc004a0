package seed

import (
	"log"

	"github.com/jmoiron/sqlx"
)

type demoPatient struct {
	name    string
	mobile  string
	dob     string
	balance float64
}

type demoRefill struct {
	patient  string
	medicine string
	next     string
	interval int64
}

var demoPatients = []demoPatient{
	{"Ariful Islam", "01711223344", "1985-05-15", 450},
	{"Nusrat Jahan", "01822334455", "1990-10-20", 120},
	{"Kamal Ahmed", "01933445566", "1970-01-01", 0},
}

var demoRefills = []demoRefill{
	{"Ariful Islam", "Concor 5mg", "2026-02-10", 30},
	{"Nusrat Jahan", "Atova 10mg", "2026-02-15", 30},
	{"Kamal Ahmed", "Pantonix 20mg", "2026-02-05", 30},
}

// EnsureDemoData seeds the patient directory and the refill pipeline
// with demo rows when the tables are empty. No-op on a populated
// database.
func EnsureDemoData(db *sqlx.DB) {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM patients`); err != nil {
		log.Printf("unable to check patient table: %v", err)
		return
	}
	if count > 0 {
		return
	}

	ids := make(map[string]int64, len(demoPatients))
	for _, p := range demoPatients {
		res, err := db.Exec(`INSERT INTO patients (name, mobile, dob, wallet_balance) VALUES (?, ?, ?, ?)`,
			p.name, p.mobile, p.dob, p.balance)
		if err != nil {
			log.Printf("unable to seed patient %s: %v", p.name, err)
			continue
		}
		id, _ := res.LastInsertId()
		ids[p.name] = id
	}

	for _, r := range demoRefills {
		patientID, ok := ids[r.patient]
		if !ok {
			continue
		}
		if _, err := db.Exec(`INSERT INTO refill_schedules (patient_id, medicine_name, next_refill_date, interval_days, status) VALUES (?, ?, ?, ?, 'active')`,
			patientID, r.medicine, r.next, r.interval); err != nil {
			log.Printf("unable to seed refill for %s: %v", r.patient, err)
		}
	}
	log.Printf("seeded %d demo patients with refill schedules", len(ids))
}
