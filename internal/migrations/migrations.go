package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the pharmacy stock service.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            email TEXT,
            first_name TEXT,
            last_name TEXT,
            national_id TEXT NOT NULL UNIQUE,
            role TEXT NOT NULL DEFAULT 'staff',
            password TEXT,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS medicines (
            id TEXT PRIMARY KEY,
            dci TEXT NOT NULL,
            nom_commercial TEXT NOT NULL,
            stock INTEGER NOT NULL CHECK (stock >= 0),
            ddp TEXT,
            lot TEXT,
            cout REAL NOT NULL,
            prix_de_vente REAL NOT NULL,
            deleted INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS distributions (
            id TEXT PRIMARY KEY,
            medicine_id TEXT NOT NULL,
            medicine_name TEXT NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            staff_user_id TEXT NOT NULL,
            staff_username TEXT NOT NULL,
            staff_full_name TEXT,
            staff_national_id TEXT NOT NULL,
            distributed_by TEXT NOT NULL,
            distributed_at TEXT NOT NULL,
            FOREIGN KEY(medicine_id) REFERENCES medicines(id),
            FOREIGN KEY(staff_user_id) REFERENCES users(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_distributions_staff ON distributions(staff_national_id);`,
		`CREATE INDEX IF NOT EXISTS idx_distributions_medicine ON distributions(medicine_id);`,
		`CREATE INDEX IF NOT EXISTS idx_distributions_at ON distributions(distributed_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
