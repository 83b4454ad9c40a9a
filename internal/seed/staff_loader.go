package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LoadStaff ingests a staff directory CSV into the users table, ignoring rows
// whose username or national id already exist. Expected columns:
// username,email,first_name,last_name,national_id,role
func LoadStaff(db *sqlx.DB, logger *zap.Logger, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		logger.Warn("unable to open staff directory", zap.String("path", csvPath), zap.Error(err))
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		logger.Warn("unable to read staff header", zap.Error(err))
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		logger.Warn("unable to start staff transaction", zap.Error(err))
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO users (id, username, email, first_name, last_name, national_id, role, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		logger.Warn("unable to prepare staff insert", zap.Error(err))
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("unable to read staff row", zap.Error(err))
			continue
		}
		if len(record) < 6 {
			continue
		}
		username := strings.TrimSpace(record[0])
		email := strings.TrimSpace(record[1])
		firstName := strings.TrimSpace(record[2])
		lastName := strings.TrimSpace(record[3])
		nationalID := strings.TrimSpace(record[4])
		role := strings.TrimSpace(record[5])

		if username == "" || nationalID == "" {
			continue
		}
		if role == "" {
			role = "staff"
		}

		if _, err := stmt.Exec(uuid.NewString(), username, nullable(email), nullable(firstName), nullable(lastName), nationalID, role, now); err != nil {
			logger.Warn("unable to insert staff user", zap.String("username", username), zap.Error(err))
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Warn("unable to commit staff seed", zap.Error(err))
		return
	}
	logger.Info("seeded staff directory", zap.Int("rows", rows))
}

func nullable(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
