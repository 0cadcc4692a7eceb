package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
)

const lastReportKey = "last"

// ReportRepository garde le dernier rapport de réconciliation (JSON).
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Last(ctx context.Context) (domain.ReconcileReport, error) {
	var b []byte
	err := r.db.QueryRowContext(ctx, `SELECT value_json FROM reports WHERE key = ?`, lastReportKey).Scan(&b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReconcileReport{}, ports.ErrNotFound
		}
		return domain.ReconcileReport{}, err
	}
	var report domain.ReconcileReport
	if err := json.Unmarshal(b, &report); err != nil {
		return domain.ReconcileReport{}, err
	}
	return report, nil
}

func (r *ReportRepository) Save(ctx context.Context, report domain.ReconcileReport) error {
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reports(key, value_json, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, lastReportKey, b, time.Now().UTC().Format(time.RFC3339))
	return err
}
