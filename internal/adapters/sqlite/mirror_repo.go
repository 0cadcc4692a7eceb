package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/xid"
)

// MirrorRepository implémente ports.MirrorRepository sur la table series_mirror.
// Les dates sont stockées en "2006-01-02", chaîne vide si inconnue.
type MirrorRepository struct {
	db *sql.DB
}

func NewMirrorRepository(db *sql.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

const mirrorColumns = `remote_id, name, status, season, kind, is_finished, release_date, next_episode_date`

// firstByName cible le document le plus ancien portant ce nom.
const firstByName = `position = (SELECT position FROM series_mirror WHERE name = ? ORDER BY position ASC LIMIT 1)`

func (r *MirrorRepository) Find(ctx context.Context, filter ports.Filter) ([]domain.Series, error) {
	where, args := buildWhere(filter)
	q := `SELECT local_id, ` + mirrorColumns + ` FROM series_mirror`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Series, 0)
	for rows.Next() {
		var (
			s             domain.Series
			status, kind  string
			finished      int
			release, next string
		)
		if err := rows.Scan(&s.LocalID, &s.ID, &s.Name, &status, &s.Season, &kind, &finished, &release, &next); err != nil {
			return nil, err
		}
		s.Status = domain.Status(status)
		s.Kind = domain.Kind(kind)
		s.IsFinished = finished != 0
		s.ReleaseDate = parseDay(release)
		s.NextEpisodeDate = parseDay(next)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *MirrorRepository) Insert(ctx context.Context, s domain.Series) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO series_mirror(local_id, `+mirrorColumns+`, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		xid.New().String(), s.ID, s.Name, string(s.Status), s.Season, string(s.Kind), boolInt(s.IsFinished),
		formatDay(s.ReleaseDate), formatDay(s.NextEpisodeDate), now(),
	)
	return err
}

func (r *MirrorRepository) ReplaceByName(ctx context.Context, name string, s domain.Series) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE series_mirror
		SET remote_id = ?, name = ?, status = ?, season = ?, kind = ?, is_finished = ?,
			release_date = ?, next_episode_date = ?, updated_at = ?
		WHERE `+firstByName,
		s.ID, s.Name, string(s.Status), s.Season, string(s.Kind), boolInt(s.IsFinished),
		formatDay(s.ReleaseDate), formatDay(s.NextEpisodeDate), now(),
		name,
	)
	return affected(res, err)
}

func (r *MirrorRepository) UpdateNextEpisodeDate(ctx context.Context, localID string, date time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE series_mirror SET next_episode_date = ?, updated_at = ?
		WHERE local_id = ?`,
		formatDay(date), now(), localID,
	)
	return affected(res, err)
}

func (r *MirrorRepository) SetRemoteID(ctx context.Context, name string, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE series_mirror SET remote_id = ?, updated_at = ?
		WHERE `+firstByName,
		id, now(), name,
	)
	return affected(res, err)
}

func (r *MirrorRepository) Drop(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM series_mirror`)
	return err
}

func buildWhere(f ports.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Name != "" {
		clauses = append(clauses, `name = ?`)
		args = append(args, f.Name)
	}
	if f.Status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, string(f.Status))
	}
	if f.ExcludeFinished {
		clauses = append(clauses, `is_finished = 0`)
	}
	clauses, args = dateClauses("release_date", f.ReleaseDate, clauses, args)
	clauses, args = dateClauses("next_episode_date", f.NextEpisodeDate, clauses, args)
	return strings.Join(clauses, " AND "), args
}

// dateClauses traduit un DateRange; le format "2006-01-02" se compare lexicographiquement.
func dateClauses(col string, r ports.DateRange, clauses []string, args []any) ([]string, []any) {
	if r.Unset {
		return append(clauses, col+` = ''`), args
	}
	if r.IsZero() {
		return clauses, args
	}
	clauses = append(clauses, col+` <> ''`)
	if !r.Eq.IsZero() {
		clauses = append(clauses, col+` = ?`)
		args = append(args, formatDay(r.Eq))
	}
	if !r.Lt.IsZero() {
		clauses = append(clauses, col+` < ?`)
		args = append(args, formatDay(r.Lt))
	}
	if !r.Gte.IsZero() {
		clauses = append(clauses, col+` >= ?`)
		args = append(args, formatDay(r.Gte))
	}
	if !r.Lte.IsZero() {
		clauses = append(clauses, col+` <= ?`)
		args = append(args, formatDay(r.Lte))
	}
	return clauses, args
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return domain.DateOf(t).Format(time.DateOnly)
}

func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
