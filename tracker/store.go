package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// recentVisitLimit is the fixed size of the recent-visit window in the
// detailed stats view.
const recentVisitLimit = 10

// Store owns the visits table. It is the only durable state in the system;
// everything else is recomputed per request.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and bootstraps the schema and indexes.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL mode lets stats reads proceed while a track request is writing,
	// and the busy timeout makes writers wait instead of failing with
	// SQLITE_BUSY under concurrent tracking.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_name TEXT NOT NULL,
			ip_address TEXT NOT NULL,
			country TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_visits_project_name ON visits(project_name);
		CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits(created_at);
	`)
	return err
}

// InsertVisit appends one visit row. The id and created_at are assigned by
// the database; country may be nil.
func (s *Store) InsertVisit(ctx context.Context, project Project, ipAddress string, country *string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visits (project_name, ip_address, country) VALUES (?, ?, ?)`,
		string(project), ipAddress, country)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

// ProjectStats returns the scalar aggregates for one project, optionally
// restricted to a time scope. The outer scalar aggregate always yields a
// row, so a project with no matching visits reports zeroes rather than
// being absent.
func (s *Store) ProjectStats(ctx context.Context, project Project, scope *TimeScope) (ProjectStats, error) {
	query := `SELECT COUNT(*), COUNT(DISTINCT ip_address) FROM visits WHERE project_name = ?`
	args := []any{string(project)}
	if scope != nil {
		cond, condArgs := scope.condition()
		query += " AND " + cond
		args = append(args, condArgs...)
	}
	stats := ProjectStats{Project: project}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.TotalVisits, &stats.UniqueVisitors)
	if err != nil {
		return ProjectStats{}, fmt.Errorf("project stats: %w", err)
	}
	return stats, nil
}

// AllProjectStats returns per-project aggregates over all matching visits,
// ordered by total visits descending. Projects with no matching rows are
// omitted because the grouping yields no group for them. Range scopes are
// rejected with ErrRangeUnsupported.
func (s *Store) AllProjectStats(ctx context.Context, scope *TimeScope) ([]ProjectStats, error) {
	query := `SELECT project_name, COUNT(*) AS total_visits, COUNT(DISTINCT ip_address) FROM visits`
	var args []any
	if scope != nil {
		if scope.Kind == ScopeRange {
			return nil, ErrRangeUnsupported
		}
		cond, condArgs := scope.condition()
		query += " WHERE " + cond
		args = condArgs
	}
	query += ` GROUP BY project_name ORDER BY total_visits DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("all project stats: %w", err)
	}
	defer rows.Close()

	var stats []ProjectStats
	for rows.Next() {
		var st ProjectStats
		if err := rows.Scan(&st.Project, &st.TotalVisits, &st.UniqueVisitors); err != nil {
			return nil, fmt.Errorf("all project stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("all project stats: %w", err)
	}
	return stats, nil
}

// CountryStats groups a project's visits by country, NULL bucket included,
// ordered by count descending. Ties break on the country value ascending
// (NULL first), so equal counts have a stable order.
func (s *Store) CountryStats(ctx context.Context, project Project) ([]CountryStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, COUNT(*) AS visit_count
		FROM visits
		WHERE project_name = ?
		GROUP BY country
		ORDER BY visit_count DESC, country ASC`,
		string(project))
	if err != nil {
		return nil, fmt.Errorf("country stats: %w", err)
	}
	defer rows.Close()

	var stats []CountryStats
	for rows.Next() {
		var st CountryStats
		if err := rows.Scan(&st.Country, &st.VisitCount); err != nil {
			return nil, fmt.Errorf("country stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("country stats: %w", err)
	}
	return stats, nil
}

// RecentVisits returns the newest visits for a project, full row detail,
// newest first. Equal timestamps order by id descending so the result is
// deterministic at CURRENT_TIMESTAMP's one-second resolution.
func (s *Store) RecentVisits(ctx context.Context, project Project, limit int) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_name, ip_address, country, created_at
		FROM visits
		WHERE project_name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		string(project), limit)
	if err != nil {
		return nil, fmt.Errorf("recent visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var created string
		if err := rows.Scan(&v.ID, &v.Project, &v.IPAddress, &v.Country, &created); err != nil {
			return nil, fmt.Errorf("recent visits: %w", err)
		}
		v.CreatedAt, err = parseTimestamp(created)
		if err != nil {
			return nil, fmt.Errorf("recent visits: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent visits: %w", err)
	}
	return visits, nil
}

// ProjectDetailedStats composes the unscoped single-project view: scalar
// totals, registry metadata, country breakdown, and the most recent visits
// of all time. The recent-visit window is never time-scoped.
func (s *Store) ProjectDetailedStats(ctx context.Context, project Project) (ProjectDetailedStats, error) {
	basic, err := s.ProjectStats(ctx, project, nil)
	if err != nil {
		return ProjectDetailedStats{}, err
	}
	countries, err := s.CountryStats(ctx, project)
	if err != nil {
		return ProjectDetailedStats{}, err
	}
	recent, err := s.RecentVisits(ctx, project, recentVisitLimit)
	if err != nil {
		return ProjectDetailedStats{}, err
	}
	info := project.Info()
	return ProjectDetailedStats{
		Project:        project,
		Repository:     info.Repository,
		Icon:           info.Icon,
		Description:    info.Description,
		TotalVisits:    basic.TotalVisits,
		UniqueVisitors: basic.UniqueVisitors,
		CountryStats:   countries,
		RecentVisits:   recent,
	}, nil
}

// parseTimestamp reads the created_at column, which SQLite writes as
// "YYYY-MM-DD HH:MM:SS" in UTC via CURRENT_TIMESTAMP. RFC 3339 is accepted
// as well for rows written with an explicit timestamp.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
