package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sanjuz-cas/SURF/internal/models"
)

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = errors.New("not found")

// Store persists feedback items and pipeline output in SQLite. All writes go
// through transactional single-row statements, so concurrent runs serialize
// on the database itself.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		raw_text TEXT NOT NULL,
		source TEXT NOT NULL,
		category TEXT,
		severity_volume_score REAL,
		processed BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS prioritized_output (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feedback_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		score REAL NOT NULL,
		team TEXT NOT NULL,
		category TEXT NOT NULL,
		action_plan TEXT NOT NULL,
		pre_mortem_forecast TEXT NOT NULL,
		priority_rank INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(feedback_id) REFERENCES feedback_items(id)
	);
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		total_analyzed INTEGER NOT NULL,
		total_risk_estimate TEXT NOT NULL,
		generated_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertFeedback adds one raw feedback row and returns its id.
func (s *Store) InsertFeedback(ctx context.Context, rec models.FeedbackRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_items (raw_text, source) VALUES (?, ?)`,
		rec.RawText, rec.Source)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AllFeedback returns every feedback row, oldest first.
func (s *Store) AllFeedback(ctx context.Context) ([]models.FeedbackRecord, error) {
	return s.queryFeedback(ctx, `SELECT id, raw_text, source, COALESCE(category, ''),
		COALESCE(severity_volume_score, 0), processed, created_at
		FROM feedback_items ORDER BY id`)
}

// UnprocessedFeedback returns up to limit rows awaiting analysis.
func (s *Store) UnprocessedFeedback(ctx context.Context, limit int) ([]models.FeedbackRecord, error) {
	return s.queryFeedback(ctx, `SELECT id, raw_text, source, COALESCE(category, ''),
		COALESCE(severity_volume_score, 0), processed, created_at
		FROM feedback_items WHERE processed = 0 ORDER BY id LIMIT ?`, limit)
}

// TopItems returns up to limit processed rows ordered by score descending.
func (s *Store) TopItems(ctx context.Context, limit int) ([]models.FeedbackRecord, error) {
	return s.queryFeedback(ctx, `SELECT id, raw_text, source, COALESCE(category, ''),
		COALESCE(severity_volume_score, 0), processed, created_at
		FROM feedback_items WHERE processed = 1
		ORDER BY severity_volume_score DESC, id LIMIT ?`, limit)
}

// UpdateItemScore records the analysis verdict for one row and marks it
// processed.
func (s *Store) UpdateItemScore(ctx context.Context, id int64, category string, score float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback_items SET category = ?, severity_volume_score = ?, processed = 1 WHERE id = ?`,
		category, score, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryFeedback(ctx context.Context, query string, args ...any) ([]models.FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.FeedbackRecord
	for rows.Next() {
		var rec models.FeedbackRecord
		if err := rows.Scan(&rec.ID, &rec.RawText, &rec.Source, &rec.Category,
			&rec.Score, &rec.Processed, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SavePrioritizedOutput persists one prioritized item. A later run replaces
// the previous entry at the same rank.
func (s *Store) SavePrioritizedOutput(ctx context.Context, item models.PriorityItem) (int64, error) {
	plan, err := json.Marshal(item.ActionPlan)
	if err != nil {
		return 0, fmt.Errorf("marshal action plan: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM prioritized_output WHERE priority_rank = ?`, item.Rank); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO prioritized_output
		(feedback_id, title, score, team, category, action_plan, pre_mortem_forecast, priority_rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.FeedbackID, item.Title, item.Score, item.Team, item.Category,
		string(plan), item.PreMortemForecast, item.Rank)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// Priorities returns stored prioritized items, best rank first.
func (s *Store) Priorities(ctx context.Context, limit int) ([]models.PriorityItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, feedback_id, title, score, team, category, action_plan,
		pre_mortem_forecast, priority_rank, created_at
		FROM prioritized_output ORDER BY priority_rank ASC, score DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PriorityItem
	for rows.Next() {
		var item models.PriorityItem
		var plan string
		if err := rows.Scan(&item.ID, &item.FeedbackID, &item.Title, &item.Score,
			&item.Team, &item.Category, &plan, &item.PreMortemForecast,
			&item.Rank, &item.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(plan), &item.ActionPlan); err != nil {
			return nil, fmt.Errorf("corrupt action plan for item %d: %w", item.ID, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// SaveRunSummary records the aggregate outcome of a completed pipeline run.
func (s *Store) SaveRunSummary(ctx context.Context, run models.RunSummary) error {
	if run.GeneratedAt.IsZero() {
		run.GeneratedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, total_analyzed, total_risk_estimate, generated_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.TotalAnalyzed, run.TotalRiskEstimate, run.GeneratedAt)
	return err
}

// LatestRun returns the most recent run summary, if any.
func (s *Store) LatestRun(ctx context.Context) (models.RunSummary, bool, error) {
	var run models.RunSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT id, total_analyzed, total_risk_estimate, generated_at
		FROM runs ORDER BY generated_at DESC LIMIT 1`).
		Scan(&run.ID, &run.TotalAnalyzed, &run.TotalRiskEstimate, &run.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RunSummary{}, false, nil
	}
	if err != nil {
		return models.RunSummary{}, false, err
	}
	return run, true, nil
}

// Stats aggregates counts for the dashboard.
func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	stats := models.Stats{
		ByCategory: map[string]int{},
		ByPriority: map[string]int{},
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(processed), 0) FROM feedback_items`).
		Scan(&stats.TotalFeedback, &stats.Processed); err != nil {
		return stats, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM feedback_items
		WHERE category IS NOT NULL AND category != '' GROUP BY category`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return stats, err
		}
		stats.ByCategory[category] = n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	// priority bands over processed scores
	bands := []struct {
		label    string
		lo, hi   float64
		lowerInc bool
	}{
		{"critical", 8, 10.01, true},
		{"high", 6, 8, true},
		{"medium", 4, 6, true},
		{"low", 0, 4, true},
	}
	for _, b := range bands {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM feedback_items
			WHERE processed = 1 AND severity_volume_score >= ? AND severity_volume_score < ?`,
			b.lo, b.hi).Scan(&n); err != nil {
			return stats, err
		}
		stats.ByPriority[b.label] = n
	}
	return stats, nil
}
