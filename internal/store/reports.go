package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/blackwell-systems/aireflect/internal/model"
)

// RetentionDays is how long report history is kept before pruning.
const RetentionDays = 180

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// SaveReport persists a report with its analyzer results and insights in a
// single transaction and returns the report ID.
func (db *DB) SaveReport(r *model.Report) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	result, err := tx.Exec(
		`INSERT INTO reports
		(created_at, tool, period_start, period_end, overall_score,
		 session_count, total_turns, total_tokens, duration_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(createdAt), string(r.Tool), formatTime(r.PeriodStart),
		formatTime(r.PeriodEnd), r.OverallScore, r.SessionCount,
		r.TotalTurns, r.TotalTokens, r.TotalDurationMinutes,
	)
	if err != nil {
		return 0, err
	}
	reportID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, ar := range r.Results {
		metrics := ""
		if len(ar.Metrics) > 0 {
			if b, err := json.Marshal(ar.Metrics); err == nil {
				metrics = string(b)
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO analysis_results
			(report_id, analyzer_key, analyzer_name, score, session_count, metrics)
			VALUES (?, ?, ?, ?, ?, ?)`,
			reportID, ar.AnalyzerKey, ar.AnalyzerName, ar.Score, ar.SessionCount, metrics,
		); err != nil {
			return 0, err
		}
	}

	for _, in := range r.Insights {
		if _, err := tx.Exec(
			`INSERT INTO insights
			(report_id, category, title, severity, recommendation, evidence,
			 metric_key, metric_value, trend)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			reportID, in.Category, in.Title, string(in.Severity),
			in.Recommendation, in.Evidence, in.MetricKey, in.MetricValue,
			string(in.Trend),
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return reportID, nil
}

// RecordSessions upserts session metadata rows. Turn text is never stored;
// only shape and token counts survive for trend queries.
func (db *DB) RecordSessions(sessions []model.Session) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range sessions {
		s := &sessions[i]
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO session_metadata
			(session_id, tool, start_time, end_time, duration_minutes,
			 workspace, model, session_type, turn_count, user_turn_count,
			 input_tokens, output_tokens)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.SessionID, string(s.Tool), formatTime(s.StartTime),
			formatTime(s.EndTime), s.DurationMinutes, s.WorkspacePath,
			s.Model, string(s.SessionType), s.TurnCount(), s.UserTurnCount(),
			s.TotalInputTokens, s.TotalOutputTokens,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ScorePoint is one historical score sample.
type ScorePoint struct {
	CreatedAt time.Time
	Score     float64
}

// ScoreHistory returns up to limit samples for one analyzer and tool,
// newest first.
func (db *DB) ScoreHistory(tool model.Tool, analyzerKey string, limit int) ([]ScorePoint, error) {
	rows, err := db.conn.Query(
		`SELECT r.created_at, a.score
		 FROM analysis_results a JOIN reports r ON a.report_id = r.id
		 WHERE r.tool = ? AND a.analyzer_key = ?
		 ORDER BY r.id DESC LIMIT ?`,
		string(tool), analyzerKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanScorePoints(rows)
}

// OverallHistory returns up to limit overall scores for a tool, newest
// first.
func (db *DB) OverallHistory(tool model.Tool, limit int) ([]ScorePoint, error) {
	rows, err := db.conn.Query(
		`SELECT created_at, overall_score FROM reports
		 WHERE tool = ? ORDER BY id DESC LIMIT ?`,
		string(tool), limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanScorePoints(rows)
}

func scanScorePoints(rows *sql.Rows) ([]ScorePoint, error) {
	var points []ScorePoint
	for rows.Next() {
		var createdAt string
		var p ScorePoint
		if err := rows.Scan(&createdAt, &p.Score); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		points = append(points, p)
	}
	return points, rows.Err()
}

// LatestReport returns the most recent stored report for a tool, or nil if
// none exist. Results and insights are rehydrated.
func (db *DB) LatestReport(tool model.Tool) (*model.Report, error) {
	row := db.conn.QueryRow(
		`SELECT id, created_at, period_start, period_end, overall_score,
		 session_count, total_turns, total_tokens, duration_minutes
		 FROM reports WHERE tool = ? ORDER BY id DESC LIMIT 1`,
		string(tool),
	)

	var id int64
	var createdAt, periodStart, periodEnd string
	r := &model.Report{Tool: tool}
	err := row.Scan(&id, &createdAt, &periodStart, &periodEnd, &r.OverallScore,
		&r.SessionCount, &r.TotalTurns, &r.TotalTokens, &r.TotalDurationMinutes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.PeriodStart = parseTime(periodStart)
	r.PeriodEnd = parseTime(periodEnd)

	rows, err := db.conn.Query(
		`SELECT analyzer_key, analyzer_name, score, session_count, metrics
		 FROM analysis_results WHERE report_id = ? ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var ar model.AnalysisResult
		var metrics sql.NullString
		if err := rows.Scan(&ar.AnalyzerKey, &ar.AnalyzerName, &ar.Score,
			&ar.SessionCount, &metrics); err != nil {
			return nil, err
		}
		if metrics.String != "" {
			_ = json.Unmarshal([]byte(metrics.String), &ar.Metrics)
		}
		r.Results = append(r.Results, ar)
	}
	return r, rows.Err()
}

// Prune deletes reports and session metadata older than the retention
// window. Result and insight rows cascade with their report.
func (db *DB) Prune(now time.Time) error {
	cutoff := formatTime(now.AddDate(0, 0, -RetentionDays))
	if _, err := db.conn.Exec("DELETE FROM reports WHERE created_at < ?", cutoff); err != nil {
		return err
	}
	_, err := db.conn.Exec(
		"DELETE FROM session_metadata WHERE start_time != '' AND start_time < ?", cutoff)
	return err
}
