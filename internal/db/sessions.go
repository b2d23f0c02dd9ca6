package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
)

const sessionColumns = `s.id, s.seq, s.rule_id, s.group_id, s.process_id, s.process_start_time,
	s.executable, s.started_at, s.stopped_at`

// OpenSession starts a tracking session for (rule, process instance) and
// records the initial title in the same transaction. A second open session
// for the same key is rejected with CONFLICT.
func (d *DB) OpenSession(ctx context.Context, rule models.Rule, p models.ProcessRecord, at int64) (*models.TrackingSession, error) {
	s := &models.TrackingSession{
		ID:               uuid.New().String(),
		RuleID:           rule.ID,
		GroupID:          rule.GroupID,
		ProcessID:        p.ID,
		ProcessStartTime: p.StartTime,
		Executable:       p.Executable,
		StartedAt:        at,
		TitleHistory:     []models.TitleChange{{ChangedAt: at, Title: p.WindowTitle}},
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.PersistenceFailed("open session", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM tracking_sessions`).Scan(&s.Seq); err != nil {
		return nil, errors.PersistenceFailed("open session", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO tracking_sessions
		(id, seq, rule_id, group_id, process_id, process_start_time, executable, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Seq, s.RuleID, s.GroupID, s.ProcessID, s.ProcessStartTime, s.Executable, s.StartedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict("open session", sessionKeyString(rule.ID, p))
		}
		return nil, errors.PersistenceFailed("open session", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO title_changes (session_id, changed_at, title) VALUES (?, ?, ?)`,
		s.ID, at, p.WindowTitle); err != nil {
		return nil, errors.PersistenceFailed("open session", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.PersistenceFailed("open session", err)
	}
	s.TitleHistory[0].SessionID = s.ID
	return s, nil
}

// FindOpenSession returns the open session for key, or nil when none exists.
func (d *DB) FindOpenSession(ctx context.Context, key models.SessionKey) (*models.TrackingSession, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM tracking_sessions s
		WHERE s.rule_id = ? AND s.process_id = ? AND s.process_start_time = ? AND s.stopped_at IS NULL`,
		key.RuleID, key.ProcessID, key.ProcessStartTime)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.PersistenceFailed("find open session", err)
	}
	return s, nil
}

// AppendTitle records a title change on an open session.
func (d *DB) AppendTitle(ctx context.Context, sessionID string, at int64, title string) error {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO title_changes (session_id, changed_at, title)
		SELECT id, ?, ? FROM tracking_sessions WHERE id = ? AND stopped_at IS NULL`,
		at, title, sessionID)
	if err != nil {
		return errors.PersistenceFailed("append title", err)
	}
	return expectRow(res, "open session", sessionID)
}

// CloseSession stops an open session.
func (d *DB) CloseSession(ctx context.Context, sessionID string, at int64) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE tracking_sessions SET stopped_at = ? WHERE id = ? AND stopped_at IS NULL`, at, sessionID)
	if err != nil {
		return errors.PersistenceFailed("close session", err)
	}
	return expectRow(res, "open session", sessionID)
}

// CloseAllOpen stops every open session at the given time and returns how
// many were closed.
func (d *DB) CloseAllOpen(ctx context.Context, at int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE tracking_sessions SET stopped_at = MAX(?, started_at) WHERE stopped_at IS NULL`, at)
	if err != nil {
		return 0, errors.PersistenceFailed("close all sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.PersistenceFailed("close all sessions", err)
	}
	return n, nil
}

// CloseProcessSessions stops every open session of one process instance,
// whatever rule opened it.
func (d *DB) CloseProcessSessions(ctx context.Context, processID int, processStartTime int64, at int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `UPDATE tracking_sessions SET stopped_at = MAX(?, started_at)
		WHERE process_id = ? AND process_start_time = ? AND stopped_at IS NULL`,
		at, processID, processStartTime)
	if err != nil {
		return 0, errors.PersistenceFailed("close process sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.PersistenceFailed("close process sessions", err)
	}
	return n, nil
}

// CloseStale stops sessions left open by an unclean shutdown at their last
// recorded title change, the last moment they were known to be running.
func (d *DB) CloseStale(ctx context.Context) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `UPDATE tracking_sessions
		SET stopped_at = COALESCE(
			(SELECT MAX(changed_at) FROM title_changes WHERE session_id = tracking_sessions.id),
			started_at)
		WHERE stopped_at IS NULL`)
	if err != nil {
		return 0, errors.PersistenceFailed("close stale sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.PersistenceFailed("close stale sessions", err)
	}
	return n, nil
}

// OpenSessions returns every open session ordered by insertion.
func (d *DB) OpenSessions(ctx context.Context) ([]models.TrackingSession, error) {
	views, err := d.querySessions(ctx, `WHERE s.stopped_at IS NULL`)
	if err != nil {
		return nil, err
	}
	out := make([]models.TrackingSession, len(views))
	for i := range views {
		out[i] = views[i].TrackingSession
	}
	return out, nil
}

// DeleteGroupData removes a group's sessions and their title history. The
// group and its rules are kept.
func (d *DB) DeleteGroupData(ctx context.Context, groupID int64) (int64, error) {
	if _, err := d.GetGroup(ctx, groupID); err != nil {
		return 0, err
	}
	res, err := d.sql.ExecContext(ctx, `DELETE FROM tracking_sessions WHERE group_id = ?`, groupID)
	if err != nil {
		return 0, errors.PersistenceFailed("delete group data", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.PersistenceFailed("delete group data", err)
	}
	return n, nil
}

// ListSessions returns the sessions of a group (all groups when groupID is 0)
// in insertion order, each with its rule and full title history.
func (d *DB) ListSessions(ctx context.Context, groupID int64) ([]models.SessionView, error) {
	if groupID == 0 {
		return d.querySessions(ctx, ``)
	}
	return d.querySessions(ctx, `WHERE s.group_id = ?`, groupID)
}

func (d *DB) querySessions(ctx context.Context, where string, args ...interface{}) ([]models.SessionView, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+sessionColumns+`, r.type, r.pattern
		FROM tracking_sessions s
		LEFT JOIN rules r ON r.id = s.rule_id
		`+where+` ORDER BY s.seq`, args...)
	if err != nil {
		return nil, errors.PersistenceFailed("list sessions", err)
	}

	var views []models.SessionView
	index := map[string]int{}
	for rows.Next() {
		var v models.SessionView
		var stopped sql.NullInt64
		var ruleType, pattern sql.NullString
		if err := rows.Scan(&v.ID, &v.Seq, &v.RuleID, &v.GroupID, &v.ProcessID, &v.ProcessStartTime,
			&v.Executable, &v.StartedAt, &stopped, &ruleType, &pattern); err != nil {
			rows.Close()
			return nil, errors.PersistenceFailed("scan session", err)
		}
		if stopped.Valid {
			at := stopped.Int64
			v.StoppedAt = &at
		}
		v.RuleType = models.RuleType(ruleType.String)
		v.RulePattern = pattern.String
		index[v.ID] = len(views)
		views = append(views, v)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, errors.PersistenceFailed("list sessions", err)
	}
	if len(views) == 0 {
		return views, nil
	}

	titleRows, err := d.sql.QueryContext(ctx, `SELECT t.session_id, t.changed_at, t.title
		FROM title_changes t
		JOIN tracking_sessions s ON s.id = t.session_id
		`+where+` ORDER BY t.changed_at, t.id`, args...)
	if err != nil {
		return nil, errors.PersistenceFailed("list title changes", err)
	}
	defer titleRows.Close()

	for titleRows.Next() {
		var tc models.TitleChange
		if err := titleRows.Scan(&tc.SessionID, &tc.ChangedAt, &tc.Title); err != nil {
			return nil, errors.PersistenceFailed("scan title change", err)
		}
		if i, ok := index[tc.SessionID]; ok {
			views[i].TitleHistory = append(views[i].TitleHistory, tc)
		}
	}
	if err := titleRows.Err(); err != nil {
		return nil, errors.PersistenceFailed("list title changes", err)
	}
	return views, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.TrackingSession, error) {
	var s models.TrackingSession
	var stopped sql.NullInt64
	if err := row.Scan(&s.ID, &s.Seq, &s.RuleID, &s.GroupID, &s.ProcessID, &s.ProcessStartTime,
		&s.Executable, &s.StartedAt, &stopped); err != nil {
		return nil, err
	}
	if stopped.Valid {
		at := stopped.Int64
		s.StoppedAt = &at
	}
	return &s, nil
}

func sessionKeyString(ruleID int64, p models.ProcessRecord) string {
	return fmt.Sprintf("rule=%d pid=%d start=%d", ruleID, p.ID, p.StartTime)
}
