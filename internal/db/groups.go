package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
)

// CreateGroup inserts a new group. Names are unique.
func (d *DB) CreateGroup(ctx context.Context, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "group name must not be empty")
	}

	g := &models.Group{Name: name, CreatedAt: nowMillis()}
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO groups (name, created_at) VALUES (?, ?)`, g.Name, g.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict("group", name)
		}
		return nil, errors.PersistenceFailed("create group", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return nil, errors.PersistenceFailed("create group", err)
	}
	return g, nil
}

// RenameGroup changes a group's name.
func (d *DB) RenameGroup(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "group name must not be empty")
	}
	res, err := d.sql.ExecContext(ctx, `UPDATE groups SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("group", name)
		}
		return errors.PersistenceFailed("rename group", err)
	}
	return expectRow(res, "group", id)
}

// DeleteGroup removes a group and, by cascade, its rules. Recorded sessions
// are left in place; use DeleteGroupData to drop them.
func (d *DB) DeleteGroup(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return errors.PersistenceFailed("delete group", err)
	}
	return expectRow(res, "group", id)
}

// SetGroupViewOffset stores the epoch-ms lower bound for a group's statistics.
// Zero clears it.
func (d *DB) SetGroupViewOffset(ctx context.Context, id int64, offset int64) error {
	if offset < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "view offset must not be negative")
	}
	res, err := d.sql.ExecContext(ctx, `UPDATE groups SET view_offset = ? WHERE id = ?`, offset, id)
	if err != nil {
		return errors.PersistenceFailed("set view offset", err)
	}
	return expectRow(res, "group", id)
}

// ListGroups returns all groups ordered by id.
func (d *DB) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, name, view_offset, created_at FROM groups ORDER BY id`)
	if err != nil {
		return nil, errors.PersistenceFailed("list groups", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.ViewOffset, &g.CreatedAt); err != nil {
			return nil, errors.PersistenceFailed("scan group", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.PersistenceFailed("list groups", err)
	}
	return groups, nil
}

// GetGroup returns one group by id.
func (d *DB) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT id, name, view_offset, created_at FROM groups WHERE id = ?`, id)
	return scanGroup(row, id)
}

// ResolveGroup finds a group by name, falling back to a numeric id.
func (d *DB) ResolveGroup(ctx context.Context, ref string) (*models.Group, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT id, name, view_offset, created_at FROM groups WHERE name = ?`, ref)
	g, err := scanGroup(row, ref)
	if err == nil || !errors.Is(err, errors.ErrCodeNotFound) {
		return g, err
	}
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		return d.GetGroup(ctx, id)
	}
	return nil, err
}

func scanGroup(row *sql.Row, ref interface{}) (*models.Group, error) {
	var g models.Group
	if err := row.Scan(&g.ID, &g.Name, &g.ViewOffset, &g.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("group", ref)
		}
		return nil, errors.PersistenceFailed("get group", err)
	}
	return &g, nil
}

func expectRow(res sql.Result, kind string, id interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.PersistenceFailed("rows affected", err)
	}
	if n == 0 {
		return errors.NotFound(kind, id)
	}
	return nil
}
