// Package sqlite provides a SQLite-backed quest storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/neighborly/questboard/internal/platform/storage/sqlitemigrate"
	"github.com/neighborly/questboard/internal/quest/storage"
	"github.com/neighborly/questboard/internal/quest/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists quest state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite quest store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateQuest inserts one quest record. New quests are always open: the
// completed flag and answer columns are written from their zero values
// regardless of what the record carries.
func (s *Store) CreateQuest(ctx context.Context, record storage.QuestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	questID := strings.TrimSpace(record.ID)
	title := strings.TrimSpace(record.Title)
	description := strings.TrimSpace(record.Description)
	requester := strings.TrimSpace(record.Requester)
	sizeEstimate := strings.TrimSpace(record.SizeEstimate)
	if questID == "" {
		return fmt.Errorf("quest id is required")
	}
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if description == "" {
		return fmt.Errorf("description is required")
	}
	if requester == "" {
		return fmt.Errorf("requester is required")
	}
	if record.Lat < -90 || record.Lat > 90 || record.Lng < -180 || record.Lng > 180 {
		return fmt.Errorf("coordinate is out of range")
	}
	if record.TimeEstimateMinutes < 0 {
		return fmt.Errorf("time estimate must not be negative")
	}
	switch sizeEstimate {
	case "small", "medium", "large":
	default:
		return fmt.Errorf("size estimate %q is invalid", record.SizeEstimate)
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO quests (
		   id,
		   title,
		   description,
		   requester,
		   lat,
		   lng,
		   time_estimate_minutes,
		   size_estimate,
		   completed,
		   answer,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, '', ?)`,
		questID,
		title,
		description,
		requester,
		record.Lat,
		record.Lng,
		record.TimeEstimateMinutes,
		sizeEstimate,
		toMillis(createdAt),
	)
	if err != nil {
		if isQuestUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create quest: %w", err)
	}
	return nil
}

// GetQuest returns one quest by ID.
func (s *Store) GetQuest(ctx context.Context, id string) (storage.QuestRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.QuestRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.QuestRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.QuestRecord{}, fmt.Errorf("quest id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, title, description, requester, lat, lng, time_estimate_minutes, size_estimate, completed, answer, created_at
FROM quests
WHERE id = ?
`, id)
	record, err := scanQuestRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.QuestRecord{}, storage.ErrNotFound
		}
		return storage.QuestRecord{}, fmt.Errorf("get quest: %w", err)
	}
	return record, nil
}

// ListQuests returns all quest records. The result carries no ordering
// contract; callers impose their own.
func (s *Store) ListQuests(ctx context.Context) ([]storage.QuestRecord, error) {
	return s.listQuests(ctx, false)
}

// ListCompletedQuests returns all completed quest records.
func (s *Store) ListCompletedQuests(ctx context.Context) ([]storage.QuestRecord, error) {
	return s.listQuests(ctx, true)
}

func (s *Store) listQuests(ctx context.Context, completedOnly bool) ([]storage.QuestRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `
SELECT id, title, description, requester, lat, lng, time_estimate_minutes, size_estimate, completed, answer, created_at
FROM quests
`
	if completedOnly {
		query += "WHERE completed = 1\n"
	}

	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []storage.QuestRecord
	for rows.Next() {
		record, err := scanQuestRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan quest row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quest rows: %w", err)
	}
	return records, nil
}

// MarkCompleted transitions a quest to completed. Re-marking an already
// completed quest is a no-op, not an error.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	return s.updateQuest(ctx, id, "mark completed", `UPDATE quests SET completed = 1 WHERE id = ?`)
}

// SetAnswer overwrites the quest answer unconditionally.
func (s *Store) SetAnswer(ctx context.Context, id string, answer string) error {
	return s.updateQuest(ctx, id, "set answer", `UPDATE quests SET answer = ? WHERE id = ?`, answer)
}

// CompleteWithAnswer marks the quest completed and records the answer in a
// single statement, closing the transient window the two-step sequence
// leaves open.
func (s *Store) CompleteWithAnswer(ctx context.Context, id string, answer string) error {
	return s.updateQuest(ctx, id, "complete with answer", `UPDATE quests SET completed = 1, answer = ? WHERE id = ?`, answer)
}

func (s *Store) updateQuest(ctx context.Context, id string, op string, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("quest id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteQuest permanently removes a quest record. Identifiers are random
// 128-bit values, so a deleted id is never reassigned.
func (s *Store) DeleteQuest(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("quest id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM quests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quest: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete quest rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanQuestRow(scan func(dest ...any) error) (storage.QuestRecord, error) {
	var (
		record    storage.QuestRecord
		completed int64
		createdAt int64
	)
	if err := scan(
		&record.ID,
		&record.Title,
		&record.Description,
		&record.Requester,
		&record.Lat,
		&record.Lng,
		&record.TimeEstimateMinutes,
		&record.SizeEstimate,
		&completed,
		&record.Answer,
		&createdAt,
	); err != nil {
		return storage.QuestRecord{}, err
	}
	record.Completed = completed != 0
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func isQuestUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
