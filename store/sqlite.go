package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS source_data (
	id TEXT PRIMARY KEY,
	topic_name TEXT NOT NULL,
	file_path TEXT NOT NULL DEFAULT '',
	link TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_source_data_topic ON source_data(topic_name);
CREATE INDEX IF NOT EXISTS idx_source_data_hash ON source_data(topic_name, content_hash);

CREATE TABLE IF NOT EXISTS blueprints (
	id TEXT PRIMARY KEY,
	topic_name TEXT NOT NULL,
	source_ids TEXT NOT NULL DEFAULT '[]',
	plan TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blueprints_topic ON blueprints(topic_name, status);

CREATE TABLE IF NOT EXISTS triplets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_data_id TEXT NOT NULL,
	blueprint_id TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_triplets_source ON triplets(source_data_id);

CREATE TABLE IF NOT EXISTS memory_batches (
	source_data_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	topic_name TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, created_at);

CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	tool_name TEXT NOT NULL,
	success INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_seconds REAL NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);`

const (
	defaultSQLiteDir = ".loom"
	defaultSQLiteDB  = "loom.db"
)

// SQLite is a single-file store backing every persistence interface in
// this package.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultSQLitePath returns the default database path for CLI and daemon
// storage.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultSQLiteDir, defaultSQLiteDB), nil
}

// OpenSQLite opens (or creates) a SQLite-backed store at the given path.
func OpenSQLite(dsn string) (*SQLite, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("store: sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: sqlite set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: sqlite create schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("store: sqlite store is nil")
	}
	return nil
}

// CreateSource inserts a source data row, stamping timestamps and a
// pending status when absent.
func (s *SQLite) CreateSource(ctx context.Context, src *SourceData) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if src == nil || strings.TrimSpace(src.ID) == "" {
		return errors.New("store: source data id is required")
	}

	now := s.now().UTC()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	src.UpdatedAt = now
	if src.Status == "" {
		src.Status = SourceStatusPending
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO source_data (id, topic_name, file_path, link, original_filename, content_hash, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.TopicName, src.FilePath, src.Link, src.OriginalFilename,
		src.ContentHash, src.Status,
		src.CreatedAt.Format(time.RFC3339Nano), src.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: sqlite insert source: %w", err)
	}
	return nil
}

// GetSource returns a source data row by id.
func (s *SQLite) GetSource(ctx context.Context, id string) (SourceData, bool, error) {
	if err := s.guard(ctx); err != nil {
		return SourceData{}, false, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, topic_name, file_path, link, original_filename, content_hash, status, created_at, updated_at
FROM source_data WHERE id = ?`, id)

	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SourceData{}, false, nil
	}
	if err != nil {
		return SourceData{}, false, fmt.Errorf("store: sqlite get source: %w", err)
	}
	return src, true, nil
}

// SourcesByTopic returns all source data for a topic, oldest first.
func (s *SQLite) SourcesByTopic(ctx context.Context, topicName string) ([]SourceData, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, topic_name, file_path, link, original_filename, content_hash, status, created_at, updated_at
FROM source_data WHERE topic_name = ? ORDER BY created_at ASC`, topicName)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceData
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("store: sqlite scan source: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: sqlite source rows: %w", err)
	}
	return out, nil
}

// FindSourceByHash locates an existing document with matching content
// inside a topic.
func (s *SQLite) FindSourceByHash(ctx context.Context, topicName, contentHash string) (SourceData, bool, error) {
	if err := s.guard(ctx); err != nil {
		return SourceData{}, false, err
	}
	if contentHash == "" {
		return SourceData{}, false, nil
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, topic_name, file_path, link, original_filename, content_hash, status, created_at, updated_at
FROM source_data WHERE topic_name = ? AND content_hash = ?
ORDER BY created_at DESC LIMIT 1`, topicName, contentHash)

	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SourceData{}, false, nil
	}
	if err != nil {
		return SourceData{}, false, fmt.Errorf("store: sqlite find source by hash: %w", err)
	}
	return src, true, nil
}

// UpdateSourceStatus sets a source's lifecycle status.
func (s *SQLite) UpdateSourceStatus(ctx context.Context, id, status string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE source_data SET status = ?, updated_at = ? WHERE id = ?`,
		status, s.now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("store: sqlite update source status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: source %q not found", id)
	}
	return nil
}

// TopicHasSources reports whether any source data exists for the topic.
func (s *SQLite) TopicHasSources(ctx context.Context, topicName string) (bool, error) {
	if err := s.guard(ctx); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM source_data WHERE topic_name = ? LIMIT 1`, topicName).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: sqlite topic lookup: %w", err)
	}
	return true, nil
}

// CreateBlueprint inserts a blueprint row.
func (s *SQLite) CreateBlueprint(ctx context.Context, bp *Blueprint) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if bp == nil || strings.TrimSpace(bp.ID) == "" {
		return errors.New("store: blueprint id is required")
	}

	if bp.CreatedAt.IsZero() {
		bp.CreatedAt = s.now().UTC()
	}
	if bp.Status == "" {
		bp.Status = BlueprintStatusGenerating
	}
	sourceIDs, err := json.Marshal(bp.SourceIDs)
	if err != nil {
		return fmt.Errorf("store: sqlite encode blueprint sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO blueprints (id, topic_name, source_ids, plan, status, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		bp.ID, bp.TopicName, string(sourceIDs), bp.Plan, bp.Status,
		bp.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: sqlite insert blueprint: %w", err)
	}
	return nil
}

// GetBlueprint returns a blueprint by id.
func (s *SQLite) GetBlueprint(ctx context.Context, id string) (Blueprint, bool, error) {
	if err := s.guard(ctx); err != nil {
		return Blueprint{}, false, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, topic_name, source_ids, plan, status, created_at
FROM blueprints WHERE id = ?`, id)

	var (
		bp         Blueprint
		sourceIDs  string
		createdRaw string
	)
	if err := row.Scan(&bp.ID, &bp.TopicName, &sourceIDs, &bp.Plan, &bp.Status, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Blueprint{}, false, nil
		}
		return Blueprint{}, false, fmt.Errorf("store: sqlite get blueprint: %w", err)
	}
	if err := json.Unmarshal([]byte(sourceIDs), &bp.SourceIDs); err != nil {
		return Blueprint{}, false, fmt.Errorf("store: sqlite decode blueprint sources: %w", err)
	}
	bp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	return bp, true, nil
}

// UpdateBlueprintStatus sets a blueprint's lifecycle status.
func (s *SQLite) UpdateBlueprintStatus(ctx context.Context, id, status string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE blueprints SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("store: sqlite update blueprint status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: blueprint %q not found", id)
	}
	return nil
}

// LatestReadyBlueprintID returns the newest ready blueprint id for a
// topic, or empty string when the topic has no ready blueprint.
func (s *SQLite) LatestReadyBlueprintID(ctx context.Context, topicName string) (string, error) {
	if err := s.guard(ctx); err != nil {
		return "", err
	}

	var id string
	err := s.db.QueryRowContext(ctx, `
SELECT id FROM blueprints
WHERE topic_name = ? AND status = ?
ORDER BY created_at DESC LIMIT 1`, topicName, BlueprintStatusReady).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: sqlite latest blueprint: %w", err)
	}
	return id, nil
}

// AddTriplets inserts extracted triplets in one transaction.
func (s *SQLite) AddTriplets(ctx context.Context, triplets []Triplet) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if len(triplets) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: sqlite begin triplet insert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO triplets (source_data_id, blueprint_id, subject, predicate, object)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: sqlite prepare triplet insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range triplets {
		if _, err := stmt.ExecContext(ctx, t.SourceDataID, t.BlueprintID, t.Subject, t.Predicate, t.Object); err != nil {
			return fmt.Errorf("store: sqlite insert triplet: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: sqlite commit triplet insert: %w", err)
	}
	return nil
}

// TripletsBySource returns all triplets extracted from one source.
func (s *SQLite) TripletsBySource(ctx context.Context, sourceDataID string) ([]Triplet, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT source_data_id, blueprint_id, subject, predicate, object
FROM triplets WHERE source_data_id = ? ORDER BY id ASC`, sourceDataID)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite list triplets: %w", err)
	}
	defer rows.Close()

	var out []Triplet
	for rows.Next() {
		var t Triplet
		if err := rows.Scan(&t.SourceDataID, &t.BlueprintID, &t.Subject, &t.Predicate, &t.Object); err != nil {
			return nil, fmt.Errorf("store: sqlite scan triplet: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: sqlite triplet rows: %w", err)
	}
	return out, nil
}

// CountTripletsByTopic counts triplets across all of a topic's sources.
func (s *SQLite) CountTripletsByTopic(ctx context.Context, topicName string) (int, error) {
	if err := s.guard(ctx); err != nil {
		return 0, err
	}

	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM triplets
WHERE source_data_id IN (SELECT id FROM source_data WHERE topic_name = ?)`, topicName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: sqlite count triplets: %w", err)
	}
	return n, nil
}

// CreateMemoryBatch inserts a processed conversation batch.
func (s *SQLite) CreateMemoryBatch(ctx context.Context, batch *MemoryBatch) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if batch == nil || strings.TrimSpace(batch.SourceDataID) == "" {
		return errors.New("store: memory batch source id is required")
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO memory_batches (source_data_id, user_id, topic_name, message_count, created_at)
VALUES (?, ?, ?, ?, ?)`,
		batch.SourceDataID, batch.UserID, batch.TopicName, batch.MessageCount,
		batch.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: sqlite insert memory batch: %w", err)
	}
	return nil
}

// MemoryBatchBySource returns a processed batch by its source identifier.
func (s *SQLite) MemoryBatchBySource(ctx context.Context, sourceID string) (MemoryBatch, bool, error) {
	if err := s.guard(ctx); err != nil {
		return MemoryBatch{}, false, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT source_data_id, user_id, topic_name, message_count, created_at
FROM memory_batches WHERE source_data_id = ?`, sourceID)

	var (
		b          MemoryBatch
		createdRaw string
	)
	if err := row.Scan(&b.SourceDataID, &b.UserID, &b.TopicName, &b.MessageCount, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MemoryBatch{}, false, nil
		}
		return MemoryBatch{}, false, fmt.Errorf("store: sqlite get memory batch: %w", err)
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	return b, true, nil
}

// EnqueueTask adds a task to the processing queue.
func (s *SQLite) EnqueueTask(ctx context.Context, task *Task) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if task == nil || strings.TrimSpace(task.ID) == "" {
		return errors.New("store: task id is required")
	}

	now := s.now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = TaskStatusPending
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, payload, status, error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.Payload, task.Status, task.Error,
		task.CreatedAt.Format(time.RFC3339Nano), task.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: sqlite enqueue task: %w", err)
	}
	return nil
}

// PendingTasks returns up to limit pending tasks, oldest first.
func (s *SQLite) PendingTasks(ctx context.Context, limit int) ([]Task, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, payload, status, error, created_at, updated_at
FROM tasks WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		TaskStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite list pending tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var createdRaw, updatedRaw string
		if err := rows.Scan(&t.ID, &t.Payload, &t.Status, &t.Error, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("store: sqlite scan task: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
		t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedRaw)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: sqlite task rows: %w", err)
	}
	return out, nil
}

// MarkTask transitions a task's status, recording an error message when
// the task failed.
func (s *SQLite) MarkTask(ctx context.Context, id, status, errMsg string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, s.now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("store: sqlite mark task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: task %q not found", id)
	}
	return nil
}

// SaveExecution upserts one tracked tool execution.
func (s *SQLite) SaveExecution(ctx context.Context, rec ExecutionRecord) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("store: execution id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("store: sqlite encode execution metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO executions (id, tool_name, success, error, duration_seconds, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	success = excluded.success,
	error = excluded.error,
	duration_seconds = excluded.duration_seconds,
	metadata = excluded.metadata`,
		rec.ID, rec.ToolName, boolToInt(rec.Success), rec.Error,
		rec.DurationSeconds, string(metadata),
		rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: sqlite save execution: %w", err)
	}
	return nil
}

// GetExecution returns one execution record by id.
func (s *SQLite) GetExecution(ctx context.Context, id string) (ExecutionRecord, bool, error) {
	if err := s.guard(ctx); err != nil {
		return ExecutionRecord{}, false, err
	}

	row := s.db.QueryRowContext(ctx, `
SELECT id, tool_name, success, error, duration_seconds, metadata, created_at
FROM executions WHERE id = ?`, id)

	rec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ExecutionRecord{}, false, nil
	}
	if err != nil {
		return ExecutionRecord{}, false, fmt.Errorf("store: sqlite get execution: %w", err)
	}
	return rec, true, nil
}

// RecentExecutions returns the newest execution records, newest first.
func (s *SQLite) RecentExecutions(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, tool_name, success, error, duration_seconds, metadata, created_at
FROM executions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite list executions: %w", err)
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("store: sqlite scan execution: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: sqlite execution rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (SourceData, error) {
	var (
		src                    SourceData
		createdRaw, updatedRaw string
	)
	if err := row.Scan(&src.ID, &src.TopicName, &src.FilePath, &src.Link,
		&src.OriginalFilename, &src.ContentHash, &src.Status, &createdRaw, &updatedRaw); err != nil {
		return SourceData{}, err
	}
	src.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	src.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedRaw)
	return src, nil
}

func scanExecution(row rowScanner) (ExecutionRecord, error) {
	var (
		rec        ExecutionRecord
		success    int
		metadata   string
		createdRaw string
	)
	if err := row.Scan(&rec.ID, &rec.ToolName, &success, &rec.Error,
		&rec.DurationSeconds, &metadata, &createdRaw); err != nil {
		return ExecutionRecord{}, err
	}
	rec.Success = success != 0
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
			return ExecutionRecord{}, err
		}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ SourceStore    = (*SQLite)(nil)
	_ BlueprintStore = (*SQLite)(nil)
	_ GraphStore     = (*SQLite)(nil)
	_ MemoryStore    = (*SQLite)(nil)
	_ TaskStore      = (*SQLite)(nil)
	_ RecordStore    = (*SQLite)(nil)
)
