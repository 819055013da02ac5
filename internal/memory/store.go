// Package memory persists preferences, tasks, and the conversation log
// in SQLite, and answers semantic recall queries over the log.
package memory

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"nixin/internal/embedding"
	"nixin/internal/logging"
)

// similarityFloor is the minimum score a conversation must reach before
// SemanticSearch reports it as a match.
const similarityFloor = 0.3

// Match is a semantic search hit.
type Match struct {
	Match string
	Score float64
}

// Store is the SQLite-backed memory. Writes are last-writer-wins; no
// transaction spans more than one statement.
type Store struct {
	db     *sql.DB
	path   string
	engine embedding.Engine // nil disables vector recall
}

// Open initializes the database at path. The embedding engine is
// optional: without one, semantic search degrades to lexical overlap.
func Open(path string, engine embedding.Engine) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, path: path, engine: engine}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("memory store opened at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			task TEXT NOT NULL,
			task_time TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			embedding BLOB,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// StorePreference upserts a preference. The newest value wins.
func (s *Store) StorePreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store preference %q: %w", key, err)
	}
	logging.StoreDebug("preference stored: %s", key)
	return nil
}

// GetPreference reads a preference; ok is false when the key is unset.
func (s *Store) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, true, nil
}

// AddTask appends a task with its (possibly sentinel) time string.
func (s *Store) AddTask(ctx context.Context, task, taskTime string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, task, task_time, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), task, taskTime, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	logging.StoreDebug("task stored: %q (%s)", task, taskTime)
	return nil
}

// AddConversation appends to the conversation log. When an embedding
// engine is configured the text is embedded inline; embedding failures
// degrade to a plain row so the write never fails for vector reasons.
func (s *Store) AddConversation(ctx context.Context, text string) error {
	var blob []byte
	if s.engine != nil {
		vec, err := s.engine.Embed(ctx, text)
		if err != nil {
			logging.StoreWarn("conversation embedding failed, storing without vector: %v", err)
		} else {
			blob = encodeVector(vec)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, text, embedding, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), text, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add conversation: %w", err)
	}
	return nil
}

// SemanticSearch returns the stored conversation most similar to the
// query, or nil when nothing clears the similarity floor. With an
// embedding engine it scores by cosine similarity over stored vectors;
// without one it falls back to word overlap.
func (s *Store) SemanticSearch(ctx context.Context, query string) (*Match, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SemanticSearch")
	defer timer.Stop()

	rows, err := s.db.QueryContext(ctx, `SELECT text, embedding FROM conversations`)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	type entry struct {
		text string
		vec  []float32
	}
	var entries []entry
	for rows.Next() {
		var e entry
		var blob []byte
		if err := rows.Scan(&e.text, &blob); err != nil {
			return nil, fmt.Errorf("semantic search: scan: %w", err)
		}
		if len(blob) > 0 {
			e.vec = decodeVector(blob)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	var queryVec []float32
	if s.engine != nil {
		queryVec, err = s.engine.Embed(ctx, query)
		if err != nil {
			logging.StoreWarn("query embedding failed, using lexical fallback: %v", err)
			queryVec = nil
		}
	}

	best := Match{Score: similarityFloor}
	found := false
	for _, e := range entries {
		var score float64
		if queryVec != nil && e.vec != nil {
			score, err = embedding.CosineSimilarity(queryVec, e.vec)
			if err != nil {
				continue
			}
		} else {
			score = lexicalOverlap(query, e.text)
		}
		if score > best.Score {
			best = Match{Match: e.text, Score: score}
			found = true
		}
	}
	if !found {
		return nil, nil
	}

	logging.StoreDebug("semantic search: %q -> %q (%.3f)", query, best.Match, best.Score)
	return &best, nil
}

// Snapshot is the full memory state for display.
type Snapshot struct {
	Preferences   map[string]string
	Tasks         []TaskRecord
	Conversations []string
}

// TaskRecord is one stored task.
type TaskRecord struct {
	Task      string
	Time      string
	CreatedAt string
}

// LoadSnapshot reads the three tables concurrently and returns the
// combined state, oldest first.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Preferences: make(map[string]string)}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences ORDER BY key`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				return err
			}
			snap.Preferences[k] = v
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT task, task_time, created_at FROM tasks ORDER BY created_at`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t TaskRecord
			if err := rows.Scan(&t.Task, &t.Time, &t.CreatedAt); err != nil {
				return err
			}
			snap.Tasks = append(snap.Tasks, t)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT text FROM conversations ORDER BY created_at`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var text string
			if err := rows.Scan(&text); err != nil {
				return err
			}
			snap.Conversations = append(snap.Conversations, text)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// lexicalOverlap scores two texts by shared lowercase words over the
// query's word count.
func lexicalOverlap(query, text string) float64 {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0
	}
	textWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		textWords[w] = struct{}{}
	}
	shared := 0
	for _, w := range queryWords {
		if _, ok := textWords[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(queryWords))
}

func encodeVector(vec []float32) []byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}

func decodeVector(blob []byte) []float32 {
	if len(blob)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil
	}
	return vec
}
