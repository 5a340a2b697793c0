package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/nanobot-ai/memory/internal/errs"
	"github.com/nanobot-ai/memory/internal/model"
	"github.com/nanobot-ai/memory/internal/norm"
)

// SQLiteStore implements Store using SQLite with an FTS5 lexical index,
// grounded on rcliao-agent-memory's SQLiteStore and the FTS5
// content-rowid/trigger pattern from HendryAvila-Hoofy's observation store.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// searchDeadline is the soft per-search timeout from spec.md §5.
const searchDeadline = 2 * time.Second

// busyRetryDelays implements the 3-attempt backoff-on-busy policy from
// spec.md §5 and §7 (50ms, 125ms, 250ms).
var busyRetryDelays = []time.Duration{50 * time.Millisecond, 125 * time.Millisecond, 250 * time.Millisecond}

// Open creates or opens a SQLite-backed store at dbPath.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New(errs.KindStoreUnavailable, fmt.Errorf("create db dir: %w", err))
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(2500)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, errs.New(errs.KindStoreUnavailable, fmt.Errorf("open db: %w", err))
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errs.New(errs.KindCorrupt, fmt.Errorf("migrate: %w", err))
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		scope_key    TEXT NOT NULL,
		text         TEXT NOT NULL,
		text_norm    TEXT NOT NULL,
		channel      TEXT,
		chat_id      TEXT,
		sender_id    TEXT,
		importance   REAL NOT NULL,
		confidence   REAL NOT NULL,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		last_seen_at TEXT NOT NULL,
		hit_count    INTEGER NOT NULL DEFAULT 1,
		source       TEXT NOT NULL,
		expires_at   TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_dedupe ON memories(scope_key, kind, text_norm);
	CREATE INDEX IF NOT EXISTS idx_memories_scope ON memories(scope_key);
	CREATE INDEX IF NOT EXISTS idx_memories_kind ON memories(kind);
	CREATE INDEX IF NOT EXISTS idx_memories_expires ON memories(expires_at);

	CREATE TABLE IF NOT EXISTS memory_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		text,
		content=memories,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
			INSERT INTO memories_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
			INSERT INTO memories_fts(memories_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
			INSERT INTO memories_fts(memories_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO memories_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return err
		}
	}

	// Backfill FTS for any existing rows not yet indexed (upgrade path).
	s.db.Exec(`INSERT OR IGNORE INTO memories_fts(rowid, text) SELECT rowid, text FROM memories`)

	return nil
}

// withBusyRetry retries fn up to len(busyRetryDelays) additional times when
// the underlying error looks like a SQLite busy/locked condition.
func withBusyRetry(fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isBusyErr(err) || attempt >= len(busyRetryDelays) {
			return err
		}
		time.Sleep(busyRetryDelays[attempt])
	}
}

func isBusyErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// Upsert performs the atomic insert-or-merge described in §4.1: a single
// INSERT ... ON CONFLICT DO UPDATE statement makes the dedupe key
// linearizable without a separate read step. hit_count==1 on return
// discriminates an insert from a merge.
func (s *SQLiteStore) Upsert(ctx context.Context, e model.Entry) (model.Entry, model.UpsertOutcome, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	now := e.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	textNorm := norm.Text(e.Text)

	const q = `
		INSERT INTO memories (
			id, kind, scope_key, text, text_norm, channel, chat_id, sender_id,
			importance, confidence, created_at, updated_at, last_seen_at,
			hit_count, source, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(scope_key, kind, text_norm) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			updated_at   = excluded.updated_at,
			hit_count    = memories.hit_count + 1,
			importance   = MAX(memories.importance, excluded.importance)
		RETURNING id, kind, scope_key, text, channel, chat_id, sender_id,
			importance, confidence, created_at, updated_at, last_seen_at,
			hit_count, source, expires_at
	`

	var out model.Entry
	err := withBusyRetry(func() error {
		row := s.db.QueryRowContext(ctx, q,
			e.ID, string(e.Kind), e.ScopeKey, e.Text, textNorm, e.Channel, e.ChatID, e.SenderID,
			e.Importance, e.Confidence,
			e.CreatedAt.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
			string(e.Source), e.ExpiresAt.Format(time.RFC3339Nano),
		)
		var kind, source, createdAt, updatedAt, lastSeenAt, expiresAt string
		if err := row.Scan(
			&out.ID, &kind, &out.ScopeKey, &out.Text, &out.Channel, &out.ChatID, &out.SenderID,
			&out.Importance, &out.Confidence, &createdAt, &updatedAt, &lastSeenAt,
			&out.HitCount, &source, &expiresAt,
		); err != nil {
			return err
		}
		out.Kind = model.Kind(kind)
		out.Source = model.Source(source)
		out.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out.LastSeenAt, _ = time.Parse(time.RFC3339Nano, lastSeenAt)
		out.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
		return nil
	})
	if err != nil {
		return model.Entry{}, "", errs.New(errs.KindStoreBusy, err)
	}

	outcome := model.OutcomeInserted
	if out.HitCount > 1 {
		outcome = model.OutcomeMerged
	}
	return out, outcome, nil
}

// sanitizeFTS quotes each token so user text containing FTS5 operators
// (-, ", *, AND/OR/NOT) cannot produce a MATCH syntax error, grounded on
// HendryAvila-Hoofy's sanitizeFTS. Terms are joined with OR: a query built
// from several cue words (e.g. "tailwind preference") should surface an
// entry matching just one of them, with bm25 then ranking the
// better-matching row higher, rather than requiring every term present.
func sanitizeFTS(query string) string {
	fields := strings.Fields(query)
	var terms []string
	for _, w := range fields {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		terms = append(terms, `"`+w+`"`)
	}
	if len(terms) == 0 {
		return ""
	}
	return strings.Join(terms, " OR ")
}

// Search runs a lexical FTS5 query scoped to the given scope keys and
// kinds, returning SQLite's bm25 rank negated so higher means more
// relevant (spec.md §4.1, §9).
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Scored, error) {
	k := p.K
	if k <= 0 {
		k = 20
	}

	ftsQuery := sanitizeFTS(p.Query)
	if ftsQuery == "" || len(p.ScopeKeys) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchDeadline)
	defer cancel()

	var b strings.Builder
	b.WriteString(`
		SELECT m.id, m.kind, m.scope_key, m.text, m.channel, m.chat_id, m.sender_id,
		       m.importance, m.confidence, m.created_at, m.updated_at, m.last_seen_at,
		       m.hit_count, m.source, m.expires_at, fts.rank
		FROM memories_fts fts
		JOIN memories m ON m.rowid = fts.rowid
		WHERE memories_fts MATCH ?
	`)
	args := []interface{}{ftsQuery}

	b.WriteString(" AND m.scope_key IN (" + placeholders(len(p.ScopeKeys)) + ")")
	for _, sk := range p.ScopeKeys {
		args = append(args, sk)
	}

	if len(p.Kinds) > 0 {
		b.WriteString(" AND m.kind IN (" + placeholders(len(p.Kinds)) + ")")
		for _, kind := range p.Kinds {
			args = append(args, string(kind))
		}
	}

	b.WriteString(" ORDER BY fts.rank LIMIT ?")
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil // soft deadline exceeded: treat as empty (a miss)
		}
		return nil, errs.New(errs.KindStoreUnavailable, err)
	}
	defer rows.Close()

	var results []model.Scored
	for rows.Next() {
		var e model.Entry
		var kind, source, createdAt, updatedAt, lastSeenAt, expiresAt string
		var rank float64
		if err := rows.Scan(
			&e.ID, &kind, &e.ScopeKey, &e.Text, &e.Channel, &e.ChatID, &e.SenderID,
			&e.Importance, &e.Confidence, &createdAt, &updatedAt, &lastSeenAt,
			&e.HitCount, &source, &expiresAt, &rank,
		); err != nil {
			return nil, err
		}
		e.Kind = model.Kind(kind)
		e.Source = model.Source(source)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		e.LastSeenAt, _ = time.Parse(time.RFC3339Nano, lastSeenAt)
		e.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
		results = append(results, model.Scored{Entry: e, Score: -rank})
	}
	return results, rows.Err()
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ",")
}

// Prune deletes rows per PruneParams within a single transaction, keeping
// the FTS index consistent via the delete trigger (I3, I5, P5).
func (s *SQLiteStore) Prune(ctx context.Context, p PruneParams) (int, error) {
	var where []string
	var args []interface{}

	if p.ExpiredOnly {
		where = append(where, "expires_at < ?")
		args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	}
	if p.OlderThanDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.OlderThanDays).Format(time.RFC3339Nano)
		where = append(where, "created_at < ?")
		args = append(args, cutoff)
	}
	if len(where) == 0 {
		return 0, nil
	}
	clause := strings.Join(where, " OR ")

	if p.DryRun {
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE "+clause, args...).Scan(&count)
		return count, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.New(errs.KindStoreBusy, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM memories WHERE "+clause, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Reindex rebuilds the FTS index from the canonical table, or (probeOnly)
// just reports whether the two are already consistent (P6).
func (s *SQLiteStore) Reindex(ctx context.Context, probeOnly bool) (bool, error) {
	var canonical, indexed int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&canonical); err != nil {
		return false, errs.New(errs.KindStoreUnavailable, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories_fts`).Scan(&indexed); err != nil {
		return false, errs.New(errs.KindStoreUnavailable, err)
	}
	consistent := canonical == indexed
	if probeOnly {
		return consistent, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errs.New(errs.KindStoreBusy, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO memories_fts(memories_fts) VALUES('delete-all')`); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO memories_fts(rowid, text) SELECT rowid, text FROM memories`); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// Stats returns aggregate counters for the operator `memory status` surface.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{DBPath: s.path, EntriesByKind: map[model.Kind]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalEntries); err != nil {
		return st, errs.New(errs.KindStoreUnavailable, err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT scope_key) FROM memories`).Scan(&st.ScopeCount); err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM memories GROUP BY kind`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return st, err
		}
		st.EntriesByKind[model.Kind(kind)] = count
	}
	return st, nil
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM memory_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
