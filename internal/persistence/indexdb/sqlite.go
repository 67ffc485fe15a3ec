package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"brickgrid.ai/internal/sim/catalogs"
	"brickgrid.ai/internal/sim/grid"
	"brickgrid.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read-model of the audit and tick streams, keyed
// by run so several runs can share one database. Writes are queued to a
// single writer goroutine and dropped when the queue is full; the JSONL logs
// remain the source of truth.
type SQLiteIndex struct {
	db     *sql.DB
	run    string
	logger *log.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick  atomic.Uint64
	dropAudit atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
)

func (k reqKind) String() string {
	if k == reqTick {
		return "tick"
	}
	return "audit"
}

type req struct {
	kind reqKind

	tick  grid.TickLogEntry
	audit grid.AuditEntry
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	DropTickTotal  uint64
	DropAuditTotal uint64
}

// Options configures an index handle.
type Options struct {
	// Run names the run this handle writes. Opening with a run name discards
	// the rows an earlier run of the same name left behind. Read-only
	// handles leave it empty.
	Run string
	// Queue is the writer queue capacity; zero means 65536.
	Queue  int
	Logger *log.Logger
}

const schemaVersion = "2"

func OpenSQLite(path string, opts Options) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if opts.Queue <= 0 {
		opts.Queue = 65536
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := setup(db, opts.Run); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:     db,
		run:    opts.Run,
		logger: opts.Logger,
		ch:     make(chan req, opts.Queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func setup(db *sql.DB, run string) error {
	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := migrate(db); err != nil {
		return err
	}
	if run == "" {
		return nil
	}
	for _, table := range []string{"ticks", "audits"} {
		if _, err := db.Exec(`DELETE FROM `+table+` WHERE run = ?`, run); err != nil {
			return fmt.Errorf("reset run %s: %w", run, err)
		}
	}
	return nil
}

// migrate creates the schema. Tick and audit rows from a database written
// before runs were tracked cannot be attributed, so they are dropped.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		return err
	}
	var have string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&have)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if have != schemaVersion {
		for _, table := range []string{"ticks", "audits"} {
			if _, err := db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
				return err
			}
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			held INTEGER NOT NULL,
			placed INTEGER NOT NULL,
			previews INTEGER NOT NULL,
			no_target INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			run TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			object TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			level INTEGER NOT NULL,
			y INTEGER NOT NULL,
			dir TEXT,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_object ON audits(object, run, tick);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry grid.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry grid.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropAuditTotal: s.dropAudit.Load(),
	}
}

// UpsertCatalogs records the block catalog and the applied tuning with their
// digests.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AuditRow is an indexed audit entry.
type AuditRow struct {
	Run    string
	Tick   uint64
	Seq    int
	Action string
	Pos    [3]int
	Dir    string
	Reason string
}

// History returns the indexed audit entries of one object in run and tick
// order. An empty run matches every run.
func (s *SQLiteIndex) History(ctx context.Context, run, object string) ([]AuditRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run, tick, seq, action, x, level, y, COALESCE(dir,''), COALESCE(reason,'')
		 FROM audits WHERE object = ? AND (? = '' OR run = ?)
		 ORDER BY run, tick, seq`, object, run, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		var tick int64
		if err := rows.Scan(&r.Run, &tick, &r.Seq, &r.Action, &r.Pos[0], &r.Pos[1], &r.Pos[2], &r.Dir, &r.Reason); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	b := &batch{db: s.db, run: s.run, maxOps: 2000, maxWait: 2 * time.Second}
	for r := range s.ch {
		if err := b.add(r); err != nil {
			s.logger.Warn("index write failed", "run", s.run, "kind", r.kind, "err", err)
			if n := b.abort(); n > 0 {
				s.logger.Warn("index batch discarded", "run", s.run, "entries", n)
			}
			continue
		}
		if b.due() {
			if err := b.flush(); err != nil {
				s.logger.Warn("index commit failed", "run", s.run, "err", err)
			}
		}
	}
	if err := b.flush(); err != nil {
		s.logger.Warn("index commit failed", "run", s.run, "err", err)
	}
}

// batch groups index writes of one run into transactions.
type batch struct {
	db      *sql.DB
	run     string
	maxOps  int
	maxWait time.Duration

	tx      *sql.Tx
	ops     int
	started time.Time

	// Audits carry no sequence of their own; entries are numbered within
	// their tick in arrival order.
	seqTick uint64
	seq     int
}

func (b *batch) add(r req) error {
	if b.tx == nil {
		tx, err := b.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		b.tx, b.ops, b.started = tx, 0, time.Now()
	}
	var err error
	switch r.kind {
	case reqTick:
		err = b.addTick(r.tick)
	case reqAudit:
		err = b.addAudit(r.audit)
	default:
		err = fmt.Errorf("unknown request kind %d", r.kind)
	}
	if err != nil {
		return err
	}
	b.ops++
	return nil
}

func (b *batch) addTick(t grid.TickLogEntry) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = b.tx.Exec(
		`INSERT INTO ticks(run,tick,digest,held,placed,previews,no_target,dropped,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`,
		b.run, int64(t.Tick), t.Digest, t.Held, t.Placed, t.Previews, t.NoTarget, len(t.Dropped), string(raw),
	)
	return err
}

func (b *batch) addAudit(a grid.AuditEntry) error {
	if a.Tick != b.seqTick {
		b.seqTick, b.seq = a.Tick, 0
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if _, err := b.tx.Exec(
		`INSERT INTO audits(run,tick,seq,object,action,x,level,y,dir,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		b.run, int64(a.Tick), b.seq, a.Object, a.Action,
		a.Pos[0], a.Pos[1], a.Pos[2],
		a.Dir, a.Reason, string(raw),
	); err != nil {
		return err
	}
	b.seq++
	return nil
}

func (b *batch) due() bool {
	return b.tx != nil && (b.ops >= b.maxOps || time.Since(b.started) >= b.maxWait)
}

func (b *batch) flush() error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Commit()
	b.tx, b.ops = nil, 0
	return err
}

// abort rolls back the open transaction and reports how many queued writes
// it held.
func (b *batch) abort() int {
	if b.tx == nil {
		return 0
	}
	n := b.ops
	_ = b.tx.Rollback()
	b.tx, b.ops = nil, 0
	return n
}
