// Package engine owns the one *sql.DB handle per logical storage
// instance, the open/close state machine, and the transaction manager,
// wrapping modernc.org/sqlite (pure Go, no cgo) behind database/sql.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"

	"github.com/latticedb/sqlorm/errs"
)

// State is where a Connection sits in the closed/openTransient/
// openSticky lifecycle.
type State int

const (
	Closed State = iota
	OpenTransient
	OpenSticky
)

func (s State) String() string {
	switch s {
	case OpenTransient:
		return "openTransient"
	case OpenSticky:
		return "openSticky"
	default:
		return "closed"
	}
}

// Options configures connection-open behavior. It is a plain struct
// literal built via the With* functional options below, never a
// config-file/env loader: configuration loading is out of scope.
type Options struct {
	ForeignKeys bool
	Synchronous string // "", "OFF", "NORMAL", "FULL", "EXTRA"
	JournalMode string // "", "DELETE", "WAL", "MEMORY", ...
	BusyTimeout time.Duration
	OpenForever bool
	Collations  map[string]func(a, b string) int
	Limits      map[int]int
	OnOpen      func(*sql.Conn) error
	Logger      *zap.Logger
}

// ConnOption configures Options at Open time.
type ConnOption func(*Options)

func WithForeignKeys() ConnOption { return func(o *Options) { o.ForeignKeys = true } }

func WithSynchronous(mode string) ConnOption {
	return func(o *Options) { o.Synchronous = mode }
}

func WithJournalMode(mode string) ConnOption {
	return func(o *Options) { o.JournalMode = mode }
}

// WithBusyTimeout configures the engine's busy handler via PRAGMA
// busy_timeout.
func WithBusyTimeout(d time.Duration) ConnOption {
	return func(o *Options) { o.BusyTimeout = d }
}

// WithOpenForever keeps the connection sticky across operations even
// for on-disk databases outside a transaction.
func WithOpenForever() ConnOption { return func(o *Options) { o.OpenForever = true } }

// WithCollation registers a named collation sequence, applied on every
// open via the engine's create_collation hook.
func WithCollation(name string, fn func(a, b string) int) ConnOption {
	return func(o *Options) {
		if o.Collations == nil {
			o.Collations = make(map[string]func(a, b string) int)
		}
		o.Collations[name] = fn
	}
}

// WithLimit records one of the engine's per-connection limit counters
// (sqlite3_limit ids). database/sql gives no portable hook to push the
// value into the driver, so limits act as declared ceilings the facade
// honors itself: VariableNumberLimit caps InsertRange batch sizes.
func WithLimit(id, value int) ConnOption {
	return func(o *Options) {
		if o.Limits == nil {
			o.Limits = make(map[int]int)
		}
		o.Limits[id] = value
	}
}

// WithOnOpen installs a user callback run last in the onOpen sequence,
// given a raw *sql.Conn for anything not covered by the options above.
func WithOnOpen(fn func(*sql.Conn) error) ConnOption {
	return func(o *Options) { o.OnOpen = fn }
}

// WithLogger attaches a *zap.Logger; a nil/unset logger falls back to
// zap.NewNop(), never to the standard log package.
func WithLogger(l *zap.Logger) ConnOption {
	return func(o *Options) { o.Logger = l }
}

// LimitVariableNumber is SQLITE_LIMIT_VARIABLE_NUMBER, the one limit id
// the CRUD facade consults directly (to cap InsertRange batch size).
const LimitVariableNumber = 9

// DefaultVariableNumberLimit is SQLite's compiled-in default for
// SQLITE_LIMIT_VARIABLE_NUMBER, used when no WithLimit override is set.
const DefaultVariableNumberLimit = 32766

// modernc.org/sqlite registers collations process-wide for all future
// connections, not per handle, so each name is forwarded to the driver
// exactly once. Re-opening a Connection re-runs onOpen but skips names
// already registered.
var registeredCollations sync.Map

func registerCollation(name string, fn func(a, b string) int) error {
	if _, loaded := registeredCollations.LoadOrStore(name, struct{}{}); loaded {
		return nil
	}
	return sqlite.RegisterCollationUtf8(name, fn)
}

// Connection is the sole owner of one *sql.DB for one logical storage
// instance. Not safe for concurrent use by multiple goroutines for the
// same logical connection: callers needing concurrent access construct
// separate Connections.
type Connection struct {
	path string
	opts Options
	log  *zap.Logger

	mu    sync.Mutex
	db    *sql.DB
	state State
	tx    *sql.Tx
}

// Open constructs a Connection against path (a file path or ":memory:").
// The underlying *sql.DB is not opened until the first operation.
func Open(path string, opts ...ConnOption) *Connection {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Connection{path: path, opts: o, log: log}
}

func (c *Connection) isMemory() bool {
	return c.path == ":memory:" || strings.Contains(c.path, "mode=memory")
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) openLocked() error {
	if c.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", c.path)
	if err != nil {
		return &errs.ExecFailed{SQL: "open", Err: err}
	}
	db.SetMaxOpenConns(1)
	c.db = db
	if err := c.onOpen(); err != nil {
		db.Close()
		c.db = nil
		return err
	}
	c.log.Debug("connection opened", zap.String("path", c.path))
	return nil
}

func (c *Connection) onOpen() error {
	ctx := context.Background()
	if c.opts.ForeignKeys {
		if _, err := c.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return &errs.ExecFailed{SQL: "PRAGMA foreign_keys", Err: err}
		}
	}
	if c.opts.Synchronous != "" {
		stmt := "PRAGMA synchronous = " + c.opts.Synchronous
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return &errs.ExecFailed{SQL: stmt, Err: err}
		}
	}
	if c.opts.JournalMode != "" {
		stmt := "PRAGMA journal_mode = " + c.opts.JournalMode
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return &errs.ExecFailed{SQL: stmt, Err: err}
		}
	}
	if c.opts.BusyTimeout > 0 {
		stmt := fmt.Sprintf("PRAGMA busy_timeout = %d", c.opts.BusyTimeout.Milliseconds())
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return &errs.ExecFailed{SQL: stmt, Err: err}
		}
	}
	for name, fn := range c.opts.Collations {
		if err := registerCollation(name, fn); err != nil {
			return fmt.Errorf("engine: registering collation %q: %w", name, err)
		}
	}
	if c.opts.OnOpen != nil {
		conn, err := c.db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := c.opts.OnOpen(conn); err != nil {
			return err
		}
	}
	return nil
}

// VariableNumberLimit returns the configured SQLITE_LIMIT_VARIABLE_NUMBER,
// or SQLite's compiled-in default when none was set via WithLimit.
func (c *Connection) VariableNumberLimit() int {
	if v, ok := c.opts.Limits[LimitVariableNumber]; ok {
		return v
	}
	return DefaultVariableNumberLimit
}

func (c *Connection) closeLocked() {
	if c.db == nil {
		return
	}
	c.db.Close()
	c.db = nil
	c.state = Closed
	c.log.Debug("connection closed", zap.String("path", c.path))
}

// Close releases the underlying *sql.DB, if any. Safe to call on an
// already-closed connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.state = Closed
	return err
}

// Acquire opens the connection if necessary and returns the handle
// along with a release func. Release closes the connection again
// unless it is sticky (in-memory, inside a transaction, or opened
// forever). Every facade operation is expected to call Acquire once
// and defer the release.
func (c *Connection) Acquire() (*sql.DB, func(), error) {
	c.mu.Lock()
	wasClosed := c.db == nil
	if err := c.openLocked(); err != nil {
		c.mu.Unlock()
		return nil, nil, err
	}
	sticky := c.tx != nil || c.opts.OpenForever || c.isMemory()
	if wasClosed {
		if sticky {
			c.state = OpenSticky
		} else {
			c.state = OpenTransient
		}
	}
	db := c.db
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == OpenTransient && c.tx == nil {
			c.closeLocked()
		}
	}
	return db, release, nil
}

// BeginTransaction opens the connection (making it sticky) and starts a
// transaction. Fails if one is already active.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return &errs.CannotStartTransactionWithinTransaction{}
	}
	if err := c.openLocked(); err != nil {
		return err
	}
	c.state = OpenSticky
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &errs.ExecFailed{SQL: "BEGIN", Err: err}
	}
	c.tx = tx
	c.log.Debug("transaction began")
	return nil
}

// Tx returns the active transaction, or nil when none is in progress.
// Facade operations prefer Tx over Acquire when one is active, so
// statements run inside it rather than on the bare connection.
func (c *Connection) Tx() *sql.Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx
}

func (c *Connection) endTransaction(commit bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return &errs.NoActiveTransaction{}
	}
	var err error
	if commit {
		err = c.tx.Commit()
	} else {
		err = c.tx.Rollback()
	}
	c.tx = nil
	if !c.opts.OpenForever && !c.isMemory() {
		c.closeLocked()
	} else {
		c.state = OpenSticky
	}
	if err != nil {
		return &errs.ExecFailed{SQL: "COMMIT/ROLLBACK", Err: err}
	}
	return nil
}

// Commit ends the active transaction successfully.
func (c *Connection) Commit() error { return c.endTransaction(true) }

// Rollback ends the active transaction unsuccessfully.
func (c *Connection) Rollback() error { return c.endTransaction(false) }

// Transaction runs fn inside a new transaction: commits when fn returns
// true, rolls back when it returns false or panics (the panic is
// re-raised after the rollback).
func (c *Connection) Transaction(fn func() bool) (err error) {
	if err := c.BeginTransaction(context.Background()); err != nil {
		return err
	}
	committed := false
	defer func() {
		if r := recover(); r != nil {
			c.Rollback()
			panic(r)
		}
		if !committed {
			err = c.Rollback()
		}
	}()
	if fn() {
		err = c.Commit()
		committed = true
	}
	return err
}
