package testutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/btrtrace/internal/engine"
)

// ErrInjected is returned by operations a Faults configuration breaks.
var ErrInjected = errors.New("injected fault")

// Faults configures misbehaviour for a MemEngine. The zero value is a
// correct engine.
type Faults struct {
	// FailInsertAt makes the Nth Insert call (1-based) return ErrInjected.
	FailInsertAt int

	// DropInsertAt makes the Nth Insert call report success without storing
	// the key.
	DropInsertAt int

	// DropDeletes makes DeleteRow report success without deleting.
	DropDeletes bool

	// InexactMoveTo makes MoveTo never report an exact landing.
	InexactMoveTo bool

	// AlwaysExact makes MoveTo report an exact landing whenever it lands
	// on any row.
	AlwaysExact bool

	// FailScan makes Next under an IS lock return ErrInjected.
	FailScan bool

	// NotFoundAtEnd makes Next past the last key return ErrRecordNotFound
	// instead of ErrEndOfIndex.
	NotFoundAtEnd bool

	// FailCommit makes Commit of a transaction that wrote return ErrInjected.
	FailCommit bool
}

// MemEngine is an in-memory engine.Engine over sorted key slices.
//
// Transactions work on a private copy of each table they open and publish
// it on Commit. MemEngine is safe for concurrent use, though the workload
// only ever calls it from one goroutine.
type MemEngine struct {
	mu      sync.Mutex
	tables  map[string][]int64
	faults  Faults
	inserts int
}

var _ engine.Engine = (*MemEngine)(nil)

// NewMemEngine returns an empty engine with the given faults.
func NewMemEngine(f Faults) *MemEngine {
	return &MemEngine{tables: make(map[string][]int64), faults: f}
}

// HasTable reports whether name exists.
func (m *MemEngine) HasTable(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tables[name]
	return ok
}

// Keys returns a copy of the committed keys of name.
func (m *MemEngine) Keys(name string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tables[name])
}

// CreateTable implements engine.Engine.
func (m *MemEngine) CreateTable(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; ok {
		return engine.NewOpError("create table", name, engine.ErrTableExists)
	}
	m.tables[name] = []int64{}
	return nil
}

// DropTable implements engine.Engine.
func (m *MemEngine) DropTable(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; !ok {
		return engine.NewOpError("drop table", name, engine.ErrTableNotFound)
	}
	delete(m.tables, name)
	return nil
}

// Begin implements engine.Engine.
func (m *MemEngine) Begin(_ context.Context) (engine.Txn, error) {
	return &memTxn{eng: m, work: make(map[string]*[]int64)}, nil
}

type memTxn struct {
	eng   *MemEngine
	work  map[string]*[]int64
	wrote bool
	done  bool
}

func (t *memTxn) OpenCursor(_ context.Context, table string) (engine.Cursor, error) {
	if t.done {
		return nil, engine.NewOpError("open cursor", table, errors.New("transaction finished"))
	}
	rows, ok := t.work[table]
	if !ok {
		t.eng.mu.Lock()
		committed, exists := t.eng.tables[table]
		t.eng.mu.Unlock()
		if !exists {
			return nil, engine.NewOpError("open cursor", table, engine.ErrTableNotFound)
		}
		cp := slices.Clone(committed)
		rows = &cp
		t.work[table] = rows
	}
	return &memCursor{txn: t, table: table, rows: rows}, nil
}

func (t *memTxn) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	if t.wrote && t.eng.faults.FailCommit {
		return fmt.Errorf("commit: %w", ErrInjected)
	}
	t.eng.mu.Lock()
	defer t.eng.mu.Unlock()
	for name, rows := range t.work {
		if _, ok := t.eng.tables[name]; ok {
			t.eng.tables[name] = slices.Clone(*rows)
		}
	}
	t.done = true
	return nil
}

func (t *memTxn) Rollback() error {
	t.done = true
	return nil
}

type memCursor struct {
	txn    *memTxn
	table  string
	rows   *[]int64
	mode   engine.LockMode
	closed bool

	positioned bool
	current    int64
}

func (c *memCursor) faults() Faults {
	return c.txn.eng.faults
}

func (c *memCursor) Lock(mode engine.LockMode) error {
	if c.closed {
		return engine.NewOpError("lock", c.table, engine.ErrCursorClosed)
	}
	c.mode = mode
	return nil
}

func (c *memCursor) writable(op string) error {
	if c.closed {
		return engine.NewOpError(op, c.table, engine.ErrCursorClosed)
	}
	if c.mode != engine.LockIX {
		return engine.NewOpError(op, c.table, engine.ErrLockMode)
	}
	return nil
}

func (c *memCursor) Insert(_ context.Context, key int64) error {
	if err := c.writable("insert"); err != nil {
		return err
	}
	c.txn.eng.mu.Lock()
	c.txn.eng.inserts++
	n := c.txn.eng.inserts
	c.txn.eng.mu.Unlock()

	if n == c.faults().FailInsertAt {
		return engine.NewKeyError("insert", c.table, key, ErrInjected)
	}
	if n == c.faults().DropInsertAt {
		return nil
	}

	i, found := slices.BinarySearch(*c.rows, key)
	if found {
		return engine.NewKeyError("insert", c.table, key, engine.ErrDuplicateKey)
	}
	*c.rows = slices.Insert(*c.rows, i, key)
	c.txn.wrote = true
	return nil
}

// seekFrom positions on the first row at index >= i.
func (c *memCursor) seekFrom(i int) error {
	if i >= len(*c.rows) {
		c.positioned = false
		return engine.ErrEndOfIndex
	}
	c.positioned = true
	c.current = (*c.rows)[i]
	return nil
}

func (c *memCursor) MoveTo(_ context.Context, key int64) (bool, error) {
	if c.closed {
		return false, engine.NewKeyError("moveto", c.table, key, engine.ErrCursorClosed)
	}
	i, _ := slices.BinarySearch(*c.rows, key)
	if err := c.seekFrom(i); err != nil {
		return false, engine.NewKeyError("moveto", c.table, key, err)
	}
	switch {
	case c.faults().InexactMoveTo:
		return false, nil
	case c.faults().AlwaysExact:
		return true, nil
	}
	return c.current == key, nil
}

func (c *memCursor) First(_ context.Context) error {
	if c.closed {
		return engine.NewOpError("first", c.table, engine.ErrCursorClosed)
	}
	if err := c.seekFrom(0); err != nil {
		return engine.NewOpError("first", c.table, err)
	}
	return nil
}

func (c *memCursor) Next(_ context.Context) error {
	if c.closed {
		return engine.NewOpError("next", c.table, engine.ErrCursorClosed)
	}
	if c.mode == engine.LockIS && c.faults().FailScan {
		return engine.NewOpError("next", c.table, ErrInjected)
	}
	if !c.positioned {
		return engine.NewOpError("next", c.table, engine.ErrEndOfIndex)
	}
	i, found := slices.BinarySearch(*c.rows, c.current)
	if found {
		i++
	}
	if err := c.seekFrom(i); err != nil {
		if c.faults().NotFoundAtEnd {
			err = engine.ErrRecordNotFound
		}
		return engine.NewKeyError("next", c.table, c.current, err)
	}
	return nil
}

func (c *memCursor) ReadRow(_ context.Context) (int64, error) {
	if c.closed {
		return 0, engine.NewOpError("read", c.table, engine.ErrCursorClosed)
	}
	if !c.positioned {
		return 0, engine.NewOpError("read", c.table, engine.ErrRecordNotFound)
	}
	if _, found := slices.BinarySearch(*c.rows, c.current); !found {
		return 0, engine.NewKeyError("read", c.table, c.current, engine.ErrRecordNotFound)
	}
	return c.current, nil
}

func (c *memCursor) DeleteRow(_ context.Context) error {
	if err := c.writable("delete"); err != nil {
		return err
	}
	if !c.positioned {
		return engine.NewOpError("delete", c.table, engine.ErrRecordNotFound)
	}
	i, found := slices.BinarySearch(*c.rows, c.current)
	if !found {
		return engine.NewKeyError("delete", c.table, c.current, engine.ErrRecordNotFound)
	}
	if c.faults().DropDeletes {
		return nil
	}
	*c.rows = slices.Delete(*c.rows, i, i+1)
	c.txn.wrote = true
	return nil
}

func (c *memCursor) Close() error {
	c.closed = true
	c.positioned = false
	return nil
}
