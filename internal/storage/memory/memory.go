// Package memory is a storage backend keeping every relation in process memory,
// optionally snapshotted to disk on an interval.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	sorted "github.com/tobshub/go-sortedmap"

	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/types"
	"github.com/tobsdb/dynatable/pkg"
)

type relationData struct {
	locker   sync.RWMutex
	relation storage.Relation
	identity string

	IdTracker int64
	// Maps row id to its saved data
	Rows *sorted.SortedMap[int64, storage.Row]
}

func newRelationData(rel storage.Relation) *relationData {
	identity := ""
	if c, ok := rel.Identity(); ok {
		identity = c.Name
	}
	return &relationData{
		relation: rel,
		identity: identity,
		Rows: sorted.New[int64, storage.Row](0, func(a, b storage.Row) bool {
			return pkg.NumToInt(a.Get(identity)) < pkg.NumToInt(b.Get(identity))
		}),
	}
}

func (d *relationData) GetLocker() *sync.RWMutex { return &d.locker }

type Backend struct {
	locker sync.RWMutex
	// relation name -> data
	relations pkg.Map[string, *relationData]
	closed    bool

	write_settings *WriteSettings
	last_change    time.Time
	write_ticker   *time.Ticker
	done           chan struct{}
	wg             sync.WaitGroup
}

// New creates a memory backend. When write_settings asks for persistence the
// last snapshot is loaded and a writer goroutine is started; Close stops it.
func New(write_settings *WriteSettings) (*Backend, error) {
	if write_settings == nil {
		write_settings = &WriteSettings{InMem: true}
	}

	b := &Backend{
		relations:      pkg.Map[string, *relationData]{},
		write_settings: write_settings,
		last_change:    time.Now(),
		done:           make(chan struct{}),
	}

	if write_settings.InMem {
		return b, nil
	}

	if err := b.ReadFromFile(); err != nil {
		return nil, err
	}

	b.write_ticker = time.NewTicker(write_settings.WriteInterval)
	b.wg.Add(1)
	go b.writeLoop()
	return b, nil
}

func (b *Backend) GetLocker() *sync.RWMutex { return &b.locker }

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	last_write := time.Now()
	for {
		select {
		case <-b.done:
			return
		case <-b.write_ticker.C:
			var last_change time.Time
			pkg.RLockWrap(b, func() { last_change = b.last_change })
			if !last_change.After(last_write) {
				continue
			}
			if err := b.WriteToFile(); err != nil {
				pkg.ErrorLog("writing snapshot", err)
				continue
			}
			last_write = last_change
		}
	}
}

func (b *Backend) touch() { b.last_change = time.Now() }

func (b *Backend) relation(name string) (*relationData, error) {
	b.locker.RLock()
	defer b.locker.RUnlock()
	if b.closed {
		return nil, storage.ErrClosed
	}
	d := b.relations.Get(name)
	if d == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrRelationNotFound, name)
	}
	return d, nil
}

func (b *Backend) Create(ctx context.Context, rel storage.Relation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.locker.Lock()
	defer b.locker.Unlock()
	if b.closed {
		return storage.ErrClosed
	}
	if b.relations.Has(rel.Name) {
		return fmt.Errorf("%w: %s", storage.ErrRelationExists, rel.Name)
	}
	b.relations.Set(rel.Name, newRelationData(rel))
	b.touch()
	pkg.DebugLog("created relation", rel.Name)
	return nil
}

func (b *Backend) Replace(ctx context.Context, rel storage.Relation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.locker.Lock()
	defer b.locker.Unlock()
	if b.closed {
		return storage.ErrClosed
	}
	if !b.relations.Has(rel.Name) {
		return fmt.Errorf("%w: %s", storage.ErrRelationNotFound, rel.Name)
	}
	b.relations.Set(rel.Name, newRelationData(rel))
	b.touch()
	pkg.DebugLog("replaced relation", rel.Name)
	return nil
}

// checkValue enforces the column kind on a single value. nil is always accepted.
func checkValue(col storage.Column, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch col.Kind {
	case types.KindText:
		if v, ok := value.(string); ok {
			return v, nil
		}
	case types.KindReal:
		if v, ok := pkg.NumToFloat(value); ok {
			return v, nil
		}
	case types.KindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case types.KindSerial:
		return nil, fmt.Errorf("%w: %s is generated", storage.ErrTypeMismatch, col.Name)
	}
	return nil, fmt.Errorf("%w: %s %s got %T", storage.ErrTypeMismatch, col.Name, col.Kind, value)
}

func (b *Backend) Insert(ctx context.Context, rel storage.Relation, values storage.Row) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d, err := b.relation(rel.Name)
	if err != nil {
		return 0, err
	}

	row := storage.Row{}
	for _, col := range d.relation.Columns {
		if col.Kind != types.KindSerial {
			row.Set(col.Name, nil)
		}
	}
	for name, value := range values {
		col, ok := d.relation.Column(name)
		if !ok {
			return 0, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, rel.Name, name)
		}
		v, err := checkValue(col, value)
		if err != nil {
			return 0, err
		}
		row.Set(name, v)
	}

	var id int64
	pkg.LockWrap(d, func() {
		d.IdTracker++
		id = d.IdTracker
		if d.identity != "" {
			row.Set(d.identity, id)
		}
		d.Rows.Insert(id, row)
	})

	pkg.LockWrap(b, b.touch)
	return id, nil
}

func (b *Backend) SelectAll(ctx context.Context, rel storage.Relation) ([]storage.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := b.relation(rel.Name)
	if err != nil {
		return nil, err
	}

	d.locker.RLock()
	defer d.locker.RUnlock()

	rows := make([]storage.Row, 0, d.Rows.Len())
	iterCh, err := d.Rows.IterCh()
	if err != nil {
		// an empty map has nothing to iterate
		return rows, nil
	}
	defer iterCh.Close()

	for rec := range iterCh.Records() {
		row := make(storage.Row, len(rec.Val))
		for k, v := range rec.Val {
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (b *Backend) Count(ctx context.Context, rel storage.Relation) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d, err := b.relation(rel.Name)
	if err != nil {
		return 0, err
	}
	var n int
	pkg.RLockWrap(d, func() { n = d.Rows.Len() })
	return int64(n), nil
}

func (b *Backend) Relations(ctx context.Context) ([]storage.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.locker.RLock()
	defer b.locker.RUnlock()
	if b.closed {
		return nil, storage.ErrClosed
	}
	relations := make([]storage.Relation, 0, len(b.relations))
	for _, d := range b.relations {
		relations = append(relations, d.relation)
	}
	return relations, nil
}

func (b *Backend) Close() error {
	b.locker.Lock()
	if b.closed {
		b.locker.Unlock()
		return nil
	}
	b.closed = true
	b.locker.Unlock()

	if b.write_ticker != nil {
		b.write_ticker.Stop()
		close(b.done)
		b.wg.Wait()
	}
	return b.WriteToFile()
}
