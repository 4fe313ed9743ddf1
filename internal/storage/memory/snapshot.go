package memory

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/types"
	"github.com/tobsdb/dynatable/pkg"
)

const SNAPSHOT_FILE = "data.tdb"

type WriteSettings struct {
	WritePath     string
	InMem         bool
	WriteInterval time.Duration
}

func NewWriteSettings(write_path string, in_mem bool, write_interval_ms int) (*WriteSettings, error) {
	write_interval := time.Duration(write_interval_ms) * time.Millisecond
	if !in_mem {
		if len(write_path) == 0 {
			return nil, errors.New("Must either provide db path or use in-memory mode")
		}
		if write_interval <= 0 {
			return nil, fmt.Errorf("invalid write interval: %dms", write_interval_ms)
		}
	}
	return &WriteSettings{write_path, in_mem, write_interval}, nil
}

func (s *WriteSettings) File() string { return filepath.Join(s.WritePath, SNAPSHOT_FILE) }

type relationSnapshot struct {
	Relation  storage.Relation
	IdTracker int64
	Rows      []storage.Row
}

func init() {
	gob.Register(int64(0))
	gob.Register(float64(0.))
	gob.Register(string(""))
	gob.Register(bool(false))
}

// ReadFromFile loads the last snapshot. A missing snapshot is an empty backend.
func (b *Backend) ReadFromFile() error {
	buf, err := os.ReadFile(b.write_settings.File())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			pkg.WarnLog("no snapshot found at", b.write_settings.File())
			return nil
		}
		return err
	}
	if len(buf) == 0 {
		pkg.WarnLog("read empty snapshot file")
		return nil
	}

	var snapshots []relationSnapshot
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&snapshots); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	b.locker.Lock()
	defer b.locker.Unlock()
	for _, s := range snapshots {
		d := newRelationData(s.Relation)
		d.IdTracker = s.IdTracker
		for _, row := range s.Rows {
			for _, col := range s.Relation.Columns {
				if !row.Has(col.Name) && col.Kind != types.KindSerial {
					row.Set(col.Name, nil)
				}
			}
			d.Rows.Insert(pkg.NumToInt(row.Get(d.identity)), row)
		}
		b.relations.Set(s.Relation.Name, d)
	}

	pkg.InfoLog("loaded snapshot from file", b.write_settings.File())
	return nil
}

// WriteToFile writes a snapshot of every relation, replacing the previous one.
func (b *Backend) WriteToFile() error {
	if b.write_settings.InMem {
		return nil
	}

	pkg.DebugLog("writing snapshot to disk", b.write_settings.File())

	b.locker.RLock()
	snapshots := make([]relationSnapshot, 0, len(b.relations))
	for _, d := range b.relations {
		d.locker.RLock()
		s := relationSnapshot{Relation: d.relation, IdTracker: d.IdTracker}
		if iterCh, err := d.Rows.IterCh(); err == nil {
			for rec := range iterCh.Records() {
				row := storage.Row{}
				for k, v := range rec.Val {
					// gob has no use for the nil placeholders
					if v != nil {
						row.Set(k, v)
					}
				}
				s.Rows = append(s.Rows, row)
			}
			iterCh.Close()
		}
		d.locker.RUnlock()
		snapshots = append(snapshots, s)
	}
	b.locker.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshots); err != nil {
		return err
	}

	if err := os.MkdirAll(b.write_settings.WritePath, 0755); err != nil {
		return err
	}
	tmp := b.write_settings.File() + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, b.write_settings.File())
}
