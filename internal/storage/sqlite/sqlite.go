// Package sqlite is the storage backend materializing every dynamic table as
// a STRICT SQLite table.
//
// Relation DDL and the matching tdb_catalog row are written in one
// transaction, so the catalog never names a table that does not exist.
//
// SQLite compares column names case-insensitively, so relation columns are
// stored under positional names (c0, c1, ...) in catalog order and the
// logical names only live in tdb_catalog.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/types"
	"github.com/tobsdb/dynatable/pkg"
)

const CATALOG_TABLE = "tdb_catalog"

// Prefix of the scratch table a relation is rebuilt into. It can never be
// the output of storage.RelationName.
const REBUILD_PREFIX = "tdb_rebuild_"

type Backend struct {
	write *sql.DB
	read  *sql.DB
}

// Open opens (creating when missing) the database at path and migrates it.
func Open(path string, read_max_open int) (*Backend, error) {
	write, err := openPool(path, poolWrite, 0)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(write); err != nil {
		_ = write.Close()
		return nil, err
	}

	read, err := openPool(path, poolRead, read_max_open)
	if err != nil {
		_ = write.Close()
		return nil, err
	}

	pkg.InfoLog("opened sqlite database", path)
	return &Backend{write: write, read: read}, nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// physicalName is the sqlite column holding the i-th relation column.
func physicalName(i int) string { return fmt.Sprintf("c%d", i) }

func columnDDL(i int, c storage.Column) (string, error) {
	name := quote(physicalName(i))
	switch c.Kind {
	case types.KindSerial:
		return name + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
	case types.KindText:
		return name + " TEXT", nil
	case types.KindReal:
		return name + " REAL", nil
	case types.KindBool:
		return fmt.Sprintf("%s INTEGER CHECK (%s IN (0, 1))", name, name), nil
	}
	return "", fmt.Errorf("%w: %s has no sqlite type for kind %d", storage.ErrTypeMismatch, c.Name, c.Kind)
}

func createTableSQL(name string, columns []storage.Column) (string, error) {
	defs := make([]string, 0, len(columns))
	for i, c := range columns {
		def, err := columnDDL(i, c)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s) STRICT", quote(name), strings.Join(defs, ", ")), nil
}

func tableExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", name).Scan(&n)
	return n > 0, err
}

func (b *Backend) withTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := b.write.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (b *Backend) Create(ctx context.Context, rel storage.Relation) error {
	ddl, err := createTableSQL(rel.Name, rel.Columns)
	if err != nil {
		return err
	}
	columns, err := json.Marshal(rel.Columns)
	if err != nil {
		return err
	}

	return b.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := tableExists(ctx, tx, rel.Name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", storage.ErrRelationExists, rel.Name)
		}

		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO "+CATALOG_TABLE+" (table_id, relation, columns) VALUES (?, ?, ?)",
			rel.TableID, rel.Name, string(columns))
		return err
	})
}

// Replace creates the new table under a scratch name, drops the original and
// renames the scratch table into place, all inside one transaction.
func (b *Backend) Replace(ctx context.Context, rel storage.Relation) error {
	scratch := REBUILD_PREFIX + rel.Name
	ddl, err := createTableSQL(scratch, rel.Columns)
	if err != nil {
		return err
	}
	columns, err := json.Marshal(rel.Columns)
	if err != nil {
		return err
	}

	return b.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := tableExists(ctx, tx, rel.Name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", storage.ErrRelationNotFound, rel.Name)
		}

		statements := []string{
			"DROP TABLE IF EXISTS " + quote(scratch),
			ddl,
			"DROP TABLE " + quote(rel.Name),
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(scratch), quote(rel.Name)),
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE "+CATALOG_TABLE+" SET columns = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE relation = ?",
			string(columns), rel.Name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s missing from catalog", storage.ErrRelationNotFound, rel.Name)
		}
		return nil
	})
}

func (b *Backend) Insert(ctx context.Context, rel storage.Relation, values storage.Row) (int64, error) {
	names := []string{}
	args := []any{}
	for name := range values {
		if _, ok := rel.Column(name); !ok {
			return 0, fmt.Errorf("%w: %s.%s", storage.ErrUnknownColumn, rel.Name, name)
		}
	}
	// relation order keeps the statement text stable
	for i, c := range rel.Columns {
		if !values.Has(c.Name) {
			continue
		}
		names = append(names, quote(physicalName(i)))
		args = append(args, values.Get(c.Name))
	}

	var stmt string
	if len(names) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(rel.Name))
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(rel.Name), strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
	}

	res, err := b.write.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (b *Backend) SelectAll(ctx context.Context, rel storage.Relation) ([]storage.Row, error) {
	identity := slices.IndexFunc(rel.Columns, func(c storage.Column) bool { return c.Kind == types.KindSerial })
	if identity < 0 {
		return nil, fmt.Errorf("relation %s has no identity column", rel.Name)
	}

	names := make([]string, len(rel.Columns))
	for i := range rel.Columns {
		names[i] = quote(physicalName(i))
	}
	rows, err := b.read.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(names, ", "), quote(rel.Name), quote(physicalName(identity))))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []storage.Row{}
	values := make([]any, len(rel.Columns))
	ptrs := make([]any, len(rel.Columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(storage.Row, len(rel.Columns))
		for i, c := range rel.Columns {
			v := values[i]
			if buf, ok := v.([]byte); ok {
				v = string(buf)
			}
			row.Set(c.Name, v)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (b *Backend) Count(ctx context.Context, rel storage.Relation) (int64, error) {
	var n int64
	err := b.read.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(rel.Name)).Scan(&n)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return 0, fmt.Errorf("%w: %s", storage.ErrRelationNotFound, rel.Name)
		}
		return 0, err
	}
	return n, nil
}

func (b *Backend) Relations(ctx context.Context) ([]storage.Relation, error) {
	rows, err := b.read.QueryContext(ctx,
		"SELECT table_id, relation, columns FROM "+CATALOG_TABLE+" ORDER BY created_at, table_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relations := []storage.Relation{}
	for rows.Next() {
		var rel storage.Relation
		var columns string
		if err := rows.Scan(&rel.TableID, &rel.Name, &columns); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(columns), &rel.Columns); err != nil {
			return nil, fmt.Errorf("decoding columns of %s: %w", rel.TableID, err)
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

func (b *Backend) Close() error {
	return errors.Join(b.read.Close(), b.write.Close())
}
