// Package simulate drives a running server the way a client would: it
// creates tables with random columns, fills them and reads them back.
package simulate

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tobsdb/dynatable/pkg"
	"github.com/tobsdb/dynatable/pkg/client"
)

const (
	MIN_TABLES     = 1
	MAX_TABLES     = 10
	ROWS_PER_TABLE = 5
)

type field struct {
	column client.Column
	value  func(r *rand.Rand) any
}

func pick[T any](r *rand.Rand, items ...T) T { return items[r.IntN(len(items))] }

var fields = []field{
	{client.Column{Name: "first_name", Type: "string"}, func(r *rand.Rand) any {
		return pick(r, "Anna", "Jan", "Maria", "Piotr", "Ewa", "Tomasz")
	}},
	{client.Column{Name: "last_name", Type: "string"}, func(r *rand.Rand) any {
		return pick(r, "Nowak", "Kowalski", "Wisniewski", "Wojcik", "Kaminski")
	}},
	{client.Column{Name: "email", Type: "string"}, func(r *rand.Rand) any {
		return fmt.Sprintf("user%d@example.com", r.IntN(10000))
	}},
	{client.Column{Name: "city", Type: "string"}, func(r *rand.Rand) any {
		return pick(r, "Krakow", "Warsaw", "Gdansk", "Poznan", "Wroclaw")
	}},
	{client.Column{Name: "age", Type: "number"}, func(r *rand.Rand) any { return float64(18 + r.IntN(60)) }},
	{client.Column{Name: "salary", Type: "number"}, func(r *rand.Rand) any {
		return float64(r.IntN(2000000)) / 100
	}},
	{client.Column{Name: "score", Type: "number"}, func(r *rand.Rand) any { return r.Float64() * 100 }},
	{client.Column{Name: "active", Type: "boolean"}, func(r *rand.Rand) any { return r.IntN(2) == 1 }},
	{client.Column{Name: "verified", Type: "boolean"}, func(r *rand.Rand) any { return r.IntN(2) == 1 }},
}

type Result struct {
	TableID string
	Columns []client.Column
	Rows    []client.Row
}

type Simulator struct {
	client *client.Client
	seed   uint64
}

func New(c *client.Client, seed uint64) *Simulator {
	return &Simulator{client: c, seed: seed}
}

// Table creates one table with a random subset of the known fields, adds
// ROWS_PER_TABLE rows and fetches them back.
func (s *Simulator) Table(ctx context.Context, r *rand.Rand) (Result, error) {
	chosen := make([]field, len(fields))
	copy(chosen, fields)
	r.Shuffle(len(chosen), func(i, j int) { chosen[i], chosen[j] = chosen[j], chosen[i] })
	chosen = chosen[:2+r.IntN(len(chosen)-1)]

	columns := pkg.MapSlice(chosen, func(f field) client.Column { return f.column })
	table_id, err := s.client.CreateTable(ctx, "", columns)
	if err != nil {
		return Result{}, fmt.Errorf("creating table: %w", err)
	}

	for i := 0; i < ROWS_PER_TABLE; i++ {
		row := client.Row{}
		for _, f := range chosen {
			row[f.column.Name] = f.value(r)
		}
		if _, err := s.client.AddRow(ctx, table_id, row); err != nil {
			return Result{}, fmt.Errorf("adding row to %s: %w", table_id, err)
		}
	}

	rows, err := s.client.GetRows(ctx, table_id)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", table_id, err)
	}
	return Result{TableID: table_id, Columns: columns, Rows: rows}, nil
}

// Run simulates n tables concurrently and returns the results in start order.
func (s *Simulator) Run(ctx context.Context, n int) ([]Result, error) {
	if n < MIN_TABLES || n > MAX_TABLES {
		return nil, fmt.Errorf("number of tables must be between %d and %d, got %d", MIN_TABLES, MAX_TABLES, n)
	}

	results := make([]Result, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		r := rand.New(rand.NewPCG(s.seed, uint64(i)))
		g.Go(func() error {
			res, err := s.Table(gctx, r)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Show prints a table's rows, one per line, in column order.
func Show(w io.Writer, res Result) {
	fmt.Fprintf(w, "%s\nTable: '%s'\nRows:\n", strings.Repeat("=", 25), res.TableID)
	for _, row := range res.Rows {
		values := []any{row["id"]}
		for _, c := range res.Columns {
			values = append(values, row[c.Name])
		}
		fmt.Fprintf(w, "  %v\n", values)
	}
	fmt.Fprintln(w)
}
