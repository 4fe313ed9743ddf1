// Package storage defines the physical side of the engine: relations, the
// backend contract and the errors backends report.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/tobsdb/dynatable/internal/types"
	"github.com/tobsdb/dynatable/pkg"
)

const RELATION_PREFIX = "dynatable_"

// RelationName is the physical name of the relation backing table_id.
// Ids that only differ by case collide.
func RelationName(table_id string) string {
	return RELATION_PREFIX + strings.ToLower(table_id)
}

type Column struct {
	Name string     `json:"name"`
	Kind types.Kind `json:"kind"`
}

// Relation describes one physical relation, identity column first.
type Relation struct {
	TableID string   `json:"table_id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

func (r Relation) Column(name string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (r Relation) Identity() (Column, bool) {
	for _, c := range r.Columns {
		if c.Kind == types.KindSerial {
			return c, true
		}
	}
	return Column{}, false
}

// Maps column name to its stored value
type Row = pkg.Map[string, any]

var (
	ErrRelationExists   = errors.New("relation already exists")
	ErrRelationNotFound = errors.New("relation not found")
	ErrTypeMismatch     = errors.New("value does not match column type")
	ErrUnknownColumn    = errors.New("column does not exist")
	ErrClosed           = errors.New("backend is closed")
)

// Backend is a storage engine able to hold dynamically shaped relations.
//
// Create, Replace and Relations are schema operations. Insert, SelectAll and
// Count are data operations. Implementations must be safe for concurrent use.
type Backend interface {
	// Create materializes a new relation and records it in the backend's catalog.
	// Fails with ErrRelationExists when the physical name is taken.
	Create(ctx context.Context, rel Relation) error
	// Replace swaps the relation named rel.Name for a new empty one with rel's columns.
	// The old relation is only dropped once the new one exists, and the swap is atomic.
	Replace(ctx context.Context, rel Relation) error
	// Insert stores one row and returns its identity value.
	Insert(ctx context.Context, rel Relation, values Row) (int64, error)
	// SelectAll returns every row in ascending identity order.
	SelectAll(ctx context.Context, rel Relation) ([]Row, error)
	// Count does a full count of rel's rows.
	Count(ctx context.Context, rel Relation) (int64, error)
	// Relations lists the catalog so a registry can be rebuilt after a restart.
	Relations(ctx context.Context) ([]Relation, error)
	Close() error
}
