package sqlstore

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/life-tracker/internal/collection"
)

type dialect struct {
	name       string
	driverName string
	pragmas    []string
	// lockSuffix turns a SELECT into a row lock. SQLite locks the whole
	// database for a write transaction and has no row locks.
	lockSuffix string
	columnType map[collection.FieldType]string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:       DriverSQLite,
		driverName: "sqlite",
		pragmas: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		},
		columnType: map[collection.FieldType]string{
			collection.String:     "TEXT NOT NULL DEFAULT ''",
			collection.Bool:       "INTEGER NOT NULL DEFAULT 0",
			collection.Int:        "INTEGER NOT NULL DEFAULT 0",
			collection.Float:      "REAL NOT NULL DEFAULT 0",
			collection.StringList: "TEXT NOT NULL DEFAULT '[]'",
		},
	},
	DriverPostgres: {
		name:       DriverPostgres,
		driverName: "pgx",
		lockSuffix: " FOR UPDATE",
		columnType: map[collection.FieldType]string{
			collection.String:     "TEXT NOT NULL DEFAULT ''",
			collection.Bool:       "INTEGER NOT NULL DEFAULT 0",
			collection.Int:        "BIGINT NOT NULL DEFAULT 0",
			collection.Float:      "DOUBLE PRECISION NOT NULL DEFAULT 0",
			collection.StringList: "TEXT NOT NULL DEFAULT '[]'",
		},
	},
}

// collectionDDL renders the table and index statements for one collection.
// Rows are keyed by (owner_id, id) so ids only need to be unique per owner.
func collectionDDL(d dialect, s collection.Schema) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.Name)
	b.WriteString("    owner_id TEXT NOT NULL,\n")
	b.WriteString("    id TEXT NOT NULL,\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "    %s %s,\n", f.Column, d.columnType[f.Type])
	}
	b.WriteString("    PRIMARY KEY (owner_id, id)\n)")

	stmts := []string{b.String()}
	for _, idx := range s.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmt := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, idx.Name, s.Name, strings.Join(idx.Columns, ", "))
		if idx.Where != "" {
			stmt += " WHERE " + idx.Where
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// parentRef is a reference from a child collection to its parent, derived
// from the parent's Cascade entry.
type parentRef struct {
	fieldIndex int    // index of the referencing field in the child schema
	json       string // wire name of that field
	parent     collection.Kind
	exists     string
}

type cascadeRef struct {
	child  collection.Kind
	delete string
}

type recordQueries struct {
	insert   string
	replace  string
	delete   string
	exists   string
	get      string
	getLock  string
	list     string
	reset    string
	parents  []parentRef
	cascades []cascadeRef
}

// buildQueries prepares the SQL text for every collection once. Table and
// column names come from the registry, never from request input.
func buildQueries(conn *sqlx.DB, d dialect) map[collection.Kind]recordQueries {
	out := make(map[collection.Kind]recordQueries)
	for _, k := range collection.All() {
		s := k.Schema()
		cols := s.Columns()

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+2), ", ")
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = ?"
		}
		selectCols := "id, " + strings.Join(cols, ", ")

		q := recordQueries{
			insert: conn.Rebind(fmt.Sprintf("INSERT INTO %s (owner_id, id, %s) VALUES (%s)",
				s.Name, strings.Join(cols, ", "), placeholders)),
			replace: conn.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE owner_id = ? AND id = ?",
				s.Name, strings.Join(sets, ", "))),
			delete: conn.Rebind(fmt.Sprintf("DELETE FROM %s WHERE owner_id = ? AND id = ?", s.Name)),
			exists: conn.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE owner_id = ? AND id = ?", s.Name)),
			get: conn.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE owner_id = ? AND id = ?",
				selectCols, s.Name)),
			getLock: conn.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE owner_id = ? AND id = ?%s",
				selectCols, s.Name, d.lockSuffix)),
			list:  conn.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE owner_id = ?", selectCols, s.Name)),
			reset: conn.Rebind(fmt.Sprintf("DELETE FROM %s WHERE owner_id = ?", s.Name)),
		}
		for _, c := range s.Cascade {
			q.cascades = append(q.cascades, cascadeRef{
				child: c.Child,
				delete: conn.Rebind(fmt.Sprintf("DELETE FROM %s WHERE owner_id = ? AND %s = ?",
					c.Child.Schema().Name, c.Column)),
			})
		}
		out[k] = q
	}

	// Second pass: a child checks its parent exists on every write.
	for _, parent := range collection.All() {
		for _, c := range parent.Schema().Cascade {
			childSchema := c.Child.Schema()
			for i, f := range childSchema.Fields {
				if f.Column != c.Column {
					continue
				}
				q := out[c.Child]
				q.parents = append(q.parents, parentRef{
					fieldIndex: i,
					json:       f.JSON,
					parent:     parent,
					exists:     out[parent].exists,
				})
				out[c.Child] = q
			}
		}
	}
	return out
}
