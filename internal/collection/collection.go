// Package collection is the closed registry of record collections.
//
// Each Kind carries a Schema describing its columns. The store generates
// its tables and queries from these schemas, and the HTTP layer resolves the
// {collection} path segment through Lookup, so adding a collection means
// adding one entry here plus its model type.
package collection

import (
	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/model"
)

type Kind int

const (
	Tasks Kind = iota
	Logs
	Todos
	Expenses
	Journal
)

// FieldType is the Go-side shape of a column. Bool and StringList have no
// portable SQL type and are stored as INTEGER 0/1 and JSON text.
type FieldType int

const (
	String FieldType = iota
	Bool
	Int
	Float
	StringList
)

type Field struct {
	JSON   string
	Column string
	Type   FieldType
}

// Index is an extra index on a collection table. Where, if set, makes it a
// partial index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Where   string
}

// Cascade names a child collection whose rows are removed together with a
// parent row. Column holds the parent's id in the child table.
type Cascade struct {
	Child  Kind
	Column string
}

type Schema struct {
	Name    string
	Fields  []Field
	Indexes []Index
	Cascade []Cascade
}

// Field order must match the Values/Targets order of the model type.
var schemas = [...]Schema{
	Tasks: {
		Name: "tasks",
		Fields: []Field{
			{"name", "name", String},
			{"reason", "reason", String},
			{"type", "type", String},
			{"category", "category", String},
			{"penalty", "penalty", String},
			{"startDate", "start_date", String},
			{"endDate", "end_date", String},
			{"createdAt", "created_at", String},
		},
		Cascade: []Cascade{{Child: Logs, Column: "task_id"}},
	},
	Logs: {
		Name: "logs",
		Fields: []Field{
			{"taskId", "task_id", String},
			{"date", "date", String},
			{"remark", "remark", String},
			{"images", "images", StringList},
			{"completed", "completed", Bool},
			{"timestamp", "timestamp", Int},
		},
		Indexes: []Index{
			{Name: "idx_logs_task", Columns: []string{"owner_id", "task_id"}},
			{
				Name:    "idx_logs_completed_per_day",
				Columns: []string{"owner_id", "task_id", "date"},
				Unique:  true,
				Where:   "completed = 1",
			},
		},
	},
	Todos: {
		Name: "todos",
		Fields: []Field{
			{"text", "text", String},
			{"dueDate", "due_date", String},
			{"completed", "completed", Bool},
		},
	},
	Expenses: {
		Name: "expenses",
		Fields: []Field{
			{"amount", "amount", Float},
			{"category", "category", String},
			{"description", "description", String},
			{"date", "date", String},
		},
		Indexes: []Index{
			{Name: "idx_expenses_date", Columns: []string{"owner_id", "date"}},
		},
	},
	Journal: {
		Name: "journal",
		Fields: []Field{
			{"subject", "subject", String},
			{"content", "content", String},
			{"mood", "mood", String},
			{"images", "images", StringList},
			{"date", "date", String},
			{"timestamp", "timestamp", Int},
		},
	},
}

// All returns every kind in registry order.
func All() []Kind {
	kinds := make([]Kind, len(schemas))
	for i := range schemas {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Lookup resolves a collection name from a request path.
func Lookup(name string) (Kind, error) {
	for i, s := range schemas {
		if s.Name == name {
			return Kind(i), nil
		}
	}
	return 0, apperror.NotFound("collection", name)
}

func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(schemas)
}

func (k Kind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return schemas[k].Name
}

func (k Kind) Schema() Schema {
	return schemas[k]
}

// New returns an empty record of the kind's model type.
func (k Kind) New() model.Record {
	switch k {
	case Tasks:
		return &model.Task{}
	case Logs:
		return &model.TaskLog{}
	case Todos:
		return &model.Todo{}
	case Expenses:
		return &model.Expense{}
	case Journal:
		return &model.JournalEntry{}
	}
	return nil
}

// Of returns the kind a record belongs to.
func Of(rec model.Record) (Kind, bool) {
	switch rec.(type) {
	case *model.Task:
		return Tasks, true
	case *model.TaskLog:
		return Logs, true
	case *model.Todo:
		return Todos, true
	case *model.Expense:
		return Expenses, true
	case *model.JournalEntry:
		return Journal, true
	}
	return 0, false
}

// Columns returns the non-key column names in schema order.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Column
	}
	return cols
}
