package model

// Snapshot is everything one user owns, as served by GET /data.
// Every slice is non-nil so it encodes as [] rather than null.
type Snapshot struct {
	Tasks    []Task         `json:"tasks"`
	Logs     []TaskLog      `json:"logs"`
	Todos    []Todo         `json:"todos"`
	Expenses []Expense      `json:"expenses"`
	Journal  []JournalEntry `json:"journal"`
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Tasks:    []Task{},
		Logs:     []TaskLog{},
		Todos:    []Todo{},
		Expenses: []Expense{},
		Journal:  []JournalEntry{},
	}
}

// Add files a record under its collection. It reports false for a record
// type the snapshot does not know.
func (s *Snapshot) Add(rec Record) bool {
	switch r := rec.(type) {
	case *Task:
		s.Tasks = append(s.Tasks, *r)
	case *TaskLog:
		s.Logs = append(s.Logs, *r)
	case *Todo:
		s.Todos = append(s.Todos, *r)
	case *Expense:
		s.Expenses = append(s.Expenses, *r)
	case *JournalEntry:
		s.Journal = append(s.Journal, *r)
	default:
		return false
	}
	return true
}

func (s Snapshot) Len() int {
	return len(s.Tasks) + len(s.Logs) + len(s.Todos) + len(s.Expenses) + len(s.Journal)
}
