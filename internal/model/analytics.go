package model

// DayActivity is one point on the activity chart.
type DayActivity struct {
	Date      string  `json:"date"`
	Completed int     `json:"completed"`
	Spent     float64 `json:"spent"`
}

// FocusArea counts logs (completed or not) against tasks of one type.
type FocusArea struct {
	Type string `json:"type"`
	Logs int    `json:"logs"`
}

type Totals struct {
	Tasks          int     `json:"tasks"`
	Habits         int     `json:"habits"`
	Goals          int     `json:"goals"`
	Completions    int     `json:"completions"`
	OpenTodos      int     `json:"openTodos"`
	Spent          float64 `json:"spent"`
	JournalEntries int     `json:"journalEntries"`
}

type Analytics struct {
	From       string        `json:"from"`
	To         string        `json:"to"`
	Activity   []DayActivity `json:"activity"`
	FocusAreas []FocusArea   `json:"focusAreas"`
	Totals     Totals        `json:"totals"`
	Points     int64         `json:"points"`
}
