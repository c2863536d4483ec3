package handler

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/model"
	"github.com/sakif/life-tracker/internal/service"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	expenseSheet = "Expenses"
)

var expenseHeader = []string{"Date", "Category", "Description", "Amount", "ID"}

// ExportHandler serves downloadable copies of the caller's data. The routes
// accept ?token= so a plain link can trigger the download.
type ExportHandler struct {
	sync *service.SyncService
	resp *Responder
	now  func() time.Time
}

func NewExportHandler(sync *service.SyncService, resp *Responder) *ExportHandler {
	return &ExportHandler{sync: sync, resp: resp, now: time.Now}
}

// HandleExportJSON sends the whole snapshot as an attachment.
//
// HTTP: GET /export
func (h *ExportHandler) HandleExportJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		h.resp.Error(w, r, fmt.Errorf("encoding export: %w", err))
		return
	}
	h.attach(w, "application/json", h.filename("lifetracker", "json"), body)
}

// HandleExpensesCSV sends expenses as CSV, newest first.
//
// HTTP: GET /export/expenses.csv
func (h *ExportHandler) HandleExpensesCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(expenseHeader)
	for _, e := range sortedExpenses(snap.Expenses) {
		_ = cw.Write([]string{
			e.Date,
			e.Category,
			e.Description,
			strconv.FormatFloat(e.Amount, 'f', 2, 64),
			e.ID,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.resp.Error(w, r, fmt.Errorf("writing csv: %w", err))
		return
	}
	h.attach(w, contentTypeCSV, h.filename("expenses", "csv"), buf.Bytes())
}

// HandleExpensesXLSX sends expenses as a spreadsheet with a total row.
//
// HTTP: GET /export/expenses.xlsx
func (h *ExportHandler) HandleExpensesXLSX(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	buf, err := buildExpenseWorkbook(sortedExpenses(snap.Expenses))
	if err != nil {
		h.resp.Error(w, r, fmt.Errorf("building workbook: %w", err))
		return
	}
	h.attach(w, contentTypeXLSX, h.filename("expenses", "xlsx"), buf.Bytes())
}

func buildExpenseWorkbook(expenses []model.Expense) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than adding a second one.
	if err := f.SetSheetName(f.GetSheetName(0), expenseSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(expenseHeader))
	for i, v := range expenseHeader {
		header[i] = v
	}
	if err := f.SetSheetRow(expenseSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, e := range expenses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{e.Date, e.Category, e.Description, e.Amount, e.ID}
		if err := f.SetSheetRow(expenseSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	totalRow := len(expenses) + 2
	if err := f.SetCellValue(expenseSheet, fmt.Sprintf("C%d", totalRow), "Total"); err != nil {
		return nil, err
	}
	formula := "0"
	if len(expenses) > 0 {
		formula = fmt.Sprintf("SUM(D2:D%d)", totalRow-1)
	}
	if err := f.SetCellFormula(expenseSheet, fmt.Sprintf("D%d", totalRow), formula); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(expenseSheet, "A", "A", 12)
	_ = f.SetColWidth(expenseSheet, "B", "B", 15)
	_ = f.SetColWidth(expenseSheet, "C", "C", 30)
	_ = f.SetColWidth(expenseSheet, "D", "D", 12)
	_ = f.SetColWidth(expenseSheet, "E", "E", 24)

	return f.WriteToBuffer()
}

func (h *ExportHandler) snapshot(w http.ResponseWriter, r *http.Request) (model.Snapshot, bool) {
	owner, _ := auth.UserIDFromContext(r.Context())
	snap, err := h.sync.Snapshot(r.Context(), owner)
	if err != nil {
		h.resp.Error(w, r, err)
		return model.Snapshot{}, false
	}
	return snap, true
}

func (h *ExportHandler) filename(base, ext string) string {
	return fmt.Sprintf("%s_%s.%s", base, h.now().Format("20060102"), ext)
}

func (h *ExportHandler) attach(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// sortedExpenses orders by date descending, then id for a stable output.
func sortedExpenses(in []model.Expense) []model.Expense {
	out := slices.Clone(in)
	slices.SortFunc(out, func(a, b model.Expense) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
