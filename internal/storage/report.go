package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"tailoring-bot/internal/catalog"
)

const (
	reportSheet = "Orders"
	reportFile  = "orders.xlsx"
)

var reportHeaders = []string{
	"Submission ID", "Gateway Order", "Payment ID", "Customer", "Email",
	"Phone", "Fabric", "Quantity", "Amount", "Currency", "Mock", "Paid At",
}

// Report keeps the running spreadsheet of confirmed orders.
type Report struct {
	dir string
	mu  sync.Mutex
}

func NewReport(dir string) *Report {
	return &Report{dir: dir}
}

// Path is the running report file.
func (r *Report) Path() string {
	return filepath.Join(r.dir, reportFile)
}

// Append adds one confirmed order to the running report, creating the file
// on first use.
func (r *Report) Append(order ConfirmedOrder) error {
	const operation = "storage.Report.Append"

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("%s: failed to create reports directory: %w", operation, err)
	}

	path := r.Path()
	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("%s: failed to open report: %w", operation, err)
		}
	} else {
		f, err = newReportFile()
		if err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
	}
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	if err != nil {
		return fmt.Errorf("%s: failed to read rows: %w", operation, err)
	}
	if err := writeOrderRow(f, len(rows)+1, order); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%s: failed to save Excel file: %w", operation, err)
	}
	return nil
}

// Export writes all orders into a fresh timestamped file and returns its path.
func (r *Report) Export(orders []ConfirmedOrder, now time.Time) (string, error) {
	const operation = "storage.Report.Export"

	f, err := newReportFile()
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	defer f.Close()

	for i, order := range orders {
		if err := writeOrderRow(f, i+2, order); err != nil {
			return "", fmt.Errorf("%s: %w", operation, err)
		}
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("%s: failed to create reports directory: %w", operation, err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("orders_%s.xlsx", now.Format("20060102_1504")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("%s: failed to save Excel file: %w", operation, err)
	}
	return path, nil
}

func newReportFile() (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	for col, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(reportSheet, cell, header)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	last, _ := excelize.CoordinatesToCellName(len(reportHeaders), 1)
	f.SetCellStyle(reportSheet, "A1", last, style)

	return f, nil
}

func writeOrderRow(f *excelize.File, row int, order ConfirmedOrder) error {
	phone := ""
	if order.Phone != nil {
		phone = *order.Phone
	}
	amount, _ := catalog.FromMinorUnits(order.Amount).Float64()

	data := []interface{}{
		order.SubmissionID,
		order.OrderID,
		order.PaymentID,
		order.FirstName + " " + order.LastName,
		order.Email,
		phone,
		order.FabricChoice,
		order.Quantity,
		amount,
		order.Currency,
		order.IsMock,
		order.PaidAt.Format("2006-01-02 15:04"),
	}
	for col, value := range data {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if err := f.SetCellValue(reportSheet, cell, value); err != nil {
			return fmt.Errorf("failed to write %s: %w", cell, err)
		}
	}
	return nil
}
