// Package auditlog appends confirmed purchase lines to a flat CSV file that
// survives database restores and purges.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"purchaseledger/internal/model"
)

var header = []string{"purchase_id", "date", "provider", "item_name", "quantity", "unit_cost", "total_cost"}

// ErrNoLog is returned by Open when nothing has been logged yet.
var ErrNoLog = errors.New("audit log does not exist")

type Writer struct {
	path string
	mu   sync.Mutex
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string { return w.path }

// Append writes one row per line of a confirmed purchase. The header is only
// written when the file is created. Provider and Lines must be loaded.
func (w *Writer) Append(p *model.Purchase) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("auditlog: create dir: %w", err)
		}
	}

	_, statErr := os.Stat(w.path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("auditlog: open: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if isNew {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("auditlog: write header: %w", err)
		}
	}

	providerName := ""
	if p.Provider != nil {
		providerName = p.Provider.Name
	}
	for _, line := range p.Lines {
		if err := cw.Write([]string{
			p.ID.String(),
			p.Date.Format(time.RFC3339),
			providerName,
			line.CatalogItemName,
			line.Quantity.String(),
			line.UnitCost.String(),
			line.TotalCost.String(),
		}); err != nil {
			return fmt.Errorf("auditlog: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Open returns the log file for reading, or ErrNoLog.
func (w *Writer) Open() (*os.File, error) {
	f, err := os.Open(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoLog
	}
	return f, err
}
