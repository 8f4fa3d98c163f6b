package output

import (
	"fmt"

	"github.com/alimgiray/gitemails/internal/models"
)

// Output formats
const (
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatSQLite = "sqlite"
)

// Sink is an append-only destination for output rows. It is not safe for
// concurrent use; rows are written by a single emitter.
type Sink interface {
	Write(row models.OutputRow) error
	Close() error
}

// Open creates the sink for format at path. runID tags rows in formats that
// can hold several crawls.
func Open(format, path, runID string) (Sink, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVSink(path)
	case FormatXLSX:
		return NewXLSXSink(path)
	case FormatSQLite:
		return NewSQLiteSink(path, runID)
	default:
		return nil, &models.ValidationError{Field: "format", Message: fmt.Sprintf("unknown output format %q", format)}
	}
}

// WritesIncrementally reports whether rows reach disk as they are written.
// An XLSX workbook is only saved on Close, so an aborted run keeps no rows.
func WritesIncrementally(format string) bool {
	return format != FormatXLSX
}
