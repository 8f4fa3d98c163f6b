package output

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/alimgiray/gitemails/internal/models"
)

// CSVSink writes rows as UTF-8 CSV with a header row. Every row is flushed
// so that an aborted crawl leaves the rows emitted so far on disk.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink creates (or truncates) path and writes the header
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	s := &CSVSink{file: file, writer: csv.NewWriter(file)}
	if err := s.writeRecord(models.Header); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) Write(row models.OutputRow) error {
	return s.writeRecord(row.Record())
}

func (s *CSVSink) writeRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVSink) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
