package output

import (
	"fmt"

	"github.com/alimgiray/gitemails/internal/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the rows
const SheetName = "Emails"

// XLSXSink streams rows into a workbook that is saved on Close
type XLSXSink struct {
	path   string
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

// NewXLSXSink creates a workbook with a header row
func NewXLSXSink(path string) (*XLSXSink, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		file.Close()
		return nil, err
	}

	stream, err := file.NewStreamWriter(SheetName)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	s := &XLSXSink{path: path, file: file, stream: stream}
	if err := s.writeRecord(models.Header); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func (s *XLSXSink) Write(row models.OutputRow) error {
	return s.writeRecord(row.Record())
}

func (s *XLSXSink) writeRecord(record []string) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}

	values := make([]interface{}, len(record))
	for i, v := range record {
		values[i] = v
	}
	return s.stream.SetRow(cell, values)
}

// Close flushes the stream and saves the workbook to disk
func (s *XLSXSink) Close() error {
	defer s.file.Close()

	if err := s.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush workbook: %w", err)
	}
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.path, err)
	}
	return nil
}
