package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"

	resultsSheet = "CV Analysis"
	summarySheet = "Summary"
)

var exportHeader = []string{"CV Name", "Analysis", "Thread ID", "Message ID"}

// Export is a downloadable rendition of a result set.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders the session's results in the requested format.
func (s *AnalysisService) Export(ctx context.Context, sessionID, format string) (*Export, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatXLSX {
		return nil, NewErrUnsupportedExportFormat(format)
	}

	resultsID, rs, err := s.current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var data []byte
	var contentType string
	switch format {
	case ExportFormatXLSX:
		data, err = exportXLSX(rs)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		data, err = exportCSV(rs)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, fmt.Errorf("exporting results %s: %w", resultsID, err)
	}

	return &Export{
		Filename:    fmt.Sprintf("cv-analysis-%s.%s", resultsID, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func exportRow(item model.ResultItem) []string {
	return []string{item.Name, item.Analysis, item.ThreadID, item.MessageID}
}

func exportCSV(rs *model.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, item := range rs.Items {
		if err := w.Write(exportRow(item)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportXLSX(rs *model.ResultSet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(resultsSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	for i, item := range rs.Items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := exportRow(item)
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if rs.Summary != nil {
		if _, err := f.NewSheet(summarySheet); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(summarySheet, "A1", *rs.Summary); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
