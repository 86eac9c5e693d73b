package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alphasafe/alphasafe-api/models"
	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet holding the intervention export
const ExportSheet = "Interventions"

// ExportHeader lists the exported columns
var ExportHeader = []string{
	"ID",
	"Client",
	"NIF",
	"Service",
	"Equipment Model",
	"Serial Number",
	"Status",
	"Technician",
	"Assistance Date",
	"Notes",
	"Created At",
}

var exportColumnWidths = []float64{8, 30, 12, 30, 22, 20, 14, 20, 18, 40, 18}

// ExportService renders intervention lists as XLSX workbooks for the
// billing office
type ExportService struct {
	interventions *InterventionService
}

// NewExportService creates an export service reading through interventions
func NewExportService(interventions *InterventionService) *ExportService {
	return &ExportService{interventions: interventions}
}

// Export returns the workbook of every intervention matching filter
func (s *ExportService) Export(ctx context.Context, filter InterventionFilter) ([]byte, error) {
	interventions, err := s.interventions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	content, err := InterventionsWorkbook(interventions)
	if err != nil {
		return nil, internal("export interventions", err)
	}
	return content, nil
}

// InterventionsWorkbook writes interventions to a single-sheet workbook
func InterventionsWorkbook(interventions []models.Intervention) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#C4A57B"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1A1612"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(ExportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(ExportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for col, width := range exportColumnWidths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column: %w", err)
		}
		if err := f.SetColWidth(ExportSheet, name, name, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, in := range interventions {
		row := []interface{}{
			in.ID,
			in.Client.Name,
			in.Client.NIF,
			strings.Join(in.ServiceType, ", "),
			in.EquipmentModel,
			in.SerialNumber,
			in.Status,
			in.Technician,
			formatOptionalTime(in.AssistanceDate),
			valueOrEmpty(in.Notes),
			in.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func valueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
