package services

import (
	"context"
	"strings"

	"equiptrack/internal/server/models"
	"equiptrack/internal/server/repositories/records"
)

// placeholder substitutes absent optional fields in export rows.
const placeholder = "N/A"

// StatsService aggregates records into summary counts and a flattened
// export projection. Pure reads, no side effects.
type StatsService struct {
	repo records.Repository
}

func NewStatsService(repo records.Repository) *StatsService {
	return &StatsService{repo: repo}
}

// Statistics is the aggregate counts object served by GET /statistics.
type Statistics struct {
	Total           int            `json:"total"`
	ByState         map[string]int `json:"byState"`
	ByWindowsUpdate map[string]int `json:"byWindowsUpdate"`
	ReviewedToday   int            `json:"reviewedToday"`
	WithProblems    int            `json:"withProblems"`
	WithLocation    int            `json:"withLocation"`
	WithImages      int            `json:"withImages"`
	TotalImages     int            `json:"totalImages"`
}

// Statistics aggregates over the full record set. An empty set yields all
// zero counts.
func (s *StatsService) Statistics(ctx context.Context) (*Statistics, error) {
	recs, err := s.repo.List(ctx, models.RecordFilter{})
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByState: map[string]int{
			models.StateOperational: 0,
			models.StateMaintenance: 0,
			models.StateDamaged:     0,
		},
		ByWindowsUpdate: map[string]int{
			models.WindowsUpdateYes: 0,
			models.WindowsUpdateNo:  0,
		},
	}

	today := timeNow()
	y, m, d := today.Date()

	for _, rec := range recs {
		stats.Total++
		stats.ByState[rec.State]++
		stats.ByWindowsUpdate[rec.WindowsUpdateApplied]++

		ry, rm, rd := rec.ReviewedAt.Date()
		if ry == y && rm == m && rd == d {
			stats.ReviewedToday++
		}
		if strings.TrimSpace(rec.DetectedProblems) != "" {
			stats.WithProblems++
		}
		if rec.HasLocation() {
			stats.WithLocation++
		}
		if len(rec.Images) > 0 {
			stats.WithImages++
		}
		stats.TotalImages += len(rec.Images)
	}

	return stats, nil
}

// ExportRow is one record flattened into human-labeled columns.
type ExportRow struct {
	ID               int64  `json:"id"`
	EquipoID         string `json:"equipoId"`
	SerialNumber     string `json:"serialNumber"`
	PlacaML          string `json:"placaMl"`
	Responsible      string `json:"responsible"`
	Role             string `json:"role"`
	Location         string `json:"location"`
	State            string `json:"state"`
	WindowsUpdate    string `json:"windowsUpdate"`
	Observations     string `json:"observations"`
	DetectedProblems string `json:"detectedProblems"`
	ImageTitles      string `json:"imageTitles"`
	ImageCount       int    `json:"imageCount"`
	ReviewedAt       string `json:"reviewedAt"`
	Reviewer         string `json:"reviewer"`
}

// Export projects every record into a flattened row: uppercased state,
// Yes/No labels, placeholder strings for absent optional fields and
// semicolon-joined image titles.
func (s *StatsService) Export(ctx context.Context) ([]ExportRow, error) {
	recs, err := s.repo.List(ctx, models.RecordFilter{})
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, exportRow(rec))
	}

	return rows, nil
}

func exportRow(rec *models.EquipmentRecord) ExportRow {
	titles := make([]string, 0, len(rec.Images))
	for i, img := range rec.Images {
		titles = append(titles, imageTitle(img.Title, i+1))
	}

	location := rec.ManualLocation
	if location == "" {
		location = rec.AutoAddress
	}

	windowsUpdate := "No"
	if rec.WindowsUpdateApplied == models.WindowsUpdateYes {
		windowsUpdate = "Yes"
	}

	return ExportRow{
		ID:               rec.ID,
		EquipoID:         rec.EquipoID,
		SerialNumber:     rec.SerialNumber,
		PlacaML:          orPlaceholder(rec.PlacaML),
		Responsible:      rec.Responsible,
		Role:             rec.Role,
		Location:         orPlaceholder(location),
		State:            strings.ToUpper(rec.State),
		WindowsUpdate:    windowsUpdate,
		Observations:     orPlaceholder(rec.Observations),
		DetectedProblems: orPlaceholder(rec.DetectedProblems),
		ImageTitles:      strings.Join(titles, "; "),
		ImageCount:       len(rec.Images),
		ReviewedAt:       rec.ReviewedAt.Format("2006-01-02 15:04"),
		Reviewer:         orPlaceholder(rec.Reviewer),
	}
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
