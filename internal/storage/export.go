package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run    RunMetadata          `json:"run"`
	Series map[string][]float64 `json:"series"`
}

// ExportJSON writes a run's metadata and every series column.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	columns, rows, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}

	data := ExportData{Run: *meta, Series: make(map[string][]float64, len(columns))}
	for _, c := range columns {
		data.Series[c], _ = Column(columns, rows, c)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
