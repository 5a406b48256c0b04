package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Series is a sampled trajectory: Times[i] pairs with every Columns[j][i].
type Series struct {
	Names   []string
	Times   []float64
	Columns [][]float64
}

// SaveSeries writes states.csv under simPath.
func SaveSeries(simPath string, series *Series) error {
	if len(series.Names) != len(series.Columns) {
		return fmt.Errorf("series: %d names for %d columns", len(series.Names), len(series.Columns))
	}
	for j, col := range series.Columns {
		if len(col) != len(series.Times) {
			return fmt.Errorf("series: column %s has %d samples, want %d", series.Names[j], len(col), len(series.Times))
		}
	}

	path := filepath.Join(simPath, SeriesFile)
	file, err := os.Create(path)
	if err != nil {
		return &StorageError{Op: "create series", Path: path, Err: err}
	}
	defer file.Close()

	w := csv.NewWriter(file)

	header := append([]string{"time"}, series.Names...)
	if err := w.Write(header); err != nil {
		return &StorageError{Op: "write series", Path: path, Err: err}
	}

	for i, t := range series.Times {
		row := make([]string, 0, len(series.Columns)+1)
		row = append(row, strconv.FormatFloat(t, 'f', 6, 64))
		for _, col := range series.Columns {
			row = append(row, strconv.FormatFloat(col[i], 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return &StorageError{Op: "write series", Path: path, Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return &StorageError{Op: "write series", Path: path, Err: err}
	}
	return nil
}

func LoadSeries(simPath string) (*Series, error) {
	path := filepath.Join(simPath, SeriesFile)
	file, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Op: "open series", Path: path, Err: err}
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, &StorageError{Op: "read series", Path: path, Err: err}
	}
	if len(records) == 0 {
		return &Series{}, nil
	}

	header := records[0]
	series := &Series{
		Names:   append([]string(nil), header[1:]...),
		Times:   make([]float64, 0, len(records)-1),
		Columns: make([][]float64, len(header)-1),
	}

	for i := 1; i < len(records); i++ {
		record := records[i]
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, &StorageError{Op: "parse series", Path: path, Err: fmt.Errorf("row %d: %w", i, err)}
		}
		series.Times = append(series.Times, t)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, &StorageError{Op: "parse series", Path: path, Err: fmt.Errorf("row %d: %w", i, err)}
			}
			series.Columns[j-1] = append(series.Columns[j-1], val)
		}
	}
	return series, nil
}

// Column returns the samples for a named column.
func (s *Series) Column(name string) ([]float64, bool) {
	for j, n := range s.Names {
		if n == name {
			return s.Columns[j], true
		}
	}
	return nil, false
}
