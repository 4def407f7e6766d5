package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteGridCSV writes one row per site. The header row is "site" followed by
// the sample times; each later row is the site index and its values.
func WriteGridCSV(w io.Writer, times []float64, rows [][]float64) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(times)+1)
	header = append(header, "site")
	for _, t := range times {
		header = append(header, formatFloat(t))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(times)+1)
	for i, row := range rows {
		if len(row) != len(times) {
			return fmt.Errorf("site %d has %d samples, want %d", i, len(row), len(times))
		}
		record[0] = strconv.Itoa(i)
		for k, v := range row {
			record[k+1] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadGridCSV(r io.Reader) ([]float64, [][]float64, error) {
	cr := csv.NewReader(r)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty grid file")
	}

	times, err := parseFloats(records[0][1:])
	if err != nil {
		return nil, nil, fmt.Errorf("header: %w", err)
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := parseFloats(record[1:])
		if err != nil {
			return nil, nil, fmt.Errorf("site %d: %w", i, err)
		}
		rows = append(rows, row)
	}

	return times, rows, nil
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
