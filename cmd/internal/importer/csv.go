// Package importer bulk-triggers registrations by posting register commands
// to a Discord webhook, one CSV row at a time.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one registration read from the spreadsheet.
type Row struct {
	Line   int
	Name   string
	Email  string
	TeamID string
}

// Command renders the register command the bot expects.
func (r Row) Command() string {
	return fmt.Sprintf("!register %s %s %s", r.Name, r.Email, r.TeamID)
}

// ReadFile reads rows from a CSV file on disk.
func ReadFile(path string) ([]Row, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads rows with a header naming the name, email and team columns in
// any order; extra columns are ignored. Rows missing any of the three values are
// dropped and counted in the second return value.
func ReadCSV(r io.Reader) ([]Row, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, ErrBadHeader
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	cols := map[string]int{"name": -1, "email": -1, "team": -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if idx, ok := cols[key]; ok && idx < 0 {
			cols[key] = i
		}
	}
	for _, idx := range cols {
		if idx < 0 {
			return nil, 0, ErrBadHeader
		}
	}

	var (
		rows    []Row
		dropped int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := Row{
			Line:   line,
			Name:   field(rec, cols["name"]),
			Email:  field(rec, cols["email"]),
			TeamID: field(rec, cols["team"]),
		}
		if row.Name == "" || row.Email == "" || row.TeamID == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, dropped, nil
}

func field(rec []string, idx int) string {
	if idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}
