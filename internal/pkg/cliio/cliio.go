// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package cliio provides output formatting for CLI commands (table, CSV, JSON).
package cliio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Format represents the output format for CLI commands.
type Format string

const (
	// FormatTable is the default table output format.
	FormatTable Format = "table"
	// FormatCSV is the CSV output format.
	FormatCSV Format = "csv"
	// FormatJSON is the JSON output format.
	FormatJSON Format = "json"
)

// ParseFormat parses a string into a Format, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(s))); format {
	case FormatTable, FormatCSV, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: table, csv, json", s)
	}
}

// Write writes rows as a table or CSV with a header row, or the objects as
// JSON, depending on the format.
func Write[O any](writer io.Writer, format Format, headers []string, rows [][]string, objects ...O) error {
	switch format {
	case FormatTable:
		return WriteTable(writer, headers, rows)
	case FormatCSV:
		return WriteCSVRecords(writer, Records(headers, rows))
	case FormatJSON:
		return WriteJSON(writer, objects...)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteTable writes tabular data to the writer using tabwriter for aligned columns.
func WriteTable(writer io.Writer, headers []string, rows [][]string) error {
	return writeTable(writer, headers, rows, nil)
}

// WriteTableWithTotals writes a table followed by a blank line and a totals row,
// all through the same tabwriter so columns align between data and totals.
func WriteTableWithTotals(writer io.Writer, headers []string, rows [][]string, totalsRow []string) error {
	return writeTable(writer, headers, rows, totalsRow)
}

// Records returns the headers followed by the rows.
func Records(headers []string, rows [][]string) [][]string {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, headers)
	return append(records, rows...)
}

// WriteCSVRecords writes CSV records to the writer.
func WriteCSVRecords(writer io.Writer, records [][]string) error {
	csvWriter := csv.NewWriter(writer)
	// WriteAll flushes.
	return csvWriter.WriteAll(records)
}

// WriteJSON writes objects as JSON with newlines between each object.
func WriteJSON[O any](writer io.Writer, objects ...O) error {
	encoder := json.NewEncoder(writer)
	for _, object := range objects {
		if err := encoder.Encode(object); err != nil {
			return err
		}
	}
	return nil
}

// *** PRIVATE ***

// writeTable writes the header and rows, then a blank separator line and the
// totals row if totalsRow is non-nil.
func writeTable(writer io.Writer, headers []string, rows [][]string, totalsRow []string) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	lines := make([][]string, 0, len(rows)+3)
	lines = append(lines, headers)
	lines = append(lines, rows...)
	if totalsRow != nil {
		// The blank line keeps its tabs to preserve column alignment.
		lines = append(lines, make([]string, len(headers)), totalsRow)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(tw, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
