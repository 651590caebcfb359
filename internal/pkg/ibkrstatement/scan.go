// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibkrstatement

import (
	"encoding/csv"
	"sort"
	"strings"
)

// dataRowType is the row type cell value that marks a data row.
const dataRowType = "Data"

// RawRow is one tokenized statement line.
type RawRow []string

// Cell returns the trimmed cell at index i, or "" if the row is too short.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Section is a named statement section and the rows that belong to it.
//
// IBKR repeats a section's header when the column layout changes (e.g., one
// header per asset class), so a Section is a list of spans, each holding the
// header row that opened it and the data rows that followed.
type Section struct {
	// Name is the section name, the first cell of its header rows.
	Name string
	// Spans are the header-delimited spans of this section, in statement order.
	Spans []Span
}

// Span is one header row and the data rows that followed it.
type Span struct {
	// Header is the row that opened the span. It is not a data row.
	Header RawRow
	// Rows are the data rows of the span.
	Rows []RawRow
}

// Rows returns all data rows of the section across spans, in statement order.
func (s *Section) Rows() []RawRow {
	var rows []RawRow
	for _, span := range s.Spans {
		rows = append(rows, span.Rows...)
	}
	return rows
}

// Len returns the number of data rows in the section.
func (s *Section) Len() int {
	n := 0
	for _, span := range s.Spans {
		n += len(span.Rows)
	}
	return n
}

// Sections maps section names to sections.
//
// A section whose header was seen but that has no data rows is present with
// zero rows, so callers can tell "missing" apart from "empty".
type Sections map[string]*Section

// Lookup returns the first of the named sections that is present and has at
// least one data row.
func (s Sections) Lookup(names ...string) (*Section, bool) {
	for _, name := range names {
		if section, ok := s[name]; ok && section.Len() > 0 {
			return section, true
		}
	}
	return nil, false
}

// Names returns the sorted section names.
func (s Sections) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tokenize splits statement text into rows.
//
// Any line ending is accepted. Blank lines, lines the quote-aware tokenizer
// rejects, and lines with no cells are skipped. Quoted cells may contain
// commas and "" escapes. Cells are trimmed of surrounding whitespace.
func Tokenize(text string) []RawRow {
	var rows []RawRow
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, ok := tokenizeLine(line)
		if !ok || len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// ScanSections groups tokenized rows into sections.
//
// A row whose second cell is present and is not "Data" is a header: its
// first cell names the section, and the rows that follow belong to it until
// the next header. Rows before the first header are discarded. Scanning
// never fails; a statement with no headers yields an empty mapping.
func ScanSections(rows []RawRow) Sections {
	sections := make(Sections)
	var current *Section
	for _, row := range rows {
		if isSectionHeader(row) {
			name := row[0]
			section, ok := sections[name]
			if !ok {
				section = &Section{Name: name}
				sections[name] = section
			}
			section.Spans = append(section.Spans, Span{Header: row})
			current = section
			continue
		}
		if current == nil {
			continue
		}
		span := &current.Spans[len(current.Spans)-1]
		span.Rows = append(span.Rows, row)
	}
	return sections
}

// *** PRIVATE ***

func isSectionHeader(row RawRow) bool {
	return len(row) >= 2 && row[1] != "" && row[1] != dataRowType
}

// isDataRow reports whether the row is a data row of the named section.
func isDataRow(row RawRow, sectionName string) bool {
	return len(row) >= 2 && row[0] == sectionName && row[1] == dataRowType
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func tokenizeLine(line string) (RawRow, bool) {
	csvReader := csv.NewReader(strings.NewReader(line))
	// Allow variable number of fields per record (sections have different column counts).
	csvReader.FieldsPerRecord = -1
	// Tolerate stray quotes inside unquoted cells.
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	record, err := csvReader.Read()
	if err != nil {
		return nil, false
	}
	row := make(RawRow, len(record))
	for i, cell := range record {
		row[i] = strings.TrimSpace(cell)
	}
	return row, true
}
