// Copyright 2026 Peter Edge
//
// All rights reserved.

package cliio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for input, expected := range map[string]Format{
		"table": FormatTable,
		"CSV":   FormatCSV,
		" json": FormatJSON,
	} {
		format, err := ParseFormat(input)
		require.NoError(t, err)
		require.Equal(t, expected, format)
	}
	_, err := ParseFormat("yaml")
	require.ErrorContains(t, err, "unknown format")
}

func TestWriteTableWithTotals(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	require.NoError(t, WriteTableWithTotals(
		&buffer,
		[]string{"SYMBOL", "P&L"},
		[][]string{{"AAPL", "1"}, {"MSFT", "299.6"}},
		[]string{"TOTAL", "300.6"},
	))
	require.Equal(t, "SYMBOL  P&L\nAAPL    1\nMSFT    299.6\n        \nTOTAL   300.6\n", buffer.String())
}

func TestWrite(t *testing.T) {
	t.Parallel()
	type object struct {
		Symbol string `json:"symbol"`
	}
	headers := []string{"SYMBOL"}
	rows := [][]string{{"AAPL"}, {"BRK B"}}
	objects := []object{{Symbol: "AAPL"}, {Symbol: "BRK B"}}

	var buffer bytes.Buffer
	require.NoError(t, Write(&buffer, FormatTable, headers, rows, objects...))
	require.Equal(t, "SYMBOL\nAAPL\nBRK B\n", buffer.String())

	buffer.Reset()
	require.NoError(t, Write(&buffer, FormatCSV, headers, rows, objects...))
	require.Equal(t, "SYMBOL\nAAPL\nBRK B\n", buffer.String())

	buffer.Reset()
	require.NoError(t, Write(&buffer, FormatJSON, headers, rows, objects...))
	require.Equal(t, "{\"symbol\":\"AAPL\"}\n{\"symbol\":\"BRK B\"}\n", buffer.String())

	require.Error(t, Write(&buffer, Format("xml"), headers, rows, objects...))
}
