// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package importcmd implements the "import" command.
package importcmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalimport"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpath"
	"github.com/bufdev/ibjournal/internal/pkg/cliio"
	"github.com/bufdev/ibjournal/internal/pkg/mathdec"
	"github.com/bufdev/ibjournal/internal/standard/xos"
	"github.com/spf13/pflag"
)

// NewCommand returns a new import command that imports statements into the trade store.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " [path...]",
		Short: "Import activity statements into the trade store",
		Long: `Import IBKR Activity Statement CSVs into the trade store.

Each path is a statement file or a directory searched recursively for *.csv
files. With no paths, the statements directory of the ibjournal directory is
imported.

Trades that fail validation are reported and skipped. Trades that are already
stored are counted as duplicates, so re-importing a statement is safe.`,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the ibjournal directory containing ibjournal.yaml.
	Dir string
	// Format is the output format (table, json).
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.StringVar(&f.Format, ibjournalcmd.FormatFlagName, string(cliio.FormatTable), "Output format (table, json)")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := ibjournalcmd.ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	if format == cliio.FormatCSV {
		return appcmd.NewInvalidArgumentErrorf("unsupported format: %s", format)
	}
	journal, err := ibjournalcmd.OpenJournal(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer ibjournalcmd.CloseJournal(journal, &retErr)
	paths := make([]string, 0, container.NumArgs())
	for i := range container.NumArgs() {
		paths = append(paths, container.Arg(i))
	}
	if len(paths) == 0 {
		statementsDirPath := ibjournalpath.StatementsDirPath(journal.DirPath)
		if !xos.IsDir(statementsDirPath) {
			return appcmd.NewInvalidArgumentErrorf("no paths given and %s does not exist", statementsDirPath)
		}
		paths = append(paths, statementsDirPath)
	}
	result, importErr := journal.NewImporter(container).ImportPaths(ctx, paths)
	if result == nil {
		return importErr
	}
	writer := container.Stdout()
	if format == cliio.FormatJSON {
		if err := cliio.WriteJSON(writer, result); err != nil {
			return err
		}
		return importErr
	}
	if err := writeTables(writer, result); err != nil {
		return err
	}
	return importErr
}

func writeTables(writer io.Writer, result *ibjournalimport.Result) error {
	statementRows := make([][]string, 0, len(result.Statements))
	for _, statement := range result.Statements {
		statementRows = append(statementRows, []string{
			statement.Source,
			statement.AccountID,
			strconv.Itoa(statement.TradeCount),
			strconv.Itoa(statement.PositionCount),
			mathdec.ToString(statement.CumulativePnL),
		})
	}
	if err := cliio.WriteTable(
		writer,
		[]string{"STATEMENT", "ACCOUNT", "TRADES", "POSITIONS", "CUMULATIVE P&L"},
		statementRows,
	); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(
		writer,
		"\ninserted %d, duplicates %d, rejected %d, failed %d\n",
		result.Batch.SuccessCount,
		result.Batch.DuplicateCount,
		len(result.Rejections),
		len(result.Batch.Errors),
	); err != nil {
		return err
	}
	if len(result.Rejections) > 0 {
		rejectionRows := make([][]string, 0, len(result.Rejections))
		for _, rejection := range result.Rejections {
			rejectionRows = append(rejectionRows, []string{strconv.Itoa(rejection.Index), rejection.String()})
		}
		if _, err := fmt.Fprintln(writer); err != nil {
			return err
		}
		if err := cliio.WriteTable(writer, []string{"INDEX", "REJECTION"}, rejectionRows); err != nil {
			return err
		}
	}
	if len(result.Batch.Errors) > 0 {
		errorRows := make([][]string, 0, len(result.Batch.Errors))
		for _, tradeError := range result.Batch.Errors {
			errorRows = append(errorRows, []string{tradeError.TradeID, tradeError.Error})
		}
		if _, err := fmt.Fprintln(writer); err != nil {
			return err
		}
		if err := cliio.WriteTable(writer, []string{"TRADE", "ERROR"}, errorRows); err != nil {
			return err
		}
	}
	return nil
}
