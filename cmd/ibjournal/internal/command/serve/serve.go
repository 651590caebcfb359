// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package serve implements the "serve" command.
package serve

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalserver"
	"github.com/spf13/pflag"
)

// addressFlagName is the flag name for the listen address.
const addressFlagName = "address"

// NewCommand returns a new serve command that serves the HTTP API.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Serve the import and reporting HTTP API",
		Args:  appcmd.NoArgs,
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
	// Address overrides the configured listen address.
	Address string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindDirFlag(flagSet, &f.Dir)
	flagSet.StringVar(&f.Address, addressFlagName, "", "The listen address (default from config)")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	journal, err := ibjournalcmd.OpenJournal(ctx, container, flags.Dir)
	if err != nil {
		return err
	}
	defer ibjournalcmd.CloseJournal(journal, &retErr)
	address := journal.Config.ServerAddress
	if flags.Address != "" {
		address = flags.Address
	}
	logger := container.Logger()
	handler := ibjournalserver.NewHandler(
		logger,
		journal.Store,
		journal.NewImporter(container),
		journal.Config.ReconcileTolerance,
		journal.Config.ServerImportsPerMinute,
	)
	return ibjournalserver.Serve(ctx, logger, address, handler)
}
