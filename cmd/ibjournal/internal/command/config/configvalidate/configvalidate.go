// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package configvalidate implements the "config validate" command.
package configvalidate

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/ibjournalcmd"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalconfig"
	"github.com/spf13/pflag"
)

// NewCommand returns a new config validate command that validates a configuration file.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Validate the configuration file",
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
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	ibjournalcmd.BindDirFlag(flagSet, &f.Dir)
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	dirPath, err := ibjournalcmd.ExpandDir(flags.Dir)
	if err != nil {
		return err
	}
	if err := ibjournalconfig.ValidateConfig(dirPath); err != nil {
		return err
	}
	container.Logger().Info("configuration is valid", "dir", dirPath)
	return nil
}
