// Copyright 2026 Peter Edge
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/config"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/importcmd"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/pnl"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/positions"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/reconcile"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/serve"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/statement"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/trades"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("ibjournal"))
}

// newRootCommand creates the root ibjournal command with all sub-commands.
func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:                 name,
		Short:               "Import Interactive Brokers activity statements into a trade journal",
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			config.NewCommand("config", builder),
			statement.NewCommand("statement", builder),
			importcmd.NewCommand("import", builder),
			trades.NewCommand("trades", builder),
			pnl.NewCommand("pnl", builder),
			positions.NewCommand("positions", builder),
			reconcile.NewCommand("reconcile", builder),
			serve.NewCommand("serve", builder),
		},
	}
}
