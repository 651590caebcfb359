// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package trades implements the "trades" command group.
package trades

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/trades/tradeslist"
)

// NewCommand returns a new trades command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Query stored trades",
		SubCommands: []*appcmd.Command{
			tradeslist.NewCommand("list", builder),
		},
	}
}
