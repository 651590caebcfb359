// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package pnl implements the "pnl" command group.
package pnl

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/pnl/pnldaily"
)

// NewCommand returns a new pnl command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Report P&L from stored trades",
		SubCommands: []*appcmd.Command{
			pnldaily.NewCommand("daily", builder),
		},
	}
}
