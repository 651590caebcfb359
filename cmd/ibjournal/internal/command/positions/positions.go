// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package positions implements the "positions" command group.
package positions

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/positions/positionsoverview"
)

// NewCommand returns a new positions command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Report statement positions",
		SubCommands: []*appcmd.Command{
			positionsoverview.NewCommand("overview", builder),
		},
	}
}
