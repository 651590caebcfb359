// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package statement implements the "statement" command group.
package statement

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/cmd/ibjournal/internal/command/statement/statementinspect"
)

// NewCommand returns a new statement command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Work with activity statement files",
		SubCommands: []*appcmd.Command{
			statementinspect.NewCommand("inspect", builder),
		},
	}
}
