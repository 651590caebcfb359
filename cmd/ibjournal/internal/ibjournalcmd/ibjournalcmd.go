// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalcmd provides shared wiring for ibjournal commands: the
// common flags, reading the config, and opening the trade store.
package ibjournalcmd

import (
	"context"
	"errors"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalconfig"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalimport"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpath"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalstore"
	"github.com/bufdev/ibjournal/internal/pkg/cliio"
	"github.com/bufdev/ibjournal/internal/standard/xos"
	"github.com/spf13/pflag"
)

const (
	// DirFlagName is the flag name for the ibjournal base directory.
	DirFlagName = "dir"
	// FormatFlagName is the flag name for the output format.
	FormatFlagName = "format"
)

// BindDirFlag binds the --dir flag.
func BindDirFlag(flagSet *pflag.FlagSet, dir *string) {
	flagSet.StringVar(dir, DirFlagName, ".", "The ibjournal directory containing ibjournal.yaml")
}

// BindFormatFlag binds the --format flag.
func BindFormatFlag(flagSet *pflag.FlagSet, format *string) {
	flagSet.StringVar(format, FormatFlagName, string(cliio.FormatTable), "Output format (table, csv, json)")
}

// ParseFormat parses the --format flag value, returning an invalid argument error if unknown.
func ParseFormat(value string) (cliio.Format, error) {
	format, err := cliio.ParseFormat(value)
	if err != nil {
		return "", appcmd.NewInvalidArgumentError(err.Error())
	}
	return format, nil
}

// ExpandDir expands a leading ~ in the --dir flag value.
func ExpandDir(dir string) (string, error) {
	if dir == "" {
		return "", appcmd.NewInvalidArgumentErrorf("--%s is required", DirFlagName)
	}
	return xos.ExpandHome(dir)
}

// Journal is an open journal: its config and trade store.
type Journal struct {
	DirPath string
	Config  *ibjournalconfig.Config
	Store   *ibjournalstore.Store
}

// OpenJournal reads the config from the directory and opens its trade store.
//
// The caller must call Close.
func OpenJournal(ctx context.Context, container appext.Container, dir string) (*Journal, error) {
	if dir == "" {
		return nil, appcmd.NewInvalidArgumentErrorf("--%s is required", DirFlagName)
	}
	dirPath, err := xos.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	config, err := ibjournalconfig.ReadConfig(dirPath)
	if err != nil {
		return nil, err
	}
	store, err := ibjournalstore.Open(
		ctx,
		container.Logger(),
		ibjournalpath.DatabaseFilePath(dirPath, config.DatabaseFileName),
	)
	if err != nil {
		return nil, err
	}
	return &Journal{
		DirPath: dirPath,
		Config:  config,
		Store:   store,
	}, nil
}

// NewImporter returns an Importer that writes to the journal's store.
func (j *Journal) NewImporter(container appext.Container) ibjournalimport.Importer {
	return ibjournalimport.NewImporter(container.Logger(), j.Store, j.Config.Broker)
}

// Close closes the trade store.
func (j *Journal) Close() error {
	return j.Store.Close()
}

// CloseJournal closes the journal, joining any error into retErr.
//
// Use as: defer ibjournalcmd.CloseJournal(journal, &retErr).
func CloseJournal(journal *Journal, retErr *error) {
	*retErr = errors.Join(*retErr, journal.Close())
}
