// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalpath derives file paths from the ibjournal base directory.
// All layout is defined here so callers don't duplicate path construction logic.
//
// The base directory (--dir flag) contains:
//
//	ibjournal.yaml          Config file
//	ibjournal.db            Trade store (name configurable)
//	statements/             User-managed Activity Statement CSVs
package ibjournalpath

import "path/filepath"

const (
	// ConfigFileName is the well-known config file name within the base directory.
	ConfigFileName = "ibjournal.yaml"
	// DefaultDatabaseFileName is the store file name used when the config does not set one.
	DefaultDatabaseFileName = "ibjournal.db"
	// statementsDirName is the directory of Activity Statement CSVs.
	statementsDirName = "statements"
)

// ConfigFilePath returns the path to the config file within the base directory.
func ConfigFilePath(dirPath string) string {
	return filepath.Join(dirPath, ConfigFileName)
}

// DatabaseFilePath returns the path to the store within the base directory.
//
// Absolute database file names are returned unchanged.
func DatabaseFilePath(dirPath string, databaseFileName string) string {
	if databaseFileName == "" {
		databaseFileName = DefaultDatabaseFileName
	}
	if filepath.IsAbs(databaseFileName) {
		return databaseFileName
	}
	return filepath.Join(dirPath, databaseFileName)
}

// StatementsDirPath returns the directory for Activity Statement CSVs.
func StatementsDirPath(dirPath string) string {
	return filepath.Join(dirPath, statementsDirName)
}
