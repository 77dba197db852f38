// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/bonfire/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
}

// Database is the durable store for campaign, submission, and reward
// state. Record metadata lives in a SQLite database and submission
// content payloads live in a Badger blob store. An empty data directory
// keeps everything in memory, which is useful for testing.
type Database struct {
	logger   *slog.Logger
	metadata *gorm.DB
	blob     *badger.DB
	dataDir  string
}

// New creates a new database instance with optional persistence using the provided data directory
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if config.DataDir != "" {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(config.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(config.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
	}
	metadataDb, err := openMetadata(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}
	// Configure tracing for GORM
	if err := metadataDb.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("failed to configure tracing: %w", err)
	}
	blobDb, err := openBlob(config.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	db := &Database{
		logger:   logger,
		metadata: metadataDb,
		blob:     blobDb,
		dataDir:  config.DataDir,
	}
	// Create table schemas
	for _, model := range MigrateModels {
		db.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := db.metadata.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func openMetadata(dataDir string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	if dataDir == "" {
		// Use in-memory database when no data directory is specified
		// cache=shared allows multiple connections to share the same in-memory database
		return gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			gormConfig,
		)
	}
	metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
	// WAL journal mode, disable sync on write
	metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
	return gorm.Open(
		sqlite.Open(
			fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
		),
		gormConfig,
	)
}

func openBlob(dataDir string, logger *slog.Logger) (*badger.DB, error) {
	var badgerOpts badger.Options
	if dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(filepath.Join(dataDir, "blob"))
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(logger)).
		WithCompactL0OnClose(true)
	return badger.Open(badgerOpts)
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() *gorm.DB {
	return d.metadata
}

// Blob returns the underlying blob store instance
func (d *Database) Blob() *badger.DB {
	return d.blob
}

// Transaction starts a new database transaction spanning the metadata
// and blob stores and returns a handle to it
func (d *Database) Transaction() *Txn {
	return &Txn{
		db:       d,
		metadata: d.metadata.Begin(),
		blob:     d.blob.NewTransaction(true),
	}
}

// IsNotFound returns true if the error indicates a missing record in
// either underlying store
func (d *Database) IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, types.ErrBlobKeyNotFound)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if sqlDb, sqlErr := d.metadata.DB(); sqlErr == nil {
		err = errors.Join(err, sqlDb.Close())
	}
	err = errors.Join(err, d.blob.Close())
	return err
}

// Txn is a transaction handle spanning both underlying stores
type Txn struct {
	db       *Database
	metadata *gorm.DB
	blob     *badger.Txn
	finished bool
}

// Metadata returns the metadata store transaction handle
func (t *Txn) Metadata() *gorm.DB {
	return t.metadata
}

// Blob returns the blob store transaction handle
func (t *Txn) Blob() *badger.Txn {
	return t.blob
}

// Commit commits both underlying transactions. Content blobs are
// committed first: an orphaned blob from a failed metadata commit is
// unreachable without its metadata row and is harmless.
func (t *Txn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if err := t.blob.Commit(); err != nil {
		t.metadata.Rollback()
		return fmt.Errorf("failed to commit blob txn: %w", err)
	}
	if result := t.metadata.Commit(); result.Error != nil {
		return fmt.Errorf("failed to commit metadata txn: %w", result.Error)
	}
	return nil
}

// Discard rolls back both underlying transactions. It's safe to call
// after Commit.
func (t *Txn) Discard() {
	if t.finished {
		return
	}
	t.finished = true
	t.blob.Discard()
	t.metadata.Rollback()
}

// badgerLogger forwards badger's internal logging to slog
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (b *badgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(fmt.Sprintf(msg, args...), "component", "database")
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(fmt.Sprintf(msg, args...), "component", "database")
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.logger.Debug(fmt.Sprintf(msg, args...), "component", "database")
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(fmt.Sprintf(msg, args...), "component", "database")
}
