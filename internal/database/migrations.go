package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrationSharedJournal switches the session file to write-ahead logging so
// the server and the CLI commands can read it while the other writes. The
// journal mode is stored in the database file, so it only needs to run once.
const migrationSharedJournal = "2026-10-01_session_file_wal_journal"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func migrationSet() []migrationDefinition {
	return []migrationDefinition{
		{name: migrationSharedJournal, apply: enableSharedJournal},
	}
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	return runMigrations(db, migrationSet(), time.Now, logger)
}

// runMigrations applies every definition missing from the ledger, in order.
func runMigrations(db *gorm.DB, definitions []migrationDefinition, clock func() time.Time, logger *zap.Logger) error {
	var appliedNames []string
	if err := db.Model(&migrationRecord{}).Pluck("name", &appliedNames).Error; err != nil {
		return fmt.Errorf("load migration ledger: %w", err)
	}
	applied := make(map[string]struct{}, len(appliedNames))
	for _, name := range appliedNames {
		applied[name] = struct{}{}
	}

	for _, definition := range definitions {
		if _, done := applied[definition.name]; done {
			continue
		}
		if err := definition.apply(db); err != nil {
			return fmt.Errorf("apply migration %s: %w", definition.name, err)
		}
		record := migrationRecord{Name: definition.name, AppliedAtSeconds: clock().UTC().Unix()}
		if err := db.Create(&record).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", definition.name, err)
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", definition.name))
		}
	}
	return nil
}

func enableSharedJournal(db *gorm.DB) error {
	var mode string
	if err := db.Raw("PRAGMA journal_mode=WAL").Scan(&mode).Error; err != nil {
		return err
	}
	if !strings.EqualFold(mode, "wal") {
		return fmt.Errorf("journal mode is %q after requesting wal", mode)
	}
	return nil
}
