package db

import (
	"fmt"

	"go.uber.org/zap"
)

// RunMigrations applies any pending database migrations
func (db *DB) RunMigrations() error {
	if err := db.runTimestampMigration(); err != nil {
		return err
	}
	if err := db.runBirthdayIndexMigration(); err != nil {
		return err
	}
	return nil
}

// runTimestampMigration adds the audit columns to databases created before they existed
func (db *DB) runTimestampMigration() error {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('contacts')
		WHERE name IN ('created_at', 'updated_at')
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for timestamp columns: %w", err)
	}

	if count >= 2 {
		return nil
	}

	db.logger.Info("running migration", zap.String("migration", "timestamps"))

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	// SQLite refuses non-constant defaults on ALTER TABLE, so existing rows start NULL.
	_, err = tx.Exec(`ALTER TABLE contacts ADD COLUMN created_at DATETIME`)
	if err != nil && err.Error() != "duplicate column name: created_at" {
		return fmt.Errorf("adding created_at column: %w", err)
	}

	_, err = tx.Exec(`ALTER TABLE contacts ADD COLUMN updated_at DATETIME`)
	if err != nil && err.Error() != "duplicate column name: updated_at" {
		return fmt.Errorf("adding updated_at column: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}

	db.logger.Info("migration completed", zap.String("migration", "timestamps"))
	return nil
}

func (db *DB) runBirthdayIndexMigration() error {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_index_list('contacts')
		WHERE name = 'idx_contacts_nascimento'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for birthday index: %w", err)
	}

	if count > 0 {
		return nil
	}

	db.logger.Info("running migration", zap.String("migration", "birthday index"))
	if _, err := db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_contacts_nascimento ON contacts (data_nascimento)`); err != nil {
		return fmt.Errorf("creating birthday index: %w", err)
	}
	return nil
}
