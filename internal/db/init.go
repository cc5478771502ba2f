package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

const schema = `
-- Agenda de contatos schema
CREATE TABLE IF NOT EXISTS contacts (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    nome TEXT NOT NULL,
    data_nascimento TEXT,
    has_endereco BOOLEAN NOT NULL DEFAULT 0,
    estado TEXT NOT NULL DEFAULT '',
    cidade TEXT NOT NULL DEFAULT '',
    bairro TEXT NOT NULL DEFAULT '',
    logradouro TEXT NOT NULL DEFAULT '',
    numero TEXT NOT NULL DEFAULT '',
    cep TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS contact_phones (
    contact_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (contact_id, position),
    FOREIGN KEY (contact_id) REFERENCES contacts (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS contact_emails (
    contact_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (contact_id, position),
    FOREIGN KEY (contact_id) REFERENCES contacts (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_contacts_nome ON contacts (nome);
CREATE INDEX IF NOT EXISTS idx_contacts_nascimento ON contacts (data_nascimento);`

// Initialize creates a new database with the complete schema
func Initialize(dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("database already exists at %s", dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open(driverName, dbPath)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}
