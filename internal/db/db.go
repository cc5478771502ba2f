package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/contacts"
)

const driverName = "sqlite3_agenda"

func init() {
	// fold lowercases with Unicode rules; SQLite's own lower() only folds ASCII.
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	logger *zap.Logger
}

// Open opens the database at dbPath, creating it when it does not exist yet
func Open(dbPath string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("db")

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		logger.Info("creating database", zap.String("path", dbPath))
		if err := Initialize(dbPath); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, logger: logger}

	if err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// data_nascimento is read as text: the driver turns values of DATE-declared
// columns (older databases) into time.Time.
const contactColumns = `
	id, nome, CAST(data_nascimento AS TEXT), has_endereco,
	estado, cidade, bairro, logradouro, numero, cep`

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(row scanner) (contacts.Contact, error) {
	var (
		c           contacts.Contact
		id          string
		nascimento  sql.NullString
		hasEndereco bool
		addr        contacts.Address
	)
	err := row.Scan(
		&id, &c.Nome, &nascimento, &hasEndereco,
		&addr.Estado, &addr.Cidade, &addr.Bairro, &addr.Logradouro, &addr.Numero, &addr.CEP,
	)
	if err != nil {
		return contacts.Contact{}, err
	}

	c.ID = contacts.ID(id)
	if nascimento.Valid && nascimento.String != "" {
		raw := nascimento.String
		if len(raw) > len(time.DateOnly) {
			raw = raw[:len(time.DateOnly)]
		}
		d, err := contacts.ParseDate(raw)
		if err != nil {
			return contacts.Contact{}, fmt.Errorf("contact %s: %w", id, err)
		}
		c.DataNascimento = &d
	}
	if hasEndereco {
		c.Endereco = &addr
	}
	return c, nil
}

func (db *DB) queryContacts(ctx context.Context, where string, args ...any) ([]contacts.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts ` + where + ` ORDER BY seq`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	list := []contacts.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		if err := db.loadEntries(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (db *DB) loadEntries(ctx context.Context, c *contacts.Contact) error {
	var err error
	if c.Telefones, err = db.entries(ctx, "contact_phones", c.ID); err != nil {
		return err
	}
	if c.Emails, err = db.entries(ctx, "contact_emails", c.ID); err != nil {
		return err
	}
	return nil
}

func (db *DB) entries(ctx context.Context, table string, id contacts.ID) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT value FROM `+table+` WHERE contact_id = ? ORDER BY position`, string(id))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// List returns all contacts in creation order
func (db *DB) List(ctx context.Context) ([]contacts.Contact, error) {
	return db.queryContacts(ctx, "")
}

// Search returns contacts whose nome contains term, ignoring case
func (db *DB) Search(ctx context.Context, term string) ([]contacts.Contact, error) {
	return db.queryContacts(ctx, `WHERE instr(fold(nome), fold(?)) > 0`, term)
}

// Get retrieves a single contact by ID
func (db *DB) Get(ctx context.Context, id contacts.ID) (*contacts.Contact, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, string(id))
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contacts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting contact %s: %w", id, err)
	}
	if err := db.loadEntries(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts c, which must carry its ID
func (db *DB) Create(ctx context.Context, c contacts.Contact) (*contacts.Contact, error) {
	if c.ID == "" {
		return nil, errors.New("creating contact: missing id")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertContact(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing contact: %w", err)
	}
	return db.Get(ctx, c.ID)
}

// Update replaces every field of the contact stored under id
func (db *DB) Update(ctx context.Context, id contacts.ID, c contacts.Contact) (*contacts.Contact, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	addr, hasEndereco := addressColumns(c.Endereco)
	result, err := tx.ExecContext(ctx, `
		UPDATE contacts
		SET nome = ?,
		    data_nascimento = ?,
		    has_endereco = ?,
		    estado = ?, cidade = ?, bairro = ?, logradouro = ?, numero = ?, cep = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		c.Nome, dateColumn(c.DataNascimento), hasEndereco,
		addr.Estado, addr.Cidade, addr.Bairro, addr.Logradouro, addr.Numero, addr.CEP,
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	} else if n == 0 {
		return nil, contacts.ErrNotFound
	}

	if err := deleteEntries(ctx, tx, id); err != nil {
		return nil, err
	}
	c.ID = id
	if err := insertEntries(ctx, tx, c); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return db.Get(ctx, id)
}

// Delete permanently deletes a contact and its phones and emails
func (db *DB) Delete(ctx context.Context, id contacts.ID) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteEntries(ctx, tx, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	} else if n == 0 {
		return contacts.ErrNotFound
	}

	return tx.Commit()
}

// ReplaceAll deletes every contact and stores list instead, atomically.
// Every contact in list must carry a unique ID.
func (db *DB) ReplaceAll(ctx context.Context, list []contacts.Contact) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM contact_phones`,
		`DELETE FROM contact_emails`,
		`DELETE FROM contacts`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing contacts: %w", err)
		}
	}

	for _, c := range list {
		if err := insertContact(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	db.logger.Info("contacts replaced", zap.Int("count", len(list)))
	return nil
}

func insertContact(ctx context.Context, tx *sql.Tx, c contacts.Contact) error {
	addr, hasEndereco := addressColumns(c.Endereco)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contacts (
			id, nome, data_nascimento, has_endereco,
			estado, cidade, bairro, logradouro, numero, cep,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`,
		string(c.ID), c.Nome, dateColumn(c.DataNascimento), hasEndereco,
		addr.Estado, addr.Cidade, addr.Bairro, addr.Logradouro, addr.Numero, addr.CEP,
	)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	return insertEntries(ctx, tx, c)
}

func insertEntries(ctx context.Context, tx *sql.Tx, c contacts.Contact) error {
	for i, v := range c.Telefones {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contact_phones (contact_id, position, value) VALUES (?, ?, ?)`,
			string(c.ID), i, v); err != nil {
			return fmt.Errorf("inserting phone: %w", err)
		}
	}
	for i, v := range c.Emails {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contact_emails (contact_id, position, value) VALUES (?, ?, ?)`,
			string(c.ID), i, v); err != nil {
			return fmt.Errorf("inserting email: %w", err)
		}
	}
	return nil
}

func deleteEntries(ctx context.Context, tx *sql.Tx, id contacts.ID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM contact_phones WHERE contact_id = ?`, string(id)); err != nil {
		return fmt.Errorf("deleting phones: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM contact_emails WHERE contact_id = ?`, string(id)); err != nil {
		return fmt.Errorf("deleting emails: %w", err)
	}
	return nil
}

func addressColumns(a *contacts.Address) (contacts.Address, bool) {
	if a == nil {
		return contacts.Address{}, false
	}
	return *a, true
}

func dateColumn(d *contacts.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
