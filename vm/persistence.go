package vm

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrObjectNotFound indicates the requested object is not in the store.
var ErrObjectNotFound = errors.New("object not found")

// Persistence stores object records in SQLite: one row per object and one
// row per attribute cell.
type Persistence struct {
	db     *sql.DB
	dbPath string
}

const persistenceSchema = `
CREATE TABLE IF NOT EXISTS objects (
	id          TEXT PRIMARY KEY,
	class       TEXT NOT NULL,
	constructed INTEGER NOT NULL,
	destroyed   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS attributes (
	object_id  TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	visibility INTEGER NOT NULL,
	value      TEXT NOT NULL,
	assigned   INTEGER NOT NULL,
	PRIMARY KEY (object_id, name, visibility)
);`

// NewPersistence opens (creating if needed) the store at dbPath.
// ":memory:" gives a private in-memory store.
func NewPersistence(dbPath string) (*Persistence, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(persistenceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Persistence{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (p *Persistence) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Path returns the database path.
func (p *Persistence) Path() string {
	return p.dbPath
}

// Save writes one object record, replacing any stored version.
func (p *Persistence) Save(obj *Object) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("saving object: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO objects (id, class, constructed, destroyed) VALUES (?, ?, ?, ?)",
		obj.ID, obj.Class, obj.constructed, obj.destroyed,
	); err != nil {
		return fmt.Errorf("saving object %s: %w", obj.ID, err)
	}
	if _, err := tx.Exec("DELETE FROM attributes WHERE object_id = ?", obj.ID); err != nil {
		return fmt.Errorf("saving object %s: %w", obj.ID, err)
	}
	for i, a := range obj.Attributes() {
		if _, err := tx.Exec(
			"INSERT INTO attributes (object_id, seq, name, visibility, value, assigned) VALUES (?, ?, ?, ?, ?, ?)",
			obj.ID, i, a.Name, int(a.Visibility), a.Value.String(), a.Value.IsSet(),
		); err != nil {
			return fmt.Errorf("saving attribute %s.%s: %w", obj.ID, a.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving object %s: %w", obj.ID, err)
	}
	obj.dirty = false
	return nil
}

// Load reads one object record. Returns ErrObjectNotFound if the identity
// was never saved or has been deleted.
func (p *Persistence) Load(id string) (*Object, error) {
	var class string
	var constructed, destroyed bool
	err := p.db.QueryRow(
		"SELECT class, constructed, destroyed FROM objects WHERE id = ?", id,
	).Scan(&class, &constructed, &destroyed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("querying object: %w", err)
	}

	obj := NewObject(class, id)
	obj.constructed = constructed
	obj.destroyed = destroyed

	rows, err := p.db.Query(
		"SELECT name, visibility, value, assigned FROM attributes WHERE object_id = ? ORDER BY seq", id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attributes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name     string
			vis      int
			text     string
			assigned bool
		)
		if err := rows.Scan(&name, &vis, &text, &assigned); err != nil {
			return nil, fmt.Errorf("scanning attribute: %w", err)
		}
		v := Unset
		if assigned {
			v = Text(text)
		}
		obj.restore(Attribute{Name: name, Visibility: Visibility(vis), Value: v})
	}
	return obj, rows.Err()
}

// Delete removes an object record and its attributes.
func (p *Persistence) Delete(id string) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM attributes WHERE object_id = ?", id); err != nil {
		return fmt.Errorf("deleting object %s: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM objects WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting object %s: %w", id, err)
	}
	return tx.Commit()
}

// SaveAll writes every modified, live object.
func (p *Persistence) SaveAll(objects []*Object) error {
	for _, obj := range objects {
		if !obj.dirty || obj.destroyed {
			continue
		}
		if err := p.Save(obj); err != nil {
			return err
		}
	}
	return nil
}

// FindByClass returns the identities of all stored objects of a class.
func (p *Persistence) FindByClass(className string) ([]string, error) {
	rows, err := p.db.Query("SELECT id FROM objects WHERE class = ? ORDER BY id", className)
	if err != nil {
		return nil, fmt.Errorf("querying by class: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
