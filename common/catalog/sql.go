package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lyzr/entityeditor/common/models"
)

// Schema creates the catalog tables. The types are accepted by both
// Postgres and SQLite.
const Schema = `
CREATE TABLE IF NOT EXISTS identifier_type (
	id               INTEGER PRIMARY KEY,
	label            TEXT NOT NULL,
	detection_regex  TEXT NOT NULL DEFAULT '',
	validation_regex TEXT NOT NULL DEFAULT '',
	entity_type      TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	deprecated       BOOLEAN NOT NULL DEFAULT FALSE,
	display_order    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS relationship_type (
	id                  INTEGER PRIMARY KEY,
	label               TEXT NOT NULL,
	link_phrase         TEXT NOT NULL DEFAULT '',
	reverse_link_phrase TEXT NOT NULL DEFAULT '',
	source_entity_type  TEXT NOT NULL,
	target_entity_type  TEXT NOT NULL,
	parent_id           INTEGER,
	child_order         INTEGER NOT NULL DEFAULT 0,
	deprecated          BOOLEAN NOT NULL DEFAULT FALSE,
	description         TEXT NOT NULL DEFAULT '',
	display_order       INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS relationship_role (
	name                 TEXT PRIMARY KEY,
	relationship_type_id INTEGER NOT NULL
);`

// placeholders returns n bind markers in the syntax of driver
func placeholders(driver string, n int) string {
	marks := make([]string, n)
	for i := range marks {
		if driver == "pgx" {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

// Seed creates the schema and writes c into it inside one transaction.
// Catalog order is kept in display_order.
func Seed(ctx context.Context, db *sql.DB, driver string, c *Catalog) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create catalog schema: %w", err)
		}
	}

	identifierInsert := `INSERT INTO identifier_type (id, label, detection_regex, validation_regex, entity_type, description, deprecated, display_order) VALUES (` + placeholders(driver, 8) + `)`
	for i, t := range c.IdentifierTypes {
		if _, err := tx.ExecContext(ctx, identifierInsert,
			t.ID, t.Label, t.DetectionRegex, t.ValidationRegex, string(t.EntityType), t.Description, t.Deprecated, i,
		); err != nil {
			return fmt.Errorf("insert identifier type %d: %w", t.ID, err)
		}
	}

	relationshipInsert := `INSERT INTO relationship_type (id, label, link_phrase, reverse_link_phrase, source_entity_type, target_entity_type, parent_id, child_order, deprecated, description, display_order) VALUES (` + placeholders(driver, 11) + `)`
	for i, t := range c.RelationshipTypes {
		var parent sql.NullInt64
		if t.ParentID != nil {
			parent = sql.NullInt64{Int64: int64(*t.ParentID), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, relationshipInsert,
			t.ID, t.Label, t.LinkPhrase, t.ReverseLinkPhrase, string(t.SourceEntityType), string(t.TargetEntityType),
			parent, t.ChildOrder, t.Deprecated, t.Description, i,
		); err != nil {
			return fmt.Errorf("insert relationship type %d: %w", t.ID, err)
		}
	}

	roleInsert := `INSERT INTO relationship_role (name, relationship_type_id) VALUES (` + placeholders(driver, 2) + `)`
	for name, id := range c.Roles {
		if _, err := tx.ExecContext(ctx, roleInsert, name, id); err != nil {
			return fmt.Errorf("insert role %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// LoadSQL reads a catalog written by Seed (or maintained by the data owner
// in the same layout)
func LoadSQL(ctx context.Context, db *sql.DB) (*Catalog, error) {
	c := &Catalog{Roles: make(map[string]int)}

	identifierRows, err := db.QueryContext(ctx, `
		SELECT id, label, detection_regex, validation_regex, entity_type, description, deprecated
		FROM identifier_type
		ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query identifier types: %w", err)
	}
	defer identifierRows.Close()

	for identifierRows.Next() {
		var (
			t          models.IdentifierType
			entityType string
		)
		if err := identifierRows.Scan(&t.ID, &t.Label, &t.DetectionRegex, &t.ValidationRegex, &entityType, &t.Description, &t.Deprecated); err != nil {
			return nil, fmt.Errorf("scan identifier type: %w", err)
		}
		t.EntityType = models.EntityType(entityType)
		c.IdentifierTypes = append(c.IdentifierTypes, t)
	}
	if err := identifierRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identifier types: %w", err)
	}

	relationshipRows, err := db.QueryContext(ctx, `
		SELECT id, label, link_phrase, reverse_link_phrase, source_entity_type, target_entity_type, parent_id, child_order, deprecated, description
		FROM relationship_type
		ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query relationship types: %w", err)
	}
	defer relationshipRows.Close()

	for relationshipRows.Next() {
		var (
			t              models.RelationshipType
			source, target string
			parent         sql.NullInt64
		)
		if err := relationshipRows.Scan(&t.ID, &t.Label, &t.LinkPhrase, &t.ReverseLinkPhrase, &source, &target, &parent, &t.ChildOrder, &t.Deprecated, &t.Description); err != nil {
			return nil, fmt.Errorf("scan relationship type: %w", err)
		}
		t.SourceEntityType = models.EntityType(source)
		t.TargetEntityType = models.EntityType(target)
		if parent.Valid {
			id := int(parent.Int64)
			t.ParentID = &id
		}
		c.RelationshipTypes = append(c.RelationshipTypes, t)
	}
	if err := relationshipRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationship types: %w", err)
	}

	roleRows, err := db.QueryContext(ctx, `SELECT name, relationship_type_id FROM relationship_role`)
	if err != nil {
		return nil, fmt.Errorf("query relationship roles: %w", err)
	}
	defer roleRows.Close()

	for roleRows.Next() {
		var (
			name string
			id   int
		)
		if err := roleRows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan relationship role: %w", err)
		}
		c.Roles[name] = id
	}
	if err := roleRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationship roles: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
