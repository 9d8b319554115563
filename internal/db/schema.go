package db

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// nowExpr renders the current UTC time as an ISO-8601 string.
const nowExpr = "strftime('%Y-%m-%dT%H:%M:%fZ','now')"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ideas (
  idea_id     INTEGER PRIMARY KEY AUTOINCREMENT,
  body        TEXT NOT NULL,
  status      TEXT NOT NULL DEFAULT 'active',
  created_at  TEXT NOT NULL DEFAULT (` + nowExpr + `),
  updated_at  TEXT NOT NULL DEFAULT (` + nowExpr + `)
)`,
	`CREATE INDEX IF NOT EXISTS idx_ideas_status ON ideas(status)`,
	`CREATE INDEX IF NOT EXISTS idx_ideas_body ON ideas(body)`,

	`CREATE TABLE IF NOT EXISTS tags (
  tag_id     INTEGER PRIMARY KEY AUTOINCREMENT,
  name       TEXT NOT NULL,
  path       TEXT NOT NULL DEFAULT '',
  parent_id  INTEGER REFERENCES tags(tag_id) ON DELETE SET NULL,
  UNIQUE(name, path)
)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_path ON tags(path)`,

	`CREATE TABLE IF NOT EXISTS idea_tags (
  idea_id  INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
  tag_id   INTEGER NOT NULL REFERENCES tags(tag_id) ON DELETE CASCADE,
  PRIMARY KEY (idea_id, tag_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_idea_tags_tag ON idea_tags(tag_id)`,

	`CREATE TABLE IF NOT EXISTS idea_blockers (
  idea_id  INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
  ord      INTEGER NOT NULL,
  text     TEXT NOT NULL,
  PRIMARY KEY (idea_id, ord)
)`,

	`CREATE TABLE IF NOT EXISTS idea_links (
  idea_id         INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
  linked_idea_id  INTEGER NOT NULL REFERENCES ideas(idea_id) ON DELETE CASCADE,
  link_type       TEXT NOT NULL DEFAULT 'born_with',
  created_at      TEXT NOT NULL DEFAULT (` + nowExpr + `),
  PRIMARY KEY (idea_id, linked_idea_id, link_type),
  CHECK (idea_id <> linked_idea_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_idea_links_linked ON idea_links(linked_idea_id, link_type)`,
}

// Migrate creates any missing tables and indexes. It never alters existing ones.
func Migrate(db *gorm.DB) error {
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}

