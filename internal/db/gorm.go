package db

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/config"
)

const (
	LinkTypeBornWith = "born_with"
)

var (
	Module = fx.Provide(
		NewGormClient,
	)
)

type (
	Idea struct {
		ID        int64  `gorm:"column:idea_id"`
		Body      string `gorm:"column:body"`
		Status    string `gorm:"column:status"`
		CreatedAt string `gorm:"column:created_at"`
		UpdatedAt string `gorm:"column:updated_at"`
	}

	Tag struct {
		ID       int64  `gorm:"column:tag_id"`
		Name     string `gorm:"column:name"`
		Path     string `gorm:"column:path"`
		ParentID *int64 `gorm:"column:parent_id"`
	}

	IdeaBlocker struct {
		IdeaID int64  `gorm:"column:idea_id"`
		Ord    int    `gorm:"column:ord"`
		Text   string `gorm:"column:text"`
	}

	IdeaLink struct {
		IdeaID       int64  `gorm:"column:idea_id"`
		LinkedIdeaID int64  `gorm:"column:linked_idea_id"`
		LinkType     string `gorm:"column:link_type"`
		CreatedAt    string `gorm:"column:created_at"`
	}
)

func (Idea) TableName() string        { return "ideas" }
func (Tag) TableName() string         { return "tags" }
func (IdeaBlocker) TableName() string { return "idea_blockers" }
func (IdeaLink) TableName() string    { return "idea_links" }

// DSN enables foreign key enforcement on every connection the driver opens.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on", path)
}

func NewGormClient(cfg *config.Config, l *zap.SugaredLogger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.DBLog {
		level = logger.Info
	}
	newLogger := logger.New(zap.NewStdLog(l.Desugar().Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		Colorful:                  false,
		IgnoreRecordNotFoundError: true,
	})

	db, err := Open(DSN(cfg.DBPath), newLogger)
	if err != nil {
		return nil, err
	}

	l.Infow("database ready", "path", cfg.DBPath)
	return db, nil
}

// Open connects to the SQLite store at dsn and applies the schema.
// The pool is pinned to one connection so writers serialize.
func Open(dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}
