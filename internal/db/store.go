package db

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// NowExpr is the store-generated timestamp, usable as a squirrel value.
var NowExpr = squirrel.Expr(nowExpr)

// Store runs parameterized queries inside one transaction. Driver errors are
// wrapped for context but never translated; errors.Cause yields the original.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transact opens a single transaction for fn and commits once. Any error from
// fn rolls back every write made through the Store.
func Transact(ctx context.Context, db *gorm.DB, fn func(st *Store) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// FetchAll scans every row returned by q into dest, a pointer to a slice.
func (s *Store) FetchAll(dest interface{}, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "build sql")
	}
	if err := s.db.Raw(query, args...).Scan(dest).Error; err != nil {
		return errors.Wrap(err, "fetch all")
	}
	return nil
}

// FetchOne scans the first row returned by q into dest and reports whether
// there was one.
func (s *Store) FetchOne(dest interface{}, q squirrel.Sqlizer) (bool, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return false, errors.Wrap(err, "build sql")
	}
	res := s.db.Raw(query, args...).Scan(dest)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "fetch one")
	}
	return res.RowsAffected > 0, nil
}

// Exec runs a statement and returns the number of rows it touched.
func (s *Store) Exec(q squirrel.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build sql")
	}
	res := s.db.Exec(query, args...)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "exec")
	}
	return res.RowsAffected, nil
}

// SetSymmetricNeighbors makes neighbors the complete set of ideas linked to
// ideaID by linkType, in both directions. Every existing edge of that type
// touching ideaID is removed first; self references and repeats are dropped.
func (s *Store) SetSymmetricNeighbors(ideaID int64, linkType string, neighbors []int64) error {
	_, err := s.Exec(squirrel.Delete("idea_links").
		Where(squirrel.Eq{"link_type": linkType}).
		Where(squirrel.Or{
			squirrel.Eq{"idea_id": ideaID},
			squirrel.Eq{"linked_idea_id": ideaID},
		}))
	if err != nil {
		return errors.Wrap(err, "clear links")
	}

	for _, other := range UniqueNeighbors(ideaID, neighbors) {
		_, err := s.Exec(squirrel.Insert("idea_links").
			Options("OR IGNORE").
			Columns("idea_id", "linked_idea_id", "link_type").
			Values(ideaID, other, linkType).
			Values(other, ideaID, linkType))
		if err != nil {
			return errors.Wrapf(err, "link %d <-> %d", ideaID, other)
		}
	}
	return nil
}

// Neighbors lists the ideas ideaID points at through linkType, ascending.
func (s *Store) Neighbors(ideaID int64, linkType string) ([]int64, error) {
	links := make([]IdeaLink, 0)
	err := s.FetchAll(&links, squirrel.
		Select("idea_id", "linked_idea_id", "link_type", "created_at").
		From("idea_links").
		Where(squirrel.Eq{"idea_id": ideaID, "link_type": linkType}).
		OrderBy("linked_idea_id"))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(links))
	for i := range links {
		ids[i] = links[i].LinkedIdeaID
	}
	return ids, nil
}

// UniqueNeighbors drops self references and repeats, keeping first-seen order.
func UniqueNeighbors(self int64, ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == self {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
