package service

import (
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/db"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/models"
)

// NormalizeTags trims names, drops empty ones and repeats. Order is irrelevant
// since tags are read back by name.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NormalizeBlockers trims and drops empty blockers, keeping input order.
func NormalizeBlockers(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

// SplitTags parses a comma separated tag filter.
func SplitTags(csv string) []string {
	if csv == "" {
		return nil
	}
	return NormalizeTags(strings.Split(csv, ","))
}

func replaceTags(st *db.Store, ideaID int64, raw []string) error {
	if _, err := st.Exec(squirrel.Delete("idea_tags").Where(squirrel.Eq{"idea_id": ideaID})); err != nil {
		return errors.Wrap(err, "clear tags")
	}

	for _, name := range NormalizeTags(raw) {
		_, err := st.Exec(squirrel.
			Insert("tags").Options("OR IGNORE").
			Columns("name", "path").
			Values(name, ""))
		if err != nil {
			return errors.Wrapf(err, "insert tag %q", name)
		}

		tag := db.Tag{}
		ok, err := st.FetchOne(&tag, squirrel.
			Select("tag_id", "name", "path", "parent_id").
			From("tags").
			Where(squirrel.Eq{"name": name, "path": ""}))
		if err != nil {
			return errors.Wrapf(err, "find tag %q", name)
		}
		if !ok {
			return errors.Errorf("tag %q missing after insert", name)
		}

		_, err = st.Exec(squirrel.
			Insert("idea_tags").Options("OR IGNORE").
			Columns("idea_id", "tag_id").
			Values(ideaID, tag.ID))
		if err != nil {
			return errors.Wrapf(err, "tag idea with %q", name)
		}
	}
	return nil
}

func replaceBlockers(st *db.Store, ideaID int64, raw []string) error {
	if _, err := st.Exec(squirrel.Delete("idea_blockers").Where(squirrel.Eq{"idea_id": ideaID})); err != nil {
		return errors.Wrap(err, "clear blockers")
	}

	blockers := NormalizeBlockers(raw)
	if len(blockers) == 0 {
		return nil
	}

	q := squirrel.Insert("idea_blockers").Columns("idea_id", "ord", "text")
	for i, text := range blockers {
		q = q.Values(ideaID, i, text)
	}
	if _, err := st.Exec(q); err != nil {
		return errors.Wrap(err, "insert blockers")
	}
	return nil
}

func get(st *db.Store, id int64) (*models.IdeaResp, error) {
	row := db.Idea{}
	ok, err := st.FetchOne(&row, squirrel.
		Select(ideaColumns).From("ideas").
		Where(squirrel.Eq{"idea_id": id}))
	if err != nil {
		return nil, errors.Wrap(err, "get idea")
	}
	if !ok {
		return nil, ErrIdeaNotFound
	}
	return assemble(st, &row)
}

// assemble builds the full view of an idea: tags by name, blockers by
// ordinal and born_with links by linked idea id.
func assemble(st *db.Store, row *db.Idea) (*models.IdeaResp, error) {
	if row == nil {
		return nil, ErrIdeaNotFound
	}

	tags, err := tagNames(st, row.ID)
	if err != nil {
		return nil, err
	}

	blockerRows := make([]db.IdeaBlocker, 0)
	err = st.FetchAll(&blockerRows, squirrel.
		Select("idea_id", "ord", "text").
		From("idea_blockers").
		Where(squirrel.Eq{"idea_id": row.ID}).
		OrderBy("ord"))
	if err != nil {
		return nil, errors.Wrap(err, "get blockers")
	}
	blockers := make([]string, len(blockerRows))
	for i := range blockerRows {
		blockers[i] = blockerRows[i].Text
	}

	linked := make([]db.Idea, 0)
	err = st.FetchAll(&linked, squirrel.
		Select("i.idea_id", "i.body").
		From("idea_links l").
		Join("ideas i ON i.idea_id = l.linked_idea_id").
		Where(squirrel.Eq{"l.idea_id": row.ID, "l.link_type": db.LinkTypeBornWith}).
		OrderBy("i.idea_id"))
	if err != nil {
		return nil, errors.Wrap(err, "get links")
	}
	bornWith := make([]models.IdeaLinkResp, len(linked))
	for i := range linked {
		linkedTags, err := tagNames(st, linked[i].ID)
		if err != nil {
			return nil, err
		}
		bornWith[i] = models.IdeaLinkResp{
			IdeaID: linked[i].ID,
			Body:   linked[i].Body,
			Tags:   linkedTags,
		}
	}

	return &models.IdeaResp{
		IdeaID:   row.ID,
		Body:     row.Body,
		Status:   row.Status,
		Tags:     tags,
		Blockers: blockers,
		BornWith: bornWith,
	}, nil
}

func tagNames(st *db.Store, ideaID int64) ([]string, error) {
	rows := make([]db.Tag, 0)
	err := st.FetchAll(&rows, squirrel.
		Select("t.tag_id", "t.name", "t.path", "t.parent_id").
		From("tags t").
		Join("idea_tags it ON it.tag_id = t.tag_id").
		Where(squirrel.Eq{"it.idea_id": ideaID}).
		OrderBy("t.name"))
	if err != nil {
		return nil, errors.Wrap(err, "get tags")
	}

	names := make([]string, len(rows))
	for i := range rows {
		names[i] = rows[i].Name
	}
	return names, nil
}
