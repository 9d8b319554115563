package service

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/db"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/models"
)

const (
	ideaColumns = "idea_id, body, status, created_at, updated_at"

	hasTag = "EXISTS (SELECT 1 FROM idea_tags it JOIN tags t ON t.tag_id = it.tag_id " +
		"WHERE it.idea_id = i.idea_id AND t.name = ?)"
)

var (
	ErrIdeaNotFound  = errors.New("idea not found")
	ErrInvalidStatus = errors.New("invalid status")

	Module = fx.Provide(
		NewIdeas,
	)
)

type Ideas struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewIdeas(db *gorm.DB, l *zap.SugaredLogger) *Ideas {
	return &Ideas{
		db:     db,
		logger: l,
	}
}

// Random picks one idea uniformly among those with the given status.
func (s *Ideas) Random(ctx context.Context, status string) (*models.IdeaResp, error) {
	if status == "" {
		status = models.StatusActive
	}

	var resp *models.IdeaResp
	err := db.Transact(ctx, s.db, func(st *db.Store) error {
		row := db.Idea{}
		ok, err := st.FetchOne(&row, squirrel.
			Select(ideaColumns).From("ideas").
			Where(squirrel.Eq{"status": status}).
			OrderBy("RANDOM()").
			Limit(1))
		if err != nil {
			return errors.Wrap(err, "pick random idea")
		}
		if !ok {
			return ErrIdeaNotFound
		}
		resp, err = assemble(st, &row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Ideas) Get(ctx context.Context, id int64) (*models.IdeaResp, error) {
	var resp *models.IdeaResp
	err := db.Transact(ctx, s.db, func(st *db.Store) error {
		var err error
		resp, err = get(st, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Ideas) Create(ctx context.Context, req models.IdeaCreateReq) (*models.IdeaResp, error) {
	status := req.Status
	if status == "" {
		status = models.StatusActive
	}
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var resp *models.IdeaResp
	err := db.Transact(ctx, s.db, func(st *db.Store) error {
		row := db.Idea{}
		_, err := st.FetchOne(&row, squirrel.
			Insert("ideas").
			Columns("body", "status").
			Values(bodyOf(req.IdeaUpdateReq), status).
			Suffix("RETURNING "+ideaColumns))
		if err != nil {
			return errors.Wrap(err, "insert idea")
		}

		if err := replaceContents(st, row.ID, req.IdeaUpdateReq); err != nil {
			return err
		}

		resp, err = get(st, row.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("idea created", "idea_id", resp.IdeaID, "status", resp.Status)
	return resp, nil
}

// Update replaces body, tags, blockers and born_with links. Status is untouched.
func (s *Ideas) Update(ctx context.Context, id int64, req models.IdeaUpdateReq) (*models.IdeaResp, error) {
	var resp *models.IdeaResp
	err := db.Transact(ctx, s.db, func(st *db.Store) error {
		n, err := st.Exec(squirrel.
			Update("ideas").
			Set("body", bodyOf(req)).
			Set("updated_at", db.NowExpr).
			Where(squirrel.Eq{"idea_id": id}))
		if err != nil {
			return errors.Wrap(err, "update idea")
		}
		if n == 0 {
			return ErrIdeaNotFound
		}

		if err := replaceContents(st, id, req); err != nil {
			return err
		}

		resp, err = get(st, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("idea updated", "idea_id", id)
	return resp, nil
}

func (s *Ideas) SetStatus(ctx context.Context, id int64, status string) (*models.IdeaResp, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var resp *models.IdeaResp
	err := db.Transact(ctx, s.db, func(st *db.Store) error {
		n, err := st.Exec(squirrel.
			Update("ideas").
			Set("status", status).
			Set("updated_at", db.NowExpr).
			Where(squirrel.Eq{"idea_id": id}))
		if err != nil {
			return errors.Wrap(err, "update status")
		}
		if n == 0 {
			return ErrIdeaNotFound
		}

		resp, err = get(st, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("idea status changed", "idea_id", id, "status", status)
	return resp, nil
}

// Search returns ideas with the given status (default active) whose body
// contains the keyword and which carry every listed tag. Most recently
// updated first.
func (s *Ideas) Search(ctx context.Context, req models.IdeaSearchReq) ([]models.IdeaSearchResp, error) {
	status := req.Status
	if status == "" {
		status = models.StatusActive
	}

	q := squirrel.
		Select("i.idea_id", "i.body").Distinct().
		From("ideas i").
		Where(squirrel.Eq{"i.status": status})
	if req.Keyword != "" {
		q = q.Where(squirrel.Like{"i.body": "%" + req.Keyword + "%"})
	}
	for _, tag := range SplitTags(req.Tags) {
		q = q.Where(hasTag, tag)
	}
	q = q.OrderBy("i.updated_at DESC", "i.idea_id DESC")

	results := make([]models.IdeaSearchResp, 0)
	err := db.Transact(ctx, s.db, func(st *db.Store) error {
		rows := make([]db.Idea, 0)
		if err := st.FetchAll(&rows, q); err != nil {
			return errors.Wrap(err, "search ideas")
		}

		for i := range rows {
			tags, err := tagNames(st, rows[i].ID)
			if err != nil {
				return err
			}
			results = append(results, models.IdeaSearchResp{
				IdeaID: rows[i].ID,
				Body:   rows[i].Body,
				Tags:   tags,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Suggest is Search restricted to active ideas.
func (s *Ideas) Suggest(ctx context.Context, keyword, tags string) ([]models.IdeaSearchResp, error) {
	return s.Search(ctx, models.IdeaSearchReq{
		Keyword: keyword,
		Tags:    tags,
		Status:  models.StatusActive,
	})
}

func bodyOf(req models.IdeaUpdateReq) string {
	if req.Body == nil {
		return ""
	}
	return *req.Body
}

func replaceContents(st *db.Store, ideaID int64, req models.IdeaUpdateReq) error {
	if err := replaceTags(st, ideaID, req.Tags); err != nil {
		return err
	}
	if err := replaceBlockers(st, ideaID, req.Blockers); err != nil {
		return err
	}
	if err := st.SetSymmetricNeighbors(ideaID, db.LinkTypeBornWith, req.BornWithIDs); err != nil {
		return errors.Wrap(err, "replace links")
	}
	return nil
}
