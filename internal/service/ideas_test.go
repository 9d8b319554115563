package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/db"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/models"
)

func newTestIdeas(t *testing.T) *Ideas {
	t.Helper()
	gdb, err := db.Open(db.DSN(filepath.Join(t.TempDir(), "ideas.db")), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewIdeas(gdb, zap.NewNop().Sugar())
}

func strp(s string) *string {
	return &s
}

func create(t *testing.T, s *Ideas, body string, tags []string, bornWith ...int64) *models.IdeaResp {
	t.Helper()
	resp, err := s.Create(context.Background(), models.IdeaCreateReq{
		IdeaUpdateReq: models.IdeaUpdateReq{
			Body:        strp(body),
			Tags:        tags,
			BornWithIDs: bornWith,
		},
	})
	require.NoError(t, err)
	return resp
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"b", "A", "a"}, NormalizeTags([]string{" b", "", "A ", "  ", "a", "b"}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestNormalizeBlockers(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "b"}, NormalizeBlockers([]string{" b ", "", "a", "b", "\t"}))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, SplitTags(" x, ,y,x"))
	assert.Nil(t, SplitTags(""))
}

func TestCreate(t *testing.T) {
	s := newTestIdeas(t)
	ctx := context.Background()

	t.Run("defaults and normalization", func(t *testing.T) {
		resp, err := s.Create(ctx, models.IdeaCreateReq{
			IdeaUpdateReq: models.IdeaUpdateReq{
				Body:     strp("write a parser"),
				Tags:     []string{" zeta", "Alpha", "", "zeta ", "beta"},
				Blockers: []string{"b", "  ", "a", "c"},
			},
		})
		require.NoError(t, err)

		assert.NotZero(t, resp.IdeaID)
		assert.Equal(t, "write a parser", resp.Body)
		assert.Equal(t, models.StatusActive, resp.Status)
		assert.Equal(t, []string{"Alpha", "beta", "zeta"}, resp.Tags)
		assert.Equal(t, []string{"b", "a", "c"}, resp.Blockers)
		assert.Empty(t, resp.BornWith)
	})

	t.Run("explicit status", func(t *testing.T) {
		resp, err := s.Create(ctx, models.IdeaCreateReq{
			IdeaUpdateReq: models.IdeaUpdateReq{Body: strp("later")},
			Status:        models.StatusTransfer,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusTransfer, resp.Status)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := s.Create(ctx, models.IdeaCreateReq{
			IdeaUpdateReq: models.IdeaUpdateReq{Body: strp("x")},
			Status:        "archived",
		})
		assert.True(t, errors.Is(err, ErrInvalidStatus))
	})

	t.Run("tags are shared", func(t *testing.T) {
		a := create(t, s, "a", []string{"shared"})
		b := create(t, s, "b", []string{"shared"})
		assert.Equal(t, []string{"shared"}, a.Tags)
		assert.Equal(t, []string{"shared"}, b.Tags)

		var count int64
		require.NoError(t, s.db.Table("tags").Where("name = ?", "shared").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestCreateUnknownLinkRollsBack(t *testing.T) {
	s := newTestIdeas(t)

	_, err := s.Create(context.Background(), models.IdeaCreateReq{
		IdeaUpdateReq: models.IdeaUpdateReq{
			Body:        strp("orphan"),
			Tags:        []string{"t"},
			BornWithIDs: []int64{777},
		},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrIdeaNotFound))

	var count int64
	require.NoError(t, s.db.Table("ideas").Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, s.db.Table("idea_tags").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestBornWithSymmetry(t *testing.T) {
	s := newTestIdeas(t)
	ctx := context.Background()

	b := create(t, s, "b", []string{"y", "x"})
	a := create(t, s, "a", nil, b.IdeaID, b.IdeaID)

	require.Len(t, a.BornWith, 1)
	assert.Equal(t, models.IdeaLinkResp{IdeaID: b.IdeaID, Body: "b", Tags: []string{"x", "y"}}, a.BornWith[0])

	got, err := s.Get(ctx, b.IdeaID)
	require.NoError(t, err)
	require.Len(t, got.BornWith, 1)
	assert.Equal(t, a.IdeaID, got.BornWith[0].IdeaID)
	assert.Equal(t, "a", got.BornWith[0].Body)
	assert.Empty(t, got.BornWith[0].Tags)
}

func TestSelfLinkIgnored(t *testing.T) {
	s := newTestIdeas(t)
	ctx := context.Background()

	a := create(t, s, "a", nil)
	b := create(t, s, "b", nil)

	got, err := s.Update(ctx, a.IdeaID, models.IdeaUpdateReq{
		Body:        strp("a"),
		BornWithIDs: []int64{a.IdeaID, b.IdeaID, a.IdeaID},
	})
	require.NoError(t, err)
	require.Len(t, got.BornWith, 1)
	assert.Equal(t, b.IdeaID, got.BornWith[0].IdeaID)
}

func TestUpdate(t *testing.T) {
	s := newTestIdeas(t)
	ctx := context.Background()

	b := create(t, s, "b", nil)
	c := create(t, s, "c", nil)
	a, err := s.Create(ctx, models.IdeaCreateReq{
		IdeaUpdateReq: models.IdeaUpdateReq{
			Body:        strp("old"),
			Tags:        []string{"old-tag", "kept"},
			Blockers:    []string{"first", "second"},
			BornWithIDs: []int64{b.IdeaID},
		},
		Status: models.StatusExecute,
	})
	require.NoError(t, err)

	t.Run("replaces everything but status", func(t *testing.T) {
		got, err := s.Update(ctx, a.IdeaID, models.IdeaUpdateReq{
			Body:        strp("new"),
			Tags:        []string{"kept", "new-tag"},
			Blockers:    []string{"only"},
			BornWithIDs: []int64{c.IdeaID},
		})
		require.NoError(t, err)

		assert.Equal(t, "new", got.Body)
		assert.Equal(t, models.StatusExecute, got.Status)
		assert.Equal(t, []string{"kept", "new-tag"}, got.Tags)
		assert.Equal(t, []string{"only"}, got.Blockers)
		require.Len(t, got.BornWith, 1)
		assert.Equal(t, c.IdeaID, got.BornWith[0].IdeaID)

		refetched, err := s.Get(ctx, a.IdeaID)
		require.NoError(t, err)
		assert.Equal(t, got, refetched)

		oldPeer, err := s.Get(ctx, b.IdeaID)
		require.NoError(t, err)
		assert.Empty(t, oldPeer.BornWith)
	})

	t.Run("clears with empty lists", func(t *testing.T) {
		got, err := s.Update(ctx, a.IdeaID, models.IdeaUpdateReq{Body: strp("bare")})
		require.NoError(t, err)

		assert.Empty(t, got.Tags)
		assert.Empty(t, got.Blockers)
		assert.Empty(t, got.BornWith)

		peer, err := s.Get(ctx, c.IdeaID)
		require.NoError(t, err)
		assert.Empty(t, peer.BornWith)
	})

	t.Run("missing idea", func(t *testing.T) {
		_, err := s.Update(ctx, 9999, models.IdeaUpdateReq{Body: strp("x")})
		assert.True(t, errors.Is(err, ErrIdeaNotFound))
	})
}

func TestGetMissing(t *testing.T) {
	s := newTestIdeas(t)

	_, err := s.Get(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrIdeaNotFound))
}

func TestSetStatus(t *testing.T) {
	s := newTestIdeas(t)
	ctx := context.Background()

	a := create(t, s, "a", []string{"t"})

	for _, status := range []string{models.StatusExecute, models.StatusDeleted, models.StatusActive, models.StatusTransfer} {
		got, err := s.SetStatus(ctx, a.IdeaID, status)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
		assert.Equal(t, []string{"t"}, got.Tags)
	}

	_, err := s.SetStatus(ctx, a.IdeaID+1, models.StatusExecute)
	assert.True(t, errors.Is(err, ErrIdeaNotFound))

	_, err = s.SetStatus(ctx, a.IdeaID, "done")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestRandom(t *testing.T) {
	s := newTestIdeas(t)
	ctx := context.Background()

	_, err := s.Random(ctx, "")
	assert.True(t, errors.Is(err, ErrIdeaNotFound))

	a := create(t, s, "a", nil)
	b := create(t, s, "b", nil)
	_, err = s.SetStatus(ctx, b.IdeaID, models.StatusDeleted)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		got, err := s.Random(ctx, models.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, a.IdeaID, got.IdeaID)
	}

	got, err := s.Random(ctx, models.StatusDeleted)
	require.NoError(t, err)
	assert.Equal(t, b.IdeaID, got.IdeaID)

	_, err = s.Random(ctx, models.StatusExecute)
	assert.True(t, errors.Is(err, ErrIdeaNotFound))
}

func TestSearch(t *testing.T) {
	s := newTestIdeas(t)
	ctx := context.Background()

	x := create(t, s, "build a kite", []string{"x"})
	xy := create(t, s, "build a boat", []string{"x", "y"})
	y := create(t, s, "paint a fence", []string{"y"})
	gone := create(t, s, "build a shed", []string{"x"})
	_, err := s.SetStatus(ctx, gone.IdeaID, models.StatusDeleted)
	require.NoError(t, err)

	ids := func(results []models.IdeaSearchResp) []int64 {
		out := make([]int64, len(results))
		for i := range results {
			out[i] = results[i].IdeaID
		}
		return out
	}

	t.Run("tags are conjunctive", func(t *testing.T) {
		got, err := s.Search(ctx, models.IdeaSearchReq{Tags: "x,y"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.IdeaSearchResp{IdeaID: xy.IdeaID, Body: "build a boat", Tags: []string{"x", "y"}}, got[0])
	})

	t.Run("keyword", func(t *testing.T) {
		got, err := s.Search(ctx, models.IdeaSearchReq{Keyword: "build"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{x.IdeaID, xy.IdeaID}, ids(got))
	})

	t.Run("keyword and tag", func(t *testing.T) {
		got, err := s.Search(ctx, models.IdeaSearchReq{Keyword: "a", Tags: " y "})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{xy.IdeaID, y.IdeaID}, ids(got))
	})

	t.Run("status filter", func(t *testing.T) {
		got, err := s.Search(ctx, models.IdeaSearchReq{Tags: "x", Status: models.StatusDeleted})
		require.NoError(t, err)
		assert.Equal(t, []int64{gone.IdeaID}, ids(got))
	})

	t.Run("most recently updated first", func(t *testing.T) {
		time.Sleep(5 * time.Millisecond)
		_, err := s.Update(ctx, x.IdeaID, models.IdeaUpdateReq{Body: strp("build a kite"), Tags: []string{"x"}})
		require.NoError(t, err)

		got, err := s.Search(ctx, models.IdeaSearchReq{Tags: "x"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, x.IdeaID, got[0].IdeaID)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := s.Search(ctx, models.IdeaSearchReq{Tags: "x,z"})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("suggest pins active", func(t *testing.T) {
		got, err := s.Suggest(ctx, "shed", "")
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.Suggest(ctx, "paint", "y")
		require.NoError(t, err)
		assert.Equal(t, []int64{y.IdeaID}, ids(got))
	})
}
