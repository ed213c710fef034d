package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/repository"
)

func text(id, value string) []model.Element {
	return []model.Element{{ID: id, Type: model.TypeText, Content: model.TextContent(value)}}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src := repository.NewMemoryRepository()
	dst := repository.NewMemoryRepository()

	_, err := src.Append(ctx, "home", text("title", "REDUX"), "ana", "first", true)
	require.NoError(t, err)
	_, err = src.Append(ctx, "home", text("title", "REDUX 2.0"), "bo", "draft", false)
	require.NoError(t, err)
	_, err = src.Append(ctx, "about", text("bio", "hi"), "ana", "", false)
	require.NoError(t, err)

	_, err = dst.Append(ctx, "about", text("bio", "already here"), "cy", "", true)
	require.NoError(t, err)

	s, err := migrate(ctx, zerolog.Nop(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, stats{Pages: 1, Skipped: 1, Versions: 2}, s)

	history, err := dst.History(ctx, "home")
	require.NoError(t, err)
	require.Len(t, history, 2)

	original, err := src.History(ctx, "home")
	require.NoError(t, err)
	for i := range history {
		assert.Equal(t, original[i].ID, history[i].ID)
		assert.True(t, original[i].CreatedAt.Equal(history[i].CreatedAt), "createdAt of v%d", i+1)
		assert.Equal(t, original[i].ContentHash, history[i].ContentHash)
	}
	assert.True(t, history[0].Published)
	assert.False(t, history[1].Published)
	assert.Equal(t, model.AuthorID("bo"), history[1].AuthorID)
	assert.Equal(t, "draft", history[1].Note)
	assert.Equal(t, model.TextContent("REDUX 2.0"), history[1].Elements[0].Content)

	about, err := dst.Latest(ctx, "about", repository.LatestOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.AuthorID("cy"), about.AuthorID)
}

// unavailableDestination reads normally and fails every import.
type unavailableDestination struct {
	*repository.MemoryRepository
}

func (unavailableDestination) Import(ctx context.Context, v model.ContentVersion) (*model.ContentVersion, error) {
	return nil, model.ErrStorageUnavailable
}

func TestMigrateStopsOnError(t *testing.T) {
	ctx := context.Background()
	src := repository.NewMemoryRepository()
	_, err := src.Append(ctx, "home", text("title", "REDUX"), "ana", "", true)
	require.NoError(t, err)

	s, err := migrate(ctx, zerolog.Nop(), src, unavailableDestination{repository.NewMemoryRepository()})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.Zero(t, s.Pages)
}
