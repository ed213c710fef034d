package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/redux-content/internal/content"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/pages"
	"github.com/debemdeboas/redux-content/internal/repository"
)

func newCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()

	registry, err := pages.NewRegistry(model.PageDefaultConfig{
		PageID:   "home",
		PageName: "Home",
		EditableElements: []model.Element{
			{ID: "title", Type: model.TypeText, Content: model.TextContent("REDUX")},
		},
	})
	require.NoError(t, err)

	repo := repository.NewMemoryRepository()
	out := &bytes.Buffer{}
	return &CLI{
		Out:      out,
		Resolver: content.NewResolver(repo, registry, 0),
		Workflow: content.NewWorkflow(repo, content.WorkflowOptions{}),
		Auditor:  content.NewAuditor(repo, 0),
	}, out
}

func writeElements(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elements.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCLI(t *testing.T) {
	ctx := context.Background()
	cli, out := newCLI(t)

	t.Run("Show falls back to the default", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"show", "home"}))
		assert.Contains(t, out.String(), "default configuration")
		assert.Contains(t, out.String(), "REDUX")
	})

	t.Run("Publish then draft", func(t *testing.T) {
		file := writeElements(t, `[{"id":"title","type":"text","content":"REDUX 2.0"}]`)

		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"publish", "home", "-file", file, "-author", "ana", "-note", "launch"}))
		assert.Contains(t, out.String(), "version 1 (published)")

		draft := writeElements(t, `[{"id":"title","type":"text","content":"REDUX 3.0"}]`)
		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"draft", "home", "-file", draft, "-author", "bo"}))
		assert.Contains(t, out.String(), "version 2 (draft)")
	})

	t.Run("Show respects drafts flag", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"show", "home"}))
		assert.Contains(t, out.String(), "REDUX 2.0")

		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"show", "home", "-drafts"}))
		assert.Contains(t, out.String(), "REDUX 3.0")
		assert.Contains(t, out.String(), "(draft)")
	})

	t.Run("Pages lists state", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"pages"}))
		assert.Contains(t, out.String(), string(model.StatePublishedWithDraft))
	})

	t.Run("Revert and history", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"revert", "home", "1", "-author", "cy"}))
		assert.Contains(t, out.String(), "version 3 (published)")

		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"history", "home"}))
		assert.Contains(t, out.String(), "launch")
		assert.Contains(t, out.String(), "reverted to v1")
		assert.Contains(t, out.String(), "~title")
	})

	t.Run("History of an empty page", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.Run(ctx, []string{"history", "contact"}))
		assert.Contains(t, out.String(), "no saved versions")
	})
}

func TestCLIErrors(t *testing.T) {
	ctx := context.Background()
	cli, _ := newCLI(t)

	cases := []struct {
		name string
		args []string
		want error
	}{
		{"no command", nil, errUsage},
		{"unknown command", []string{"delete", "home"}, errUsage},
		{"missing page", []string{"show"}, errUsage},
		{"missing file", []string{"draft", "home", "-author", "ana"}, errUsage},
		{"bad version", []string{"revert", "home", "one"}, errUsage},
		{"unknown page", []string{"show", "nowhere"}, model.ErrPageConfigNotFound},
		{"missing revert target", []string{"revert", "home", "9", "-author", "ana"}, model.ErrVersionNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, cli.Run(ctx, tc.args), tc.want)
		})
	}

	t.Run("Malformed elements", func(t *testing.T) {
		file := writeElements(t, `[{"id":"hero","type":"image","content":{"alt":"x"}}]`)
		err := cli.Run(ctx, []string{"draft", "home", "-file", file, "-author", "ana"})
		assert.ErrorIs(t, err, model.ErrMalformedElement)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "REDUX", truncate("REDUX", 60))

	long := strings.Repeat("é", 70)
	got := truncate(long, 60)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 60, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))

	assert.Equal(t, "x", summarize(model.Element{ID: "t", Type: model.TypeText, Content: model.TextContent("x")}))
}
