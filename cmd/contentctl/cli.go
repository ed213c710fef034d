package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/debemdeboas/redux-content/internal/content"
	"github.com/debemdeboas/redux-content/internal/model"
)

var (
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
	publishedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var errUsage = errors.New("invalid usage, run contentctl -h")

type CLI struct {
	Out      io.Writer
	Resolver *content.Resolver
	Workflow *content.Workflow
	Auditor  *content.Auditor
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "pages":
		return c.pages(ctx)
	case "history":
		return c.history(ctx, args)
	case "show":
		return c.show(ctx, args)
	case "draft":
		return c.save(ctx, args, false)
	case "publish":
		return c.save(ctx, args, true)
	case "revert":
		return c.revert(ctx, args)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// pageArg splits the leading page id from the command's flags.
func pageArg(args []string) (model.PageID, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, fmt.Errorf("page id required: %w", errUsage)
	}
	return model.PageID(args[0]), args[1:], nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...)
}

func (c *CLI) pages(ctx context.Context) error {
	ids, err := c.Resolver.PageIDs(ctx)
	if err != nil {
		return err
	}

	t := newTable("PAGE", "STATE").StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	for _, id := range ids {
		state, err := c.Workflow.State(ctx, model.PageID(id))
		if err != nil {
			return err
		}
		t.Row(id, string(state))
	}

	fmt.Fprintln(c.Out, t.Render())
	return nil
}

func (c *CLI) history(ctx context.Context, args []string) error {
	pageID, _, err := pageArg(args)
	if err != nil {
		return err
	}

	trail, err := c.Auditor.Trail(ctx, pageID)
	if err != nil {
		return err
	}
	if len(trail) == 0 {
		fmt.Fprintf(c.Out, "%s has no saved versions\n", pageID)
		return nil
	}

	rows := make([][]string, 0, len(trail))
	for _, e := range trail {
		published := ""
		if e.Published {
			published = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Version),
			e.CreatedAt.Local().Format(time.DateTime),
			string(e.AuthorID),
			published,
			e.Note,
			changeSummary(e),
		})
	}

	t := newTable("VERSION", "CREATED", "AUTHOR", "PUBLISHED", "NOTE", "CHANGES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(rows) && rows[row][3] != "":
				return publishedStyle
			default:
				return cellStyle
			}
		})

	fmt.Fprintln(c.Out, titleStyle.Render(string(pageID)))
	fmt.Fprintln(c.Out, t.Render())
	return nil
}

func changeSummary(e content.AuditEntry) string {
	var parts []string
	if len(e.Added) > 0 {
		parts = append(parts, "+"+strings.Join(e.Added, ",+"))
	}
	if len(e.Removed) > 0 {
		parts = append(parts, "-"+strings.Join(e.Removed, ",-"))
	}
	if len(e.Modified) > 0 {
		parts = append(parts, "~"+strings.Join(e.Modified, ",~"))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, " ")
}

func (c *CLI) show(ctx context.Context, args []string) error {
	pageID, rest, err := pageArg(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	drafts := fs.Bool("drafts", false, "include unpublished drafts")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	page, err := c.Resolver.Resolve(ctx, pageID, content.ResolveOptions{IncludeDrafts: *drafts})
	if err != nil {
		return err
	}

	source := "default configuration"
	if page.Version != nil {
		source = fmt.Sprintf("version %d by %s", page.Version.Version, page.Version.AuthorID)
		if !page.Version.Published {
			source += " (draft)"
		}
	}
	fmt.Fprintln(c.Out, titleStyle.Render(fmt.Sprintf("%s: %s", pageID, source)))

	t := newTable("ID", "TYPE", "SECTION", "CONTENT").StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	for _, el := range page.Elements {
		t.Row(el.ID, string(el.Type), el.Metadata.SectionID, summarize(el))
	}

	fmt.Fprintln(c.Out, t.Render())
	return nil
}

func summarize(el model.Element) string {
	switch v := el.Content.(type) {
	case model.TextContent:
		return truncate(string(v), 60)
	case model.ImageContent:
		return v.URL
	case model.VideoContent:
		return v.URL
	case model.ListContent:
		return fmt.Sprintf("%d items", len(v))
	default:
		return ""
	}
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func (c *CLI) save(ctx context.Context, args []string, publish bool) error {
	pageID, rest, err := pageArg(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "JSON file holding the element array")
	author := fs.String("author", "", "author id")
	note := fs.String("note", "", "change note")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if *file == "" {
		return fmt.Errorf("-file required: %w", errUsage)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	var elements []model.Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return fmt.Errorf("reading %s: %w", *file, err)
	}

	var v *model.ContentVersion
	if publish {
		v, err = c.Workflow.SaveAndPublish(ctx, pageID, elements, model.AuthorID(*author), *note)
	} else {
		v, err = c.Workflow.SaveDraft(ctx, pageID, elements, model.AuthorID(*author), *note)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, savedMessage(v))
	return nil
}

func (c *CLI) revert(ctx context.Context, args []string) error {
	pageID, rest, err := pageArg(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("version required: %w", errUsage)
	}

	version, err := strconv.Atoi(rest[0])
	if err != nil {
		return fmt.Errorf("version %q: %w", rest[0], errUsage)
	}

	fs := flag.NewFlagSet("revert", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	author := fs.String("author", "", "author id")
	if err := fs.Parse(rest[1:]); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	v, err := c.Workflow.Revert(ctx, pageID, version, model.AuthorID(*author))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, savedMessage(v))
	return nil
}

func savedMessage(v *model.ContentVersion) string {
	state := "draft"
	if v.Published {
		state = "published"
	}
	return publishedStyle.UnsetPadding().Render(fmt.Sprintf("Saved %s as version %d (%s)", v.PageID, v.Version, state))
}
