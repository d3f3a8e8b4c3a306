// Package diff compares the latest snapshots of two sources.
package diff

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dtnitsch/leakdiff/internal/common"
	"github.com/dtnitsch/leakdiff/models"
	"github.com/dtnitsch/leakdiff/pkg/artifact_manager"
	"github.com/dtnitsch/leakdiff/pkg/compare"
	"github.com/dtnitsch/leakdiff/pkg/parser"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

// DiffAction loads the latest snapshot of two sources for one category and
// prints them side by side. The sources default to the first two configured.
func DiffAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	category := c.String("category")
	if _, ok := cfg.Target(category); !ok {
		return cli.Exit(fmt.Sprintf("Error: unknown category %q", category), 2)
	}

	left, right, err := pickSources(cfg, c.Args().Slice())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	manager := artifact_manager.NewManager(cfg.DataDir)
	leftSnap, err := latest(manager, category, left)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	rightSnap, err := latest(manager, category, right)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	Render(os.Stdout, leftSnap, rightSnap, c.Bool("only-diff"))
	return nil
}

func pickSources(cfg *models.Config, args []string) (string, string, error) {
	switch len(args) {
	case 0:
		if len(cfg.Sources) < 2 {
			return "", "", fmt.Errorf("need two sources to compare, %d configured", len(cfg.Sources))
		}
		return cfg.Sources[0].Name, cfg.Sources[1].Name, nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", fmt.Errorf("expected two source names, got %d", len(args))
	}
}

func latest(m *artifact_manager.Manager, category, source string) (*models.Snapshot, error) {
	path, ok, err := m.Latest(category, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s snapshots of %s: %w", category, source, err)
	}
	if !ok {
		available, _ := m.Sources(category)
		if len(available) == 0 {
			return nil, fmt.Errorf("no %s snapshots under %s. Run 'leakdiff collect --category %s' first", category, m.BaseDir(), category)
		}
		return nil, fmt.Errorf("no %s snapshot for %s (available: %s)", category, source, strings.Join(available, ", "))
	}
	return m.Load(path)
}

// Render writes the field comparison table followed by a summary line.
func Render(w io.Writer, left, right *models.Snapshot, onlyDiff bool) {
	for _, s := range []*models.Snapshot{left, right} {
		fmt.Fprintf(w, "%s  %s", s.Meta.Browser, s.Meta.Timestamp)
		if ua := parser.DescribeUserAgent(s.Meta.UserAgent); ua != "" {
			fmt.Fprintf(w, "  (%s)", ua)
		}
		fmt.Fprintln(w)
		if s.Meta.Error != "" {
			fmt.Fprintf(w, "[WARN] %s snapshot failed: %s\n", s.Meta.Browser, s.Meta.Error)
		}
	}

	rows := compare.Fields(left.Data, right.Data)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", left.Meta.Browser, right.Meta.Browser, ""})
	for _, r := range rows {
		if onlyDiff && r.Equal {
			continue
		}
		mark := ""
		if !r.Equal {
			mark = "*"
		}
		t.AppendRow(table.Row{r.Key, r.Left, r.Right, mark})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	equal, differ := compare.Summary(rows)
	fmt.Fprintf(w, "%d fields: %d equal, %d differ\n", len(rows), equal, differ)
}
