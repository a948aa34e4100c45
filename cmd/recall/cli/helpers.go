package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/recallhq/cli/cmd/recall/cli/gitexec"
	"github.com/recallhq/cli/cmd/recall/cli/index"
	"github.com/recallhq/cli/cmd/recall/cli/paths"
	"github.com/recallhq/cli/cmd/recall/cli/rlm"
)

// loadFreshIndex loads the persisted trailer index, returning nil when it is
// absent or stale relative to the current HEAD.
func loadFreshIndex(ctx context.Context) (*index.TrailerIndex, error) {
	path, err := paths.TrailerIndexPath()
	if err != nil {
		return nil, err
	}
	head, err := gitexec.Head(ctx, nil)
	if err != nil {
		return nil, err
	}
	return index.Load(path, head)
}

// queryIndexOrFallback answers params from the fresh index, or straight from
// git log --grep when no fresh index exists.
func queryIndexOrFallback(ctx context.Context, p index.QueryParams) ([]index.IndexedCommit, bool, error) {
	ix, err := loadFreshIndex(ctx)
	if err != nil {
		return nil, false, err
	}
	if ix != nil {
		return ix.Query(p), true, nil
	}
	results, err := index.FallbackQuery(ctx, nil, p)
	return results, false, err
}

// loadRlmConfig reads <git-dir>/info/rlm-config.json, defaulting on absence.
func loadRlmConfig() (rlm.Config, error) {
	path, err := paths.RlmConfigPath()
	if err != nil {
		return rlm.DefaultConfig(), err
	}
	return rlm.LoadConfig(path)
}

// formatCommitLine renders one query result for terminal output.
func formatCommitLine(c index.IndexedCommit) string {
	line := fmt.Sprintf("%.8s  %s", c.Hash, c.Subject)
	if c.Intent != "" {
		line += fmt.Sprintf("  [%s]", c.Intent)
	}
	if len(c.Scope) > 0 {
		line += fmt.Sprintf("  (%s)", strings.Join(c.Scope, ", "))
	}
	return line
}
