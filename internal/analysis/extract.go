package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianndofor/wif/internal/oracle"
	"github.com/brianndofor/wif/internal/sdkmap"
)

func clarification(message string) *Result {
	return &Result{Kind: KindClarification, Message: message}
}

// extract reads the report. A report missing its SDK or version ends the run
// with a clarification naming what is missing.
func (p *Pipeline) extract(ctx context.Context, report string) (oracle.Extraction, *Result, error) {
	ext, err := p.oracle.ExtractRequest(ctx, report)
	if err != nil {
		return oracle.Extraction{}, nil, err
	}
	var missing []string
	if ext.SDK == "" {
		missing = append(missing, "SDK")
	}
	if ext.Version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return ext, clarification(fmt.Sprintf("Could not determine %s. Please clarify.", strings.Join(missing, " and "))), nil
	}
	return ext, nil, nil
}

// resolveRepository maps the SDK to a repository through the static table,
// falling back to the oracle. Oracle failures here are not fatal.
func (p *Pipeline) resolveRepository(ctx context.Context, sdk, report string) (string, *Result) {
	if repo, ok := p.sdks.Repository(sdk); ok {
		return repo, nil
	}
	guess, err := p.oracle.ResolveRepository(ctx, sdk, report)
	switch {
	case err != nil:
		p.logger.Warnw("repository inference failed", "sdk", sdk, "error", err)
	case sdkmap.ValidSlug(guess.Slug()):
		p.logger.Infow("repository inferred", "sdk", sdk, "repo", guess.Slug(), "confidence", guess.Confidence)
		return guess.Slug(), nil
	default:
		p.logger.Infow("repository inference inconclusive", "sdk", sdk, "confidence", guess.Confidence, "reasoning", guess.Reasoning)
	}
	return "", clarification(fmt.Sprintf("Could not map SDK %q to a repository. Please specify the GitHub repo.", sdk))
}
