package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianndofor/wif/internal/oracle"
	"github.com/brianndofor/wif/internal/sdkmap"
	"github.com/brianndofor/wif/internal/version"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pipeline runs the issue-resolution stages. It holds no per-run state and
// is safe to reuse across runs.
type Pipeline struct {
	oracle oracle.Oracle
	host   CodeHost
	sdks   *sdkmap.Table
	opts   Options
	logger *zap.SugaredLogger
}

func New(o oracle.Oracle, host CodeHost, sdks *sdkmap.Table, opts Options, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{oracle: o, host: host, sdks: sdks, opts: opts.withDefaults(), logger: logger}
}

// Run analyses one report, keeping a progress message up to date through
// chat and posting the rendered result when done. Oracle and chat failures
// the stages do not handle are returned.
func (p *Pipeline) Run(ctx context.Context, chat Chat, req Request) (Result, error) {
	if chat == nil {
		return Result{}, ErrNoChat
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	logger := p.logger.With("run_id", req.RunID)
	start := time.Now()

	progress, err := startReporter(ctx, chat, "Analyzing…", logger)
	if err != nil {
		return Result{}, fmt.Errorf("failed to post progress: %w", err)
	}
	defer progress.Close()
	res, err := p.analyze(ctx, req, progress)
	if err != nil {
		return Result{}, err
	}
	res.RunID = req.RunID
	if base := strings.TrimRight(p.opts.TraceURLBase, "/"); base != "" {
		res.Trace.TraceURL = base + "/" + req.RunID
	}
	res.Rendered = p.render(res)

	last := "Done."
	if res.Kind == KindClarification {
		last = res.Message
	}
	progress.Finish(last)

	if _, err := chat.PostMessage(ctx, res.Rendered); err != nil {
		return res, fmt.Errorf("failed to post result: %w", err)
	}
	logger.Infow("analysis finished",
		"kind", res.Kind,
		"repo", res.Repo,
		"version", res.ReportedVersion,
		"candidates", len(res.Candidates),
		"steps", progress.Trail().Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) analyze(ctx context.Context, req Request, progress *reporter) (Result, error) {
	report := req.context()

	ext, term, err := p.extract(ctx, report)
	if err != nil {
		return Result{}, err
	}
	if term != nil {
		term.SDK, term.ReportedVersion = ext.SDK, ext.Version
		return *term, nil
	}

	repo, term := p.resolveRepository(ctx, ext.SDK, report)
	if term != nil {
		term.SDK, term.ReportedVersion = ext.SDK, ext.Version
		return *term, nil
	}

	res := Result{SDK: ext.SDK, ReportedVersion: ext.Version, Repo: repo}

	if len(ext.Links) > 0 {
		progress.Append("Checking linked issues…")
		links := p.checkLinks(ctx, ext.Links, linkInput{
			reported: ext.Version,
			repo:     repo,
			problem:  ext.Problem,
			report:   report,
		})
		res.Trace.Skipped = links.skipped
		if links.hit != nil {
			one := 1
			res.Kind = KindHighConfidence
			res.Candidates = []Candidate{*links.hit}
			res.Trace.FirstRelease = links.hit.Version
			res.Trace.LastRelease = links.hit.Version
			res.Trace.ReleaseCount = &one
			res.Trace.Evaluated = []int{links.hit.PRNumber}
			return res, nil
		}
	}

	progress.Append(fmt.Sprintf("Resolving releases for %s after %s…", repo, version.Display(ext.Version)))
	releases, term := p.fetchReleaseRange(ctx, repo, ext.Version)
	if term != nil {
		res.Kind, res.Message = term.Kind, term.Message
		if term.Kind == KindTooOld || term.Kind == KindAlreadyLatest {
			zero := 0
			res.Trace.ReleaseCount = &zero
		}
		return res, nil
	}

	first, last := releases[0].Tag, releases[len(releases)-1].Tag
	progress.Append(fmt.Sprintf("Scanning releases `%s`–`%s` (`%d` releases)…", version.Display(first), version.Display(last), len(releases)))
	st, err := p.scan(ctx, scanInput{
		releases: releases,
		problem:  ext.Problem,
		repo:     repo,
		report:   report,
	}, func(done, total int) {
		progress.Append(fmt.Sprintf("Scanned `%d` of `%d` releases…", done, total))
	})
	if err != nil {
		return Result{}, err
	}

	count := len(releases)
	res.Kind, res.Candidates = aggregate(st)
	res.Trace.Skipped = append(res.Trace.Skipped, st.skipped...)
	res.Trace.FirstRelease = first
	res.Trace.LastRelease = last
	res.Trace.ReleaseCount = &count
	res.Trace.Evaluated = prNumbers(res.Candidates)
	if res.Kind == KindHighConfidence {
		res.Trace.LastRelease = res.Candidates[0].Version
	}
	return res, nil
}
