package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/alx/internal/matching"
	"github.com/desertthunder/alx/internal/models"
	"github.com/desertthunder/alx/internal/shared"
)

// DefaultSearchPageSize is the number of search candidates considered per title.
const DefaultSearchPageSize = 20

// ResolutionKind tags a [Resolution].
type ResolutionKind int

const (
	ResolvedNoTitle ResolutionKind = iota
	ResolvedNoMatch
	ResolvedMatch
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedNoTitle:
		return "no_title"
	case ResolvedNoMatch:
		return "no_match"
	case ResolvedMatch:
		return "match"
	default:
		return ""
	}
}

// Resolution is the result of resolving one title. Candidate is set only for [ResolvedMatch].
type Resolution struct {
	Kind      ResolutionKind
	Candidate *models.SearchCandidate
	Score     int
	Total     int // candidates the service reported
}

// ScoreFunc returns a 0-100 similarity between two titles.
type ScoreFunc func(a, b string) int

// ResolverOptions configures a [Resolver].
type ResolverOptions struct {
	Threshold int
	PageSize  int
	Score     ScoreFunc
	Logger    *log.Logger
}

// Resolver finds the destination media for a source title.
type Resolver struct {
	searcher  Searcher
	limiter   Limiter
	threshold int
	pageSize  int
	score     ScoreFunc
	logger    *log.Logger
}

// NewResolver creates a resolver. Zero options fall back to [matching.DefaultThreshold],
// [DefaultSearchPageSize] and [matching.Ratio].
func NewResolver(searcher Searcher, limiter Limiter, opts ResolverOptions) *Resolver {
	if opts.Threshold <= 0 {
		opts.Threshold = matching.DefaultThreshold
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultSearchPageSize
	}
	if opts.Score == nil {
		opts.Score = matching.Ratio
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Resolver{
		searcher:  searcher,
		limiter:   limiter,
		threshold: opts.Threshold,
		pageSize:  opts.PageSize,
		score:     opts.Score,
		logger:    opts.Logger,
	}
}

// Resolve searches dest for title and returns the first candidate, in the service's
// popularity order, whose native title scores at least the threshold. A later,
// higher scoring candidate never replaces an earlier accepted one.
//
// A blank title resolves to [ResolvedNoTitle] without a search. Search failures
// wrap [shared.ErrResolve].
func (r *Resolver) Resolve(ctx context.Context, title string, dest models.MediaType) (Resolution, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Resolution{Kind: ResolvedNoTitle}, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", shared.ErrResolve, err)
	}

	result, err := r.searcher.Search(ctx, title, dest, r.pageSize)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %q: %w", shared.ErrResolve, title, err)
	}

	for i := range result.Candidates {
		c := result.Candidates[i]
		native := c.Title.NativeValue()
		if native == "" {
			continue
		}

		score := r.score(title, native)
		if score >= r.threshold {
			r.logger.Debug("resolved", "title", title, "media_id", c.ID, "score", score, "rank", i+1)
			return Resolution{Kind: ResolvedMatch, Candidate: &c, Score: score, Total: result.Total}, nil
		}
	}

	r.logger.Debug("no match", "title", title, "candidates", len(result.Candidates))
	return Resolution{Kind: ResolvedNoMatch, Total: result.Total}, nil
}

// Scored is a search candidate with its similarity to the query.
type Scored struct {
	Candidate models.SearchCandidate
	Score     int
	Accepted  bool // the candidate Resolve would pick
}

// Rank searches dest for title and scores every candidate without stopping at the
// first match. Used to explain a resolution.
func (r *Resolver) Rank(ctx context.Context, title string, dest models.MediaType) ([]Scored, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", shared.ErrInvalidArgument)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrResolve, err)
	}

	result, err := r.searcher.Search(ctx, title, dest, r.pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", shared.ErrResolve, title, err)
	}

	scored := make([]Scored, 0, len(result.Candidates))
	accepted := false
	for _, c := range result.Candidates {
		s := Scored{Candidate: c}
		if native := c.Title.NativeValue(); native != "" {
			s.Score = r.score(title, native)
			if !accepted && s.Score >= r.threshold {
				s.Accepted = true
				accepted = true
			}
		}
		scored = append(scored, s)
	}
	return scored, nil
}
