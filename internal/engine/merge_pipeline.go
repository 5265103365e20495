package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// ErrAlreadyReviewed is returned when a review targets a suggestion that is
// no longer pending.
var ErrAlreadyReviewed = errors.New("merge suggestion already reviewed")

// MergeStore is the slice of storage the merge pipeline works against.
type MergeStore interface {
	storage.EntityStore
	storage.AliasStore
	storage.MergeSuggestionStore
}

// MergeCounts summarizes one CreateMergeSuggestions call.
type MergeCounts struct {
	Created      int `json:"created"`
	AutoAccepted int `json:"auto_accepted"`
	// Skipped counts pairs the store already held.
	Skipped int `json:"skipped"`
	// Failed counts pairs whose write failed for any other reason.
	Failed int `json:"failed"`
}

// MergeRunResult summarizes a full pipeline run for one owner.
type MergeRunResult struct {
	Compared int `json:"compared"`
	Matched  int `json:"matched"`
	MergeCounts
}

// MergePipeline finds likely duplicate entity mentions and records them as
// merge suggestions.
type MergePipeline struct {
	store   MergeStore
	scorer  *MatchScorer
	logger  *zap.Logger
	metrics *Metrics
	events  EventPublisher
	now     func() time.Time
}

// NewMergePipeline creates a pipeline. A nil scorer uses the built-in
// nickname dictionary; a nil logger discards output.
func NewMergePipeline(store MergeStore, scorer *MatchScorer, logger *zap.Logger) *MergePipeline {
	if scorer == nil {
		scorer = NewMatchScorer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MergePipeline{
		store:  store,
		scorer: scorer,
		logger: logger,
		events: nopPublisher{},
		now:    time.Now,
	}
}

// SetMetrics attaches prometheus collectors.
func (p *MergePipeline) SetMetrics(m *Metrics) {
	p.metrics = m
}

// SetPublisher attaches an event publisher.
func (p *MergePipeline) SetPublisher(pub EventPublisher) {
	p.events = publisherOrNop(pub)
}

// FindPotentialMatches compares every unordered pair of same-type entities
// once, using the owner's alias table, and returns the pairs scoring at
// least MinMatchThreshold, highest confidence first.
func (p *MergePipeline) FindPotentialMatches(ctx context.Context, ownerID string, entities []*types.Entity) ([]types.MatchResult, error) {
	aliases, err := p.store.ListAliases(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}
	matches, _, err := p.findMatches(ctx, entities, aliases)
	return matches, err
}

// findMatches scores each type group in its own goroutine. It also returns
// the number of pairs compared.
func (p *MergePipeline) findMatches(ctx context.Context, entities []*types.Entity, aliases []types.Alias) ([]types.MatchResult, int, error) {
	groups := groupByType(entities)
	results := make([][]types.MatchResult, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			var found []types.MatchResult
			for a := 0; a < len(group); a++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for b := a + 1; b < len(group); b++ {
					m := p.scorer.Match(*group[a], *group[b], aliases)
					if m.Confidence >= MinMatchThreshold {
						found = append(found, m)
					}
				}
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	compared := 0
	for _, group := range groups {
		compared += len(group) * (len(group) - 1) / 2
	}
	p.metrics.addComparisons(compared)

	var matches []types.MatchResult
	for _, r := range results {
		matches = append(matches, r...)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches, compared, nil
}

// groupByType splits entities by type, keeping first-appearance order of
// both the groups and their members.
func groupByType(entities []*types.Entity) [][]*types.Entity {
	index := make(map[types.EntityType]int)
	var groups [][]*types.Entity
	for _, e := range entities {
		if e == nil {
			continue
		}
		i, ok := index[e.Type]
		if !ok {
			i = len(groups)
			index[e.Type] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

// CreateMergeSuggestions persists matches as suggestions. With autoAccept
// set, matches at or above AutoAcceptThreshold are stored as accepted.
// Per-pair write failures are logged and skipped; only context
// cancellation stops the batch.
func (p *MergePipeline) CreateMergeSuggestions(ctx context.Context, ownerID string, matches []types.MatchResult, autoAccept bool) (MergeCounts, error) {
	var counts MergeCounts
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		now := p.now().UTC()
		sg := &types.MergeSuggestion{
			OwnerID:    ownerID,
			Entity1ID:  m.Entity1.ID,
			Entity2ID:  m.Entity2.ID,
			EntityType: m.Entity1.Type,
			Confidence: m.Confidence,
			Reason:     m.Reason,
			Status:     types.SuggestionPending,
			CreatedAt:  now,
		}
		if sg.Entity2ID < sg.Entity1ID {
			sg.Entity1ID, sg.Entity2ID = sg.Entity2ID, sg.Entity1ID
		}
		accepted := autoAccept && m.Confidence >= AutoAcceptThreshold
		if accepted {
			sg.Status = types.SuggestionAccepted
			sg.ReviewedAt = &now
		}

		err := p.store.CreateMergeSuggestion(ctx, sg)
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			counts.Skipped++
			p.logger.Debug("merge suggestion already exists",
				zap.String("owner_id", ownerID),
				zap.String("entity1_id", sg.Entity1ID),
				zap.String("entity2_id", sg.Entity2ID))
			continue
		case err != nil:
			counts.Failed++
			p.logger.Warn("failed to save merge suggestion",
				zap.String("owner_id", ownerID),
				zap.String("entity1_id", sg.Entity1ID),
				zap.String("entity2_id", sg.Entity2ID),
				zap.Error(err))
			continue
		}

		counts.Created++
		if accepted {
			counts.AutoAccepted++
		}
	}

	p.metrics.addSuggestions("created", counts.Created)
	p.metrics.addSuggestions("auto_accepted", counts.AutoAccepted)
	p.metrics.addSuggestions("skipped", counts.Skipped+counts.Failed)
	return counts, nil
}

// Run loads the owner's entities and aliases, finds matches and persists
// them.
func (p *MergePipeline) Run(ctx context.Context, ownerID string, autoAccept bool) (MergeRunResult, error) {
	start := time.Now()
	defer p.metrics.observePipeline("merge", start)

	var res MergeRunResult
	if ownerID == "" {
		return res, fmt.Errorf("%w: owner is required", storage.ErrInvalidInput)
	}

	entities, err := p.store.ListEntities(ctx, ownerID, storage.EntityFilter{})
	if err != nil {
		return res, fmt.Errorf("failed to load entities: %w", err)
	}
	aliases, err := p.store.ListAliases(ctx, ownerID)
	if err != nil {
		return res, fmt.Errorf("failed to load aliases: %w", err)
	}

	matches, compared, err := p.findMatches(ctx, entities, aliases)
	if err != nil {
		return res, err
	}
	res.Compared = compared
	res.Matched = len(matches)

	res.MergeCounts, err = p.CreateMergeSuggestions(ctx, ownerID, matches, autoAccept)
	if err != nil {
		return res, err
	}

	p.logger.Info("merge pipeline finished",
		zap.String("owner_id", ownerID),
		zap.Int("entities", len(entities)),
		zap.Int("compared", res.Compared),
		zap.Int("matched", res.Matched),
		zap.Int("created", res.Created),
		zap.Int("auto_accepted", res.AutoAccepted),
		zap.Int("skipped", res.Skipped),
		zap.Duration("duration", time.Since(start)))

	if res.Created > 0 {
		p.events.Publish(newEvent(EventSuggestionsCreated, ownerID, res))
	}
	return res, nil
}

// ReviewSuggestion accepts or rejects a pending suggestion. Reviewed
// suggestions are kept, never deleted.
func (p *MergePipeline) ReviewSuggestion(ctx context.Context, ownerID, id string, decision types.SuggestionStatus) (*types.MergeSuggestion, error) {
	if decision != types.SuggestionAccepted && decision != types.SuggestionRejected {
		return nil, fmt.Errorf("%w: decision must be %q or %q", storage.ErrInvalidInput,
			types.SuggestionAccepted, types.SuggestionRejected)
	}

	sg, err := p.store.GetMergeSuggestion(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if sg.Status != types.SuggestionPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyReviewed, id, sg.Status)
	}

	now := p.now().UTC()
	if err := p.store.UpdateMergeSuggestionStatus(ctx, ownerID, id, decision, now); err != nil {
		return nil, fmt.Errorf("failed to update suggestion %s: %w", id, err)
	}
	sg.Status = decision
	sg.ReviewedAt = &now

	p.logger.Info("merge suggestion reviewed",
		zap.String("owner_id", ownerID),
		zap.String("suggestion_id", id),
		zap.String("decision", string(decision)))
	p.events.Publish(newEvent(EventSuggestionReviewed, ownerID, sg))
	return sg, nil
}
