package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// IdentityThreshold is the relaxed bar for linking mentions already flagged
// as the user: MinMatchThreshold-0.2, floored at 0.5.
const IdentityThreshold = 0.5

// defaultIdentityConfidence stands in for a missing MatchConfidence.
const defaultIdentityConfidence = 0.9

// IdentityStore is the slice of storage the identity builder works against.
type IdentityStore interface {
	storage.EntityStore
	storage.AliasStore
	storage.RelationshipStore
}

// IdentityResult summarizes one Persist call.
type IdentityResult struct {
	Identities int `json:"identities"`
	Candidates int `json:"candidates"`
	Created    int `json:"created"`
	// Skipped counts edges the store already held.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IdentityBuilder links the user's own identity mentions with SAME_AS edges.
type IdentityBuilder struct {
	store   IdentityStore
	scorer  *MatchScorer
	logger  *zap.Logger
	metrics *Metrics
	events  EventPublisher
	now     func() time.Time
}

// NewIdentityBuilder creates a builder. store may be nil when only Build is
// used.
func NewIdentityBuilder(store IdentityStore, scorer *MatchScorer, logger *zap.Logger) *IdentityBuilder {
	if scorer == nil {
		scorer = NewMatchScorer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityBuilder{
		store:  store,
		scorer: scorer,
		logger: logger,
		events: nopPublisher{},
		now:    time.Now,
	}
}

// SetMetrics attaches prometheus collectors.
func (b *IdentityBuilder) SetMetrics(m *Metrics) {
	b.metrics = m
}

// SetPublisher attaches an event publisher.
func (b *IdentityBuilder) SetPublisher(pub EventPublisher) {
	b.events = publisherOrNop(pub)
}

// Build returns a SAME_AS edge for every same-type pair of identity
// mentions scoring at least IdentityThreshold. Mentions not flagged
// IsIdentity are ignored; fewer than two identities yield nothing.
//
// Edge confidence is the highest of the pair score and both mentions'
// MatchConfidence (0.9 when unknown). Identity edges are always active.
func (b *IdentityBuilder) Build(entities []*types.Entity, aliases []types.Alias) []*types.Relationship {
	identities := make([]*types.Entity, 0, len(entities))
	for _, e := range entities {
		if e != nil && e.IsIdentity {
			identities = append(identities, e)
		}
	}
	if len(identities) < 2 {
		return nil
	}

	now := b.now().UTC()
	var edges []*types.Relationship
	for i := 0; i < len(identities); i++ {
		for j := i + 1; j < len(identities); j++ {
			e1, e2 := identities[i], identities[j]
			if e1.Type != e2.Type {
				continue
			}
			score, reason := b.scorer.Score(*e1, *e2, aliases)
			if score < IdentityThreshold {
				continue
			}
			confidence := max(score, identityConfidence(e1), identityConfidence(e2))
			edges = append(edges, &types.Relationship{
				OwnerID:    e1.OwnerID,
				SourceID:   e1.ID,
				TargetID:   e2.ID,
				Type:       types.RelSameAs,
				Status:     types.RelationshipActive,
				Confidence: confidence,
				Evidence: fmt.Sprintf("identity match %q ~ %q: %s (score %.2f)",
					e1.Value, e2.Value, reason, score),
				CreatedAt: now,
			})
		}
	}
	return edges
}

func identityConfidence(e *types.Entity) float64 {
	if e.MatchConfidence == nil {
		return defaultIdentityConfidence
	}
	return *e.MatchConfidence
}

// Persist builds identity edges for the owner and saves them. Edges the
// store already holds are skipped, not reported as errors.
func (b *IdentityBuilder) Persist(ctx context.Context, ownerID string) (IdentityResult, error) {
	start := time.Now()
	defer b.metrics.observePipeline("identity", start)

	var res IdentityResult
	if b.store == nil {
		return res, errors.New("identity builder has no store")
	}
	if ownerID == "" {
		return res, fmt.Errorf("%w: owner is required", storage.ErrInvalidInput)
	}

	identities, err := b.store.ListEntities(ctx, ownerID, storage.EntityFilter{IdentityOnly: true})
	if err != nil {
		return res, fmt.Errorf("failed to load identity entities: %w", err)
	}
	aliases, err := b.store.ListAliases(ctx, ownerID)
	if err != nil {
		return res, fmt.Errorf("failed to load aliases: %w", err)
	}
	res.Identities = len(identities)

	edges := b.Build(identities, aliases)
	res.Candidates = len(edges)
	for _, edge := range edges {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		edge.OwnerID = ownerID
		err := b.store.SaveRelationship(ctx, edge)
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			res.Skipped++
			b.logger.Debug("identity edge already exists",
				zap.String("owner_id", ownerID),
				zap.String("source_id", edge.SourceID),
				zap.String("target_id", edge.TargetID))
		case err != nil:
			res.Failed++
			b.logger.Warn("failed to save identity edge",
				zap.String("owner_id", ownerID),
				zap.String("source_id", edge.SourceID),
				zap.String("target_id", edge.TargetID),
				zap.Error(err))
		default:
			res.Created++
		}
	}

	b.metrics.addIdentityEdges("created", res.Created)
	b.metrics.addIdentityEdges("skipped", res.Skipped+res.Failed)

	b.logger.Info("identity relationships built",
		zap.String("owner_id", ownerID),
		zap.Int("identities", res.Identities),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Duration("duration", time.Since(start)))

	if res.Created > 0 {
		b.events.Publish(newEvent(EventIdentityEdgesLinked, ownerID, res))
	}
	return res, nil
}
