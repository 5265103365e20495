package engine

import (
	"context"
	"fmt"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// GraphStore is the slice of storage the graph service reads.
type GraphStore interface {
	storage.EntityStore
	storage.RelationshipStore
}

// GraphNode is an entity as rendered in the visualization.
type GraphNode struct {
	ID         string           `json:"id"`
	Type       types.EntityType `json:"type"`
	Value      string           `json:"value"`
	IsIdentity bool             `json:"is_identity,omitempty"`
	Cluster    string           `json:"cluster"`
	// Depth is the hop distance from the center; zero for whole-graph views.
	Depth int `json:"depth"`
}

// GraphEdge is a relationship as rendered in the visualization.
type GraphEdge struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
}

// GraphMeta describes a graph view.
type GraphMeta struct {
	CenterID     string `json:"center_id,omitempty"`
	Depth        int    `json:"depth,omitempty"`
	NodeCount    int    `json:"node_count"`
	EdgeCount    int    `json:"edge_count"`
	ClusterCount int    `json:"cluster_count"`
}

// GraphView is a node set, the edges among it and a node-to-cluster map.
// It is computed on demand and never persisted.
type GraphView struct {
	Nodes    []GraphNode       `json:"nodes"`
	Edges    []GraphEdge       `json:"edges"`
	Clusters map[string]string `json:"clusters"`
	Meta     GraphMeta         `json:"meta"`
}

// GraphService assembles graph views for the visualization API.
type GraphService struct {
	store GraphStore
}

// NewGraphService creates a graph service.
func NewGraphService(store GraphStore) *GraphService {
	return &GraphService{store: store}
}

// Graph returns all of the owner's entities with their relationships and
// identity clusters.
func (s *GraphService) Graph(ctx context.Context, ownerID string) (*GraphView, error) {
	entities, edges, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return buildView(entities, edges, nil), nil
}

// Neighborhood returns the entities within depth hops of centerID (depth is
// clamped to [1,3]), the edges among them and their clusters. An unknown
// center returns storage.ErrNotFound.
func (s *GraphService) Neighborhood(ctx context.Context, ownerID, centerID string, depth int) (*GraphView, error) {
	if _, err := s.store.GetEntity(ctx, ownerID, centerID); err != nil {
		return nil, err
	}
	entities, edges, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	depth = ClampDepth(depth)
	distances := NodesWithinDepth(centerID, edges, depth)

	view := buildView(entities, edges, distances)
	view.Meta.CenterID = centerID
	view.Meta.Depth = depth
	return view, nil
}

func (s *GraphService) load(ctx context.Context, ownerID string) ([]*types.Entity, []*types.Relationship, error) {
	entities, err := s.store.ListEntities(ctx, ownerID, storage.EntityFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load entities: %w", err)
	}
	edges, err := s.store.ListRelationships(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	return entities, edges, nil
}

// buildView renders entities and the edges among them. A nil distances map
// keeps every entity; otherwise only entities present in it are kept.
func buildView(entities []*types.Entity, edges []*types.Relationship, distances map[string]int) *GraphView {
	visible := make(map[string]bool, len(entities))
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		if distances != nil {
			if _, ok := distances[e.ID]; !ok {
				continue
			}
		}
		visible[e.ID] = true
		ids = append(ids, e.ID)
	}

	viewEdges := make([]*types.Relationship, 0, len(edges))
	for _, r := range edges {
		if visible[r.SourceID] && visible[r.TargetID] {
			viewEdges = append(viewEdges, r)
		}
	}

	clusters := AssignClusters(ids, viewEdges)

	view := &GraphView{
		Nodes:    make([]GraphNode, 0, len(ids)),
		Edges:    make([]GraphEdge, 0, len(viewEdges)),
		Clusters: clusters,
	}
	for _, e := range entities {
		if !visible[e.ID] {
			continue
		}
		view.Nodes = append(view.Nodes, GraphNode{
			ID:         e.ID,
			Type:       e.Type,
			Value:      e.Value,
			IsIdentity: e.IsIdentity,
			Cluster:    clusters[e.ID],
			Depth:      distances[e.ID],
		})
	}
	for _, r := range viewEdges {
		view.Edges = append(view.Edges, GraphEdge{
			ID:         r.ID,
			Source:     r.SourceID,
			Target:     r.TargetID,
			Type:       r.Type,
			Status:     r.Status,
			Confidence: r.Confidence,
		})
	}

	distinct := make(map[string]bool, len(clusters))
	for _, c := range clusters {
		distinct[c] = true
	}
	view.Meta = GraphMeta{
		NodeCount:    len(view.Nodes),
		EdgeCount:    len(view.Edges),
		ClusterCount: len(distinct),
	}
	return view
}
