package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

type gradeLevelReader interface {
	ListActiveBySchool(ctx context.Context, schoolID string) ([]models.GradeLevel, error)
}

// GradeGraph is an immutable snapshot of a school's grade progression graph,
// validated at build time so resolutions never chase a bad pointer.
type GradeGraph struct {
	nodes map[string]models.GradeLevel
	order []models.GradeLevel
}

// ResolveNext returns the successor grade for a single-hop advance, or
// terminal=true when the grade is a graduation point. Unknown grades are a
// configuration error, not silently followed.
func (g *GradeGraph) ResolveNext(gradeLevelID string) (next *string, terminal bool, err error) {
	node, ok := g.nodes[gradeLevelID]
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrGradeGraphInvalid, fmt.Sprintf("grade level %s is not an active grade for this school", gradeLevelID))
	}
	if node.NextGradeID == nil {
		return nil, true, nil
	}
	return node.NextGradeID, false, nil
}

// Node returns the graph node for a grade, if present.
func (g *GradeGraph) Node(gradeLevelID string) (models.GradeLevel, bool) {
	node, ok := g.nodes[gradeLevelID]
	return node, ok
}

// Items projects the graph in progression order for API consumers.
func (g *GradeGraph) Items() []models.GradeProgressionItem {
	items := make([]models.GradeProgressionItem, 0, len(g.order))
	for _, node := range g.order {
		items = append(items, models.GradeProgressionItem{
			GradeLevelID: node.ID,
			Name:         node.Name,
			OrderIndex:   node.OrderIndex,
			NextGradeID:  node.NextGradeID,
			IsTerminal:   node.NextGradeID == nil,
		})
	}
	return items
}

// ProgressionService builds and validates grade progression graphs.
type ProgressionService struct {
	grades gradeLevelReader
	logger *zap.Logger
}

// NewProgressionService constructs ProgressionService.
func NewProgressionService(grades gradeLevelReader, logger *zap.Logger) *ProgressionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionService{grades: grades, logger: logger}
}

// BuildGraph loads the school's active grades and validates the successor
// relation: every next_grade_id must point at an active grade of the same
// school, and no walk may loop.
func (s *ProgressionService) BuildGraph(ctx context.Context, schoolID string) (*GradeGraph, error) {
	grades, err := s.grades.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade levels")
	}

	graph := &GradeGraph{nodes: make(map[string]models.GradeLevel, len(grades)), order: grades}
	for _, grade := range grades {
		graph.nodes[grade.ID] = grade
	}

	for _, grade := range grades {
		if grade.NextGradeID == nil {
			continue
		}
		successor, ok := graph.nodes[*grade.NextGradeID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrGradeGraphInvalid,
				fmt.Sprintf("grade %q points at grade %s which is inactive or belongs to another school", grade.Name, *grade.NextGradeID))
		}
		if successor.SchoolID != schoolID {
			return nil, appErrors.Clone(appErrors.ErrGradeGraphInvalid,
				fmt.Sprintf("grade %q points at a grade of another school", grade.Name))
		}
	}

	if cycleStart := findCycle(graph); cycleStart != "" {
		node := graph.nodes[cycleStart]
		return nil, appErrors.Clone(appErrors.ErrGradeGraphInvalid,
			fmt.Sprintf("grade progression contains a cycle reachable from grade %q", node.Name))
	}

	return graph, nil
}

// findCycle walks every node along the successor chain; with n nodes any walk
// longer than n hops must have looped.
func findCycle(graph *GradeGraph) string {
	limit := len(graph.nodes)
	for start, node := range graph.nodes {
		hops := 0
		current := node
		for current.NextGradeID != nil {
			hops++
			if hops > limit {
				return start
			}
			next, ok := graph.nodes[*current.NextGradeID]
			if !ok {
				break
			}
			current = next
		}
	}
	return ""
}
