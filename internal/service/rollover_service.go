package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/dto"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

type rolloverEnrollmentRepository interface {
	ListActiveByYear(ctx context.Context, schoolID, yearID string) ([]models.StudentEnrollment, error)
	CountAlreadyRolled(ctx context.Context, schoolID, currentYearID, nextYearID string) (int, error)
	StatusBreakdown(ctx context.Context, schoolID, yearID string) (map[models.RolloverStatus]int, error)
}

type academicYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type markingPeriodCounter interface {
	CountByYear(ctx context.Context, schoolID, yearID string) (int, error)
}

type teacherAssignmentCounter interface {
	CountActiveByYear(ctx context.Context, schoolID, yearID string) (int, error)
}

type gradeGraphBuilder interface {
	BuildGraph(ctx context.Context, schoolID string) (*GradeGraph, error)
}

type planApplier interface {
	ApplyPlan(ctx context.Context, plan *models.RolloverPlan) error
}

const defaultDuplicateWarnFraction = 0.10

// RolloverService drives the preview, check and execute workflow. Preview and
// Check never write; Execute re-runs Check and applies the whole batch in one
// transaction through the plan applier.
type RolloverService struct {
	enrollments  rolloverEnrollmentRepository
	years        academicYearReader
	periods      markingPeriodCounter
	teachers     teacherAssignmentCounter
	progression  gradeGraphBuilder
	executor     planApplier
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	warnFraction float64
	cacheTTL     time.Duration
}

// NewRolloverService constructs RolloverService. warnFraction is the share of
// the active cohort already holding next-year rows above which the check warns
// about a possible partial rollover.
func NewRolloverService(
	enrollments rolloverEnrollmentRepository,
	years academicYearReader,
	periods markingPeriodCounter,
	teachers teacherAssignmentCounter,
	progression gradeGraphBuilder,
	executor planApplier,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	warnFraction float64,
	cacheTTL time.Duration,
) *RolloverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if warnFraction <= 0 || warnFraction > 1 {
		warnFraction = defaultDuplicateWarnFraction
	}
	return &RolloverService{
		enrollments:  enrollments,
		years:        years,
		periods:      periods,
		teachers:     teachers,
		progression:  progression,
		executor:     executor,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		warnFraction: warnFraction,
		cacheTTL:     cacheTTL,
	}
}

// Preview computes the read-only rollover forecast. Safe to call any number of
// times; results are cached per year pair until the next mutation.
func (s *RolloverService) Preview(ctx context.Context, req dto.RolloverRequest) (*models.RolloverPreview, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rollover request")
	}

	cacheKey := PreviewCacheKey(req.SchoolID, req.CurrentYearID, req.NextYearID)
	var cached models.RolloverPreview
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	if _, _, err := s.loadYearPair(ctx, req); err != nil {
		return nil, err
	}

	active, err := s.enrollments.ListActiveByYear(ctx, req.SchoolID, req.CurrentYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active enrollments")
	}
	breakdown, err := s.enrollments.StatusBreakdown(ctx, req.SchoolID, req.CurrentYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status breakdown")
	}

	graph, err := s.progression.BuildGraph(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}
	graduating := 0
	for i := range active {
		if active[i].GradeLevelID == nil {
			continue
		}
		if node, ok := graph.Node(*active[i].GradeLevelID); ok && node.NextGradeID == nil {
			graduating++
		}
	}

	periodsCurrent, err := s.periods.CountByYear(ctx, req.SchoolID, req.CurrentYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count marking periods")
	}
	periodsNext, err := s.periods.CountByYear(ctx, req.SchoolID, req.NextYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count marking periods")
	}
	assignments, err := s.teachers.CountActiveByYear(ctx, req.SchoolID, req.CurrentYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teacher assignments")
	}

	preview := &models.RolloverPreview{
		SchoolID:                 req.SchoolID,
		CurrentYearID:            req.CurrentYearID,
		NextYearID:               req.NextYearID,
		ActiveEnrollments:        len(active),
		StatusBreakdown:          breakdown,
		GraduatingCount:          graduating,
		MarkingPeriodsCurrent:    periodsCurrent,
		MarkingPeriodsNext:       periodsNext,
		ActiveTeacherAssignments: assignments,
		GeneratedAt:              time.Now().UTC(),
	}
	_ = s.cache.Set(ctx, cacheKey, preview, s.cacheTTL)
	return preview, nil
}

// Check runs the prerequisite gate. Rules short-circuit on the first hard
// failure; warnings accumulate and never block execution.
func (s *RolloverService) Check(ctx context.Context, req dto.RolloverRequest) (*models.RolloverPrerequisiteCheck, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rollover request")
	}

	check := &models.RolloverPrerequisiteCheck{Warnings: []string{}}
	fail := func(format string, args ...interface{}) (*models.RolloverPrerequisiteCheck, error) {
		check.IsValid = false
		check.ErrorMessage = fmt.Sprintf(format, args...)
		return check, nil
	}

	current, next, err := s.loadYearPair(ctx, req)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
			return fail("%s", appErr.Message)
		}
		return nil, err
	}

	if !next.StartDate.After(current.StartDate) {
		return fail("next year %q must start after current year %q", next.Name, current.Name)
	}
	if !current.IsCurrent {
		return fail("year %q is not the school's current year", current.Name)
	}

	graph, err := s.progression.BuildGraph(ctx, req.SchoolID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrGradeGraphInvalid.Code {
			return fail("%s", appErr.Message)
		}
		return nil, err
	}

	active, err := s.enrollments.ListActiveByYear(ctx, req.SchoolID, req.CurrentYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active enrollments")
	}

	seen := make(map[string]struct{})
	for i := range active {
		if active[i].GradeLevelID == nil {
			continue
		}
		gradeID := *active[i].GradeLevelID
		if _, ok := seen[gradeID]; ok {
			continue
		}
		seen[gradeID] = struct{}{}
		node, ok := graph.Node(gradeID)
		if !ok {
			return fail("grade level %s has open enrollments but is not an active grade for this school", gradeID)
		}
		if node.NextGradeID == nil && !node.IsTerminal {
			check.Warnings = append(check.Warnings,
				fmt.Sprintf("grade %q has no successor and is not flagged terminal; its students will graduate", node.Name))
		}
	}

	if len(active) > 0 {
		rolled, err := s.enrollments.CountAlreadyRolled(ctx, req.SchoolID, req.CurrentYearID, req.NextYearID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rolled enrollments")
		}
		if fraction := float64(rolled) / float64(len(active)); fraction > s.warnFraction {
			check.Warnings = append(check.Warnings,
				fmt.Sprintf("%d of %d active students already have enrollments in the next year; rollover may have partially run", rolled, len(active)))
		}
	}

	check.IsValid = true
	return check, nil
}

// Execute runs the transactional rollover batch. Prerequisites are re-checked
// first; a failed gate yields success=false and no mutation. A cohort already
// fully covered in the next year is a conflict, not a re-run.
func (s *RolloverService) Execute(ctx context.Context, req dto.ExecuteRolloverRequest) (*models.RolloverResult, error) {
	start := time.Now()

	check, err := s.Check(ctx, req.RolloverRequest)
	if err != nil {
		return nil, err
	}
	if !check.IsValid {
		result := &models.RolloverResult{Success: false, Error: check.ErrorMessage, Warnings: check.Warnings, DurationMs: time.Since(start).Milliseconds()}
		s.metrics.ObserveRollover(result, time.Since(start))
		return result, nil
	}

	current, next, err := s.loadYearPair(ctx, req.RolloverRequest)
	if err != nil {
		return nil, err
	}

	active, err := s.enrollments.ListActiveByYear(ctx, req.SchoolID, req.CurrentYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active enrollments")
	}
	if len(active) > 0 {
		rolled, err := s.enrollments.CountAlreadyRolled(ctx, req.SchoolID, req.CurrentYearID, req.NextYearID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rolled enrollments")
		}
		if rolled == len(active) {
			return nil, appErrors.Clone(appErrors.ErrRolloverInProgress, "")
		}
	}

	graph, err := s.progression.BuildGraph(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]models.StudentOutcome, 0, len(active))
	for i := range active {
		outcome, err := resolveOutcome(&active[i], graph)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}

	options := models.RolloverOptions{}
	if req.Options != nil {
		options = *req.Options
	}

	closeDate := time.Now().UTC()
	if current.EndDate != nil {
		closeDate = *current.EndDate
	}

	plan := &models.RolloverPlan{
		SchoolID:      req.SchoolID,
		CurrentYearID: req.CurrentYearID,
		NextYearID:    req.NextYearID,
		CloseDate:     closeDate,
		NextStartDate: next.StartDate,
		Outcomes:      outcomes,
		Options:       options,
	}

	if err := s.executor.ApplyPlan(ctx, plan); err != nil {
		failed := &models.RolloverResult{Success: false, DurationMs: time.Since(start).Milliseconds()}
		s.metrics.ObserveRollover(failed, time.Since(start))
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrRolloverInProgress.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "rollover execution failed")
	}

	result := &models.RolloverResult{Success: true, Warnings: check.Warnings}
	for _, outcome := range outcomes {
		result.Tally(outcome.Status)
	}
	result.DurationMs = time.Since(start).Milliseconds()
	s.metrics.ObserveRollover(result, time.Since(start))

	_ = s.cache.Invalidate(ctx, SchoolCachePattern(req.SchoolID))

	s.logger.Info("rollover executed",
		zap.String("school_id", req.SchoolID),
		zap.String("current_year_id", req.CurrentYearID),
		zap.String("next_year_id", req.NextYearID),
		zap.Int("processed", result.Processed),
		zap.Int("promoted", result.Promoted),
		zap.Int("graduated", result.Graduated),
		zap.Int64("duration_ms", result.DurationMs))

	return result, nil
}

// resolveOutcome applies the status transition for one enrollment. A manual
// override wins unconditionally; pending rows follow the grade graph.
func resolveOutcome(e *models.StudentEnrollment, graph *GradeGraph) (models.StudentOutcome, error) {
	outcome := models.StudentOutcome{
		EnrollmentID: e.ID,
		StudentID:    e.StudentID,
		Notes:        e.RolloverNotes,
	}

	if e.RolloverStatus != models.RolloverPending {
		outcome.Status = e.RolloverStatus
		if outcome.Status.Terminal() {
			return outcome, nil
		}
		outcome.NextGradeID = e.NextGradeID
		if outcome.NextGradeID == nil {
			if outcome.Status == models.RolloverRetained {
				outcome.NextGradeID = e.GradeLevelID
			} else if e.GradeLevelID != nil {
				next, terminal, err := graph.ResolveNext(*e.GradeLevelID)
				if err != nil {
					return outcome, err
				}
				// A promotion override on a terminal grade has nowhere to
				// promote to; the student graduates instead of landing in the
				// next year with no grade.
				if terminal {
					outcome.Status = models.RolloverGraduated
					return outcome, nil
				}
				outcome.NextGradeID = next
			}
		}
		outcome.Code = codeFor(outcome.Status, e.EnrollmentCode)
		if outcome.Status == models.RolloverRetained {
			outcome.SectionID = e.SectionID
		}
		return outcome, nil
	}

	// No grade on record: hold the student in place rather than guess a
	// promotion target.
	if e.GradeLevelID == nil {
		outcome.Status = models.RolloverRetained
		outcome.Code = models.CodeRetention
		outcome.SectionID = e.SectionID
		return outcome, nil
	}

	next, terminal, err := graph.ResolveNext(*e.GradeLevelID)
	if err != nil {
		return outcome, err
	}
	if terminal {
		outcome.Status = models.RolloverGraduated
		return outcome, nil
	}
	outcome.Status = models.RolloverPromoted
	outcome.NextGradeID = next
	outcome.Code = codeFor(models.RolloverPromoted, e.EnrollmentCode)
	return outcome, nil
}

// codeFor maps a non-terminal status to the enrollment code on the next-year
// row. A student returning from a drop or transfer-out comes back as a
// re-admission regardless of the computed status.
func codeFor(status models.RolloverStatus, priorCode models.EnrollmentCode) models.EnrollmentCode {
	if priorCode == models.CodeDrop || priorCode == models.CodeTransferOut {
		return models.CodeReAdmission
	}
	if status == models.RolloverRetained {
		return models.CodeRetention
	}
	return models.CodePromotion
}

// loadYearPair loads both years and verifies school ownership.
func (s *RolloverService) loadYearPair(ctx context.Context, req dto.RolloverRequest) (*models.AcademicYear, *models.AcademicYear, error) {
	current, err := s.findSchoolYear(ctx, req.SchoolID, req.CurrentYearID, "current")
	if err != nil {
		return nil, nil, err
	}
	next, err := s.findSchoolYear(ctx, req.SchoolID, req.NextYearID, "next")
	if err != nil {
		return nil, nil, err
	}
	return current, next, nil
}

func (s *RolloverService) findSchoolYear(ctx context.Context, schoolID, yearID, label string) (*models.AcademicYear, error) {
	year, err := s.years.FindByID(ctx, yearID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s academic year %s not found", label, yearID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s academic year %s not found", label, yearID))
	}
	return year, nil
}
