package service

import (
	"context"
	"fmt"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/workflow"
)

// RetractionReport lists what happened to each sibling of a completed case
type RetractionReport struct {
	InspectionID int64            `json:"inspection_id"`
	Retracted    []string         `json:"retracted"`
	Skipped      []string         `json:"skipped"`
	Failures     []CascadeFailure `json:"-"`
}

// HasFailures reports whether any sibling could not be retracted
func (r *RetractionReport) HasFailures() bool {
	return len(r.Failures) > 0
}

// RetractionService retracts the sibling cases of a completed case
type RetractionService interface {
	// RetractSiblings is best-effort and never returns an error; failures are in the report
	RetractSiblings(ctx context.Context, inspectionID int64, completingSdkCaseID string) *RetractionReport
}

type retractionServiceImpl struct {
	cases       port.CaseRepository
	forms       port.FormClient
	transitions TransitionService
	txManager   port.TransactionManager
	metrics     Metrics
	logger      Logger
}

// NewRetractionService creates a new RetractionService
func NewRetractionService(
	cases port.CaseRepository,
	forms port.FormClient,
	transitions TransitionService,
	txManager port.TransactionManager,
	metrics Metrics,
	logger Logger,
) RetractionService {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &retractionServiceImpl{
		cases:       cases,
		forms:       forms,
		transitions: transitions,
		txManager:   txManager,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *retractionServiceImpl) RetractSiblings(ctx context.Context, inspectionID int64, completingSdkCaseID string) *RetractionReport {
	report := &RetractionReport{
		InspectionID: inspectionID,
		Retracted:    []string{},
		Skipped:      []string{},
	}

	siblings, err := s.cases.ListByInspectionID(ctx, inspectionID)
	if err != nil {
		s.logger.Error("Failed to list sibling cases", "inspection_id", inspectionID, "error", err)
		report.Failures = append(report.Failures, CascadeFailure{Err: persistenceError("list sibling cases", err)})
		s.metrics.ObserveRetraction(OutcomeFailed)
		return report
	}

	for _, sibling := range siblings {
		if sibling.SdkCaseID == completingSdkCaseID {
			continue
		}

		if sibling.IsRetracted() {
			report.Skipped = append(report.Skipped, sibling.SdkCaseID)
			s.metrics.ObserveRetraction(OutcomeSkipped)
			continue
		}

		if err := s.retract(ctx, sibling); err != nil {
			s.logger.Warn("Failed to retract sibling case",
				"inspection_id", inspectionID,
				"sdk_case_id", sibling.SdkCaseID,
				"error", err,
			)
			report.Failures = append(report.Failures, CascadeFailure{SdkCaseID: sibling.SdkCaseID, Err: err})
			s.metrics.ObserveRetraction(OutcomeFailed)
			continue
		}

		report.Retracted = append(report.Retracted, sibling.SdkCaseID)
		s.metrics.ObserveRetraction(OutcomeRetracted)
	}

	s.logger.Info("Sibling retraction finished",
		"inspection_id", inspectionID,
		"completing_case", completingSdkCaseID,
		"retracted", len(report.Retracted),
		"skipped", len(report.Skipped),
		"failed", len(report.Failures),
	)

	return report
}

// retract deletes the case in the form system before marking it retracted
func (s *retractionServiceImpl) retract(ctx context.Context, sibling *entity.TrashInspectionCase) error {
	if err := s.forms.DeleteCase(ctx, sibling.SdkCaseID); err != nil {
		return fmt.Errorf("delete case in form system: %w", err)
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := s.transitions.Apply(txCtx, workflow.TriggerRetract, sibling, nil)
		return err
	})
}
