package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

// NotificationOutcome is the result of one back-office callback
type NotificationOutcome struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Persisted bool   `json:"persisted"`
}

// NotificationService delivers approval results to the back-office endpoint
type NotificationService interface {
	// Notify never fails the caller; the outcome is stored on the inspection
	Notify(ctx context.Context, inspection *entity.TrashInspection, sdkCaseID string, result *entity.ApprovalResult) *NotificationOutcome
}

type notificationServiceImpl struct {
	backOffice  port.BackOfficeClient
	inspections port.InspectionRepository
	txManager   port.TransactionManager
	timeout     time.Duration
	metrics     Metrics
	logger      Logger
}

// NewNotificationService creates a new NotificationService.
// A zero timeout leaves the deadline to the back-office client.
func NewNotificationService(
	backOffice port.BackOfficeClient,
	inspections port.InspectionRepository,
	txManager port.TransactionManager,
	timeout time.Duration,
	metrics Metrics,
	logger Logger,
) NotificationService {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &notificationServiceImpl{
		backOffice:  backOffice,
		inspections: inspections,
		txManager:   txManager,
		timeout:     timeout,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *notificationServiceImpl) Notify(ctx context.Context, inspection *entity.TrashInspection, sdkCaseID string, result *entity.ApprovalResult) *NotificationOutcome {
	s.logger.Info("Sending approval result to back office",
		"inspection_id", inspection.ID,
		"sdk_case_id", sdkCaseID,
		"is_approved", result.IsApproved,
	)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	outcome := &NotificationOutcome{}
	message, err := s.backOffice.SendResult(callCtx, port.CallbackRequest{
		CaseID:     sdkCaseID,
		IsApproved: result.IsApproved,
		Comment:    result.Comment,
	})
	if err != nil {
		outcome.Message = describeCallbackError(err, s.timeout)
		inspection.RecordCallbackError(outcome.Message)
		s.metrics.ObserveNotification(OutcomeError)
		s.logger.Warn("Back office callback failed",
			"inspection_id", inspection.ID,
			"sdk_case_id", sdkCaseID,
			"error", outcome.Message,
		)
	} else {
		outcome.Success = true
		outcome.Message = message
		inspection.RecordCallbackSuccess(message)
		s.metrics.ObserveNotification(OutcomeSuccess)
		s.logger.Info("Back office callback succeeded",
			"inspection_id", inspection.ID,
			"sdk_case_id", sdkCaseID,
		)
	}

	// the parent ctx is used here so a callback timeout does not prevent storing it
	// only the callback columns are written; approval fields belong to completion
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.inspections.UpdateCallbackResult(txCtx, inspection.ID, inspection.SuccessMessage, inspection.ErrorMessage)
	})
	if err != nil {
		s.metrics.ObserveNotification(OutcomePersistFailed)
		s.logger.Error("Failed to store callback outcome",
			"inspection_id", inspection.ID,
			"error", err,
		)
		return outcome
	}

	outcome.Persisted = true
	return outcome
}

func describeCallbackError(err error, timeout time.Duration) string {
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("back office callback timed out after %s: %v", timeout, err)
	}
	return err.Error()
}
