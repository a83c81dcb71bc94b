package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

func TestNotificationService_Success(t *testing.T) {
	insp := &entity.TrashInspection{ID: 3, Status: 100}
	inspections := newMemInspectionRepo(insp)
	backOffice := &mockBackOffice{}
	metrics := newRecordingMetrics()
	svc := NewNotificationService(backOffice, inspections, &mockTxManager{}, time.Second, metrics, &mockLogger{})

	got := *insp
	outcome := svc.Notify(context.Background(), &got, "555", &entity.ApprovalResult{IsApproved: true, Comment: "ok"})

	assert.True(t, outcome.Success)
	assert.True(t, outcome.Persisted)
	assert.Equal(t, "received case 555", outcome.Message)

	require.Len(t, backOffice.requests, 1)
	assert.Equal(t, port.CallbackRequest{CaseID: "555", IsApproved: true, Comment: "ok"}, backOffice.requests[0])

	result, ok := inspections.get(3).CallbackResult()
	assert.True(t, ok)
	assert.Equal(t, "received case 555", result)
	assert.Nil(t, inspections.get(3).ErrorMessage)
	assert.Equal(t, 1, metrics.notifications[OutcomeSuccess])
}

func TestNotificationService_FailureIsStored(t *testing.T) {
	insp := &entity.TrashInspection{ID: 3, Status: 100}
	insp.RecordCallbackSuccess("old confirmation")
	inspections := newMemInspectionRepo(insp)
	backOffice := &mockBackOffice{
		sendFunc: func(ctx context.Context, req port.CallbackRequest) (string, error) {
			return "", errors.New("soap fault: Access denied")
		},
	}
	svc := NewNotificationService(backOffice, inspections, &mockTxManager{}, time.Second, nil, &mockLogger{})

	got := *insp
	outcome := svc.Notify(context.Background(), &got, "555", &entity.ApprovalResult{})

	assert.False(t, outcome.Success)
	assert.True(t, outcome.Persisted)
	stored := inspections.get(3)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "soap fault: Access denied", *stored.ErrorMessage)
	assert.Nil(t, stored.SuccessMessage)
	assert.Equal(t, 100, stored.Status)
}

func TestNotificationService_TimeoutIsStored(t *testing.T) {
	insp := &entity.TrashInspection{ID: 3, Status: 100}
	inspections := newMemInspectionRepo(insp)
	backOffice := &mockBackOffice{
		sendFunc: func(ctx context.Context, req port.CallbackRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	svc := NewNotificationService(backOffice, inspections, &mockTxManager{}, 20*time.Millisecond, nil, &mockLogger{})

	got := *insp
	outcome := svc.Notify(context.Background(), &got, "555", &entity.ApprovalResult{})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "timed out")
	result, ok := inspections.get(3).CallbackResult()
	assert.True(t, ok)
	assert.Contains(t, result, "timed out")
	assert.Equal(t, 100, inspections.get(3).Status)
}

func TestNotificationService_PersistFailureIsSwallowed(t *testing.T) {
	insp := &entity.TrashInspection{ID: 3, Status: 100}
	inspections := newMemInspectionRepo(insp)
	inspections.updateErr = errStoreDown
	metrics := newRecordingMetrics()
	logger := &mockLogger{}
	svc := NewNotificationService(&mockBackOffice{}, inspections, &mockTxManager{}, time.Second, metrics, logger)

	got := *insp
	outcome := svc.Notify(context.Background(), &got, "555", &entity.ApprovalResult{})

	assert.True(t, outcome.Success)
	assert.False(t, outcome.Persisted)
	assert.Equal(t, 1, metrics.notifications[OutcomePersistFailed])
	assert.Contains(t, logger.errors, "Failed to store callback outcome")
}

func TestNotificationService_WritesOnlyCallbackResult(t *testing.T) {
	stored := &entity.TrashInspection{ID: 3, Status: 100}
	stored.ApplyApproval(&entity.ApprovalResult{IsApproved: true, ApprovedValue: "1", Comment: "fint"})
	inspections := newMemInspectionRepo(stored)
	svc := NewNotificationService(&mockBackOffice{}, inspections, &mockTxManager{}, time.Second, nil, &mockLogger{})

	// a copy loaded before another case completed the inspection
	stale := &entity.TrashInspection{ID: 3, Status: 77}
	outcome := svc.Notify(context.Background(), stale, "555", &entity.ApprovalResult{})

	require.True(t, outcome.Persisted)
	got := inspections.get(3)
	assert.Equal(t, 100, got.Status)
	assert.True(t, got.IsApproved)
	assert.Equal(t, "1", got.ApprovedValue)
	assert.Equal(t, "fint", got.Comment)
	assert.True(t, got.InspectionDone)
	require.NotNil(t, got.SuccessMessage)
	assert.Equal(t, "received case 555", *got.SuccessMessage)
	assert.Equal(t, 0, inspections.updateCount())
	assert.Equal(t, 1, inspections.callbackWrites)
}
