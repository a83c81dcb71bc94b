package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/workflow"
)

func newTestTransitions(cases *memCaseRepo, inspections *memInspectionRepo) TransitionService {
	return NewTransitionService(cases, inspections, &mockLogger{})
}

func TestTransitionService_Parse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
		wantWrite  bool
	}{
		{"unprocessed moves to 70", 0, 70, true},
		{"69 moves to 70", 69, 70, true},
		{"70 unchanged", 70, 70, false},
		{"77 unchanged", 77, 77, false},
		{"100 unchanged", 100, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &entity.TrashInspectionCase{SdkCaseID: "1", Status: tt.status, TrashInspectionID: 1}
			cases := newMemCaseRepo(c)
			svc := newTestTransitions(cases, newMemInspectionRepo())

			got := *c
			outcome, err := svc.Apply(context.Background(), workflow.TriggerParse, &got, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantWrite, outcome.Case.Written)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Nil(t, outcome.Inspection)
			if tt.wantWrite {
				assert.Equal(t, 1, cases.updateCount())
			} else {
				assert.Equal(t, 0, cases.updateCount())
			}
		})
	}
}

func TestTransitionService_Retrieve_IndependentGuards(t *testing.T) {
	tests := []struct {
		name             string
		caseStatus       int
		inspectionStatus int
		wantCase         int
		wantInspection   int
		wantCaseWrite    bool
		wantInspWrite    bool
	}{
		{"both below", 0, 0, 77, 77, true, true},
		{"case below, inspection above", 70, 80, 77, 80, true, false},
		{"case at, inspection below", 77, 70, 77, 77, false, true},
		{"both completed", 100, 100, 100, 100, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &entity.TrashInspectionCase{SdkCaseID: "1", Status: tt.caseStatus, TrashInspectionID: 5}
			insp := &entity.TrashInspection{ID: 5, Status: tt.inspectionStatus}
			cases := newMemCaseRepo(c)
			inspections := newMemInspectionRepo(insp)
			svc := newTestTransitions(cases, inspections)

			gotCase, gotInsp := *c, *insp
			outcome, err := svc.Apply(context.Background(), workflow.TriggerRetrieve, &gotCase, &gotInsp)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCase, gotCase.Status)
			assert.Equal(t, tt.wantInspection, gotInsp.Status)
			assert.Equal(t, tt.wantCaseWrite, outcome.Case.Written)
			require.NotNil(t, outcome.Inspection)
			assert.Equal(t, tt.wantInspWrite, outcome.Inspection.Written)
		})
	}
}

func TestTransitionService_Retrieve_MissingInspection(t *testing.T) {
	c := &entity.TrashInspectionCase{SdkCaseID: "1", Status: 0, TrashInspectionID: 5}
	cases := newMemCaseRepo(c)
	svc := newTestTransitions(cases, newMemInspectionRepo())

	got := *c
	outcome, err := svc.Apply(context.Background(), workflow.TriggerRetrieve, &got, nil)
	require.NoError(t, err)
	assert.Equal(t, 77, cases.get("1").Status)
	assert.Nil(t, outcome.Inspection)
}

func TestTransitionService_Complete_AlwaysWrites(t *testing.T) {
	for _, status := range []int{0, 70, 77, 100} {
		c := &entity.TrashInspectionCase{SdkCaseID: "1", Status: status, TrashInspectionID: 5}
		insp := &entity.TrashInspection{ID: 5, Status: status}
		cases := newMemCaseRepo(c)
		inspections := newMemInspectionRepo(insp)
		svc := newTestTransitions(cases, inspections)

		gotCase, gotInsp := *c, *insp
		outcome, err := svc.Apply(context.Background(), workflow.TriggerComplete, &gotCase, &gotInsp)
		require.NoError(t, err)

		assert.True(t, outcome.Case.Written, "status %d", status)
		assert.True(t, outcome.Inspection.Written, "status %d", status)
		assert.Equal(t, 100, cases.get("1").Status)
		assert.Equal(t, 100, inspections.get(5).Status)
		assert.Equal(t, 1, cases.updateCount())
		assert.Equal(t, 1, inspections.updateCount())
	}
}

func TestTransitionService_RetractedCaseIsNotAdvanced(t *testing.T) {
	c := &entity.TrashInspectionCase{SdkCaseID: "1", Status: 0, WorkflowState: entity.WorkflowStateRetracted}
	cases := newMemCaseRepo(c)
	svc := newTestTransitions(cases, newMemInspectionRepo())

	for _, trigger := range []workflow.Trigger{workflow.TriggerParse, workflow.TriggerRetrieve, workflow.TriggerComplete} {
		got := *c
		outcome, err := svc.Apply(context.Background(), trigger, &got, nil)
		require.NoError(t, err)
		assert.False(t, outcome.Case.Written)
		assert.Equal(t, 0, got.Status)
	}
	assert.Equal(t, 0, cases.updateCount())
}

func TestTransitionService_Retract(t *testing.T) {
	c := &entity.TrashInspectionCase{SdkCaseID: "2", Status: 77, TrashInspectionID: 5}
	cases := newMemCaseRepo(c)
	svc := newTestTransitions(cases, newMemInspectionRepo())

	got := *c
	outcome, err := svc.Apply(context.Background(), workflow.TriggerRetract, &got, nil)
	require.NoError(t, err)

	assert.Equal(t, workflow.StateRetracted, outcome.Case.To)
	stored := cases.get("2")
	assert.Equal(t, entity.WorkflowStateRetracted, stored.WorkflowState)
	assert.Equal(t, 77, stored.Status)
}

func TestTransitionService_UpdateFailureIsPersistenceError(t *testing.T) {
	c := &entity.TrashInspectionCase{SdkCaseID: "1", Status: 0, TrashInspectionID: 5}
	cases := newMemCaseRepo(c)
	cases.updateErr = func(*entity.TrashInspectionCase) error { return errStoreDown }
	svc := newTestTransitions(cases, newMemInspectionRepo())

	got := *c
	_, err := svc.Apply(context.Background(), workflow.TriggerParse, &got, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, errStoreDown))

	var persistErr *PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, "update case", persistErr.Op)
}

func TestTransitionService_InspectionUpdateFailure(t *testing.T) {
	c := &entity.TrashInspectionCase{SdkCaseID: "1", Status: 0, TrashInspectionID: 5}
	insp := &entity.TrashInspection{ID: 5}
	inspections := newMemInspectionRepo(insp)
	inspections.updateErr = errStoreDown
	svc := newTestTransitions(newMemCaseRepo(c), inspections)

	gotCase, gotInsp := *c, *insp
	_, err := svc.Apply(context.Background(), workflow.TriggerRetrieve, &gotCase, &gotInsp)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestTransitionService_RetractLeavesStatusToStore(t *testing.T) {
	c := &entity.TrashInspectionCase{SdkCaseID: "2", Status: 77, TrashInspectionID: 5}
	cases := newMemCaseRepo(c)
	svc := newTestTransitions(cases, newMemInspectionRepo())

	stale := *c
	// the case completes between the sibling listing and the retraction
	advanced := *c
	advanced.Status = 100
	require.NoError(t, cases.Update(context.Background(), &advanced))

	_, err := svc.Apply(context.Background(), workflow.TriggerRetract, &stale, nil)
	require.NoError(t, err)

	stored := cases.get("2")
	assert.Equal(t, 100, stored.Status)
	assert.Equal(t, entity.WorkflowStateRetracted, stored.WorkflowState)
}
