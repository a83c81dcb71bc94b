package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

// memCaseRepo keeps cases by sdk case id and hands out copies
type memCaseRepo struct {
	mu        sync.Mutex
	cases     map[string]*entity.TrashInspectionCase
	updates   int
	getErr    error
	listErr   error
	updateErr func(c *entity.TrashInspectionCase) error
}

func newMemCaseRepo(cases ...*entity.TrashInspectionCase) *memCaseRepo {
	r := &memCaseRepo{cases: make(map[string]*entity.TrashInspectionCase)}
	for _, c := range cases {
		if c.WorkflowState == "" {
			c.WorkflowState = entity.WorkflowStateCreated
		}
		r.cases[c.SdkCaseID] = c
	}
	return r
}

func (r *memCaseRepo) Create(ctx context.Context, c *entity.TrashInspectionCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cases[c.SdkCaseID] = &cp
	return nil
}

func (r *memCaseRepo) GetBySdkCaseID(ctx context.Context, sdkCaseID string) (*entity.TrashInspectionCase, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	c, ok := r.cases[sdkCaseID]
	if !ok {
		return nil, false, nil
	}
	cp := *c
	return &cp, true, nil
}

func (r *memCaseRepo) ListByInspectionID(ctx context.Context, inspectionID int64) ([]*entity.TrashInspectionCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entity.TrashInspectionCase
	for _, c := range r.cases {
		if c.TrashInspectionID == inspectionID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCaseRepo) Update(ctx context.Context, c *entity.TrashInspectionCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		if err := r.updateErr(c); err != nil {
			return err
		}
	}
	r.updates++
	c.Version++
	cp := *c
	// mirrors the store: status never drops and the workflow state is not written
	if stored, ok := r.cases[c.SdkCaseID]; ok {
		if stored.Status > cp.Status {
			cp.Status = stored.Status
		}
		cp.WorkflowState = stored.WorkflowState
	}
	r.cases[c.SdkCaseID] = &cp
	return nil
}

func (r *memCaseRepo) SetWorkflowState(ctx context.Context, c *entity.TrashInspectionCase, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		if err := r.updateErr(c); err != nil {
			return err
		}
	}
	stored, ok := r.cases[c.SdkCaseID]
	if !ok {
		return fmt.Errorf("case %s not found", c.SdkCaseID)
	}
	r.updates++
	cp := *stored
	cp.WorkflowState = state
	cp.Version++
	r.cases[c.SdkCaseID] = &cp
	c.WorkflowState = state
	c.Version++
	return nil
}

func (r *memCaseRepo) get(sdkCaseID string) *entity.TrashInspectionCase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cases[sdkCaseID]
}

func (r *memCaseRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

type memInspectionRepo struct {
	mu             sync.Mutex
	inspections    map[int64]*entity.TrashInspection
	updates        int
	callbackWrites int
	getErr         error
	updateErr      error
}

func newMemInspectionRepo(inspections ...*entity.TrashInspection) *memInspectionRepo {
	r := &memInspectionRepo{inspections: make(map[int64]*entity.TrashInspection)}
	for _, i := range inspections {
		if i.WorkflowState == "" {
			i.WorkflowState = entity.WorkflowStateCreated
		}
		r.inspections[i.ID] = i
	}
	return r
}

func (r *memInspectionRepo) Create(ctx context.Context, inspection *entity.TrashInspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inspection
	r.inspections[inspection.ID] = &cp
	return nil
}

func (r *memInspectionRepo) GetByID(ctx context.Context, id int64) (*entity.TrashInspection, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, false, r.getErr
	}
	i, ok := r.inspections[id]
	if !ok {
		return nil, false, nil
	}
	cp := *i
	return &cp, true, nil
}

func (r *memInspectionRepo) Update(ctx context.Context, inspection *entity.TrashInspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates++
	inspection.Version++
	cp := *inspection
	if stored, ok := r.inspections[inspection.ID]; ok {
		if stored.Status > cp.Status {
			cp.Status = stored.Status
		}
		if !inspection.InspectionDone {
			cp.IsApproved = stored.IsApproved
			cp.ApprovedValue = stored.ApprovedValue
			cp.Comment = stored.Comment
			cp.InspectionDone = stored.InspectionDone
		}
		cp.SuccessMessage = stored.SuccessMessage
		cp.ErrorMessage = stored.ErrorMessage
	}
	r.inspections[inspection.ID] = &cp
	return nil
}

func (r *memInspectionRepo) UpdateCallbackResult(ctx context.Context, id int64, successMessage, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.inspections[id]
	if !ok {
		return fmt.Errorf("inspection %d not found", id)
	}
	r.callbackWrites++
	cp := *stored
	cp.SuccessMessage = successMessage
	cp.ErrorMessage = errorMessage
	cp.Version++
	r.inspections[id] = &cp
	return nil
}

func (r *memInspectionRepo) get(id int64) *entity.TrashInspection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inspections[id]
}

func (r *memInspectionRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

type mockTxManager struct {
	calls int
	err   error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(ctx)
}

type mockFormClient struct {
	mu        sync.Mutex
	forms     map[string]*entity.CompletedForm
	readErr   error
	deleteErr map[string]error
	deleted   []string
}

func (m *mockFormClient) ReadCase(ctx context.Context, sdkCaseID string) (*entity.CompletedForm, bool, error) {
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	f, ok := m.forms[sdkCaseID]
	return f, ok, nil
}

func (m *mockFormClient) DeleteCase(ctx context.Context, sdkCaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[sdkCaseID]; err != nil {
		return err
	}
	m.deleted = append(m.deleted, sdkCaseID)
	return nil
}

type mockBackOffice struct {
	mu       sync.Mutex
	requests []port.CallbackRequest
	sendFunc func(ctx context.Context, req port.CallbackRequest) (string, error)
}

func (m *mockBackOffice) SendResult(ctx context.Context, req port.CallbackRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, req)
	}
	return fmt.Sprintf("received case %s", req.CaseID), nil
}

func (m *mockBackOffice) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type mockLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	denied bool
}

func (m *mockLocker) TryLock(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denied || m.held[key] {
		return false
	}
	if m.held == nil {
		m.held = make(map[string]bool)
	}
	m.held[key] = true
	return true
}

func (m *mockLocker) Unlock(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

type recordingMetrics struct {
	mu            sync.Mutex
	retractions   map[string]int
	notifications map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{retractions: map[string]int{}, notifications: map[string]int{}}
}

func (m *recordingMetrics) ObserveRetraction(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retractions[outcome]++
}

func (m *recordingMetrics) ObserveNotification(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[outcome]++
}

var errStoreDown = errors.New("store down")

// completedForm builds a form with the approval field nested one group deep
func completedForm(approvalValue, comment string) *entity.CompletedForm {
	approval := entity.FormField{ID: 1, Label: entity.DefaultApprovalLabel, FieldType: "CheckBox"}
	if approvalValue != "" {
		approval.Values = []entity.FieldValue{{Value: approvalValue}}
	}
	return &entity.CompletedForm{
		Elements: []entity.ReplyElement{
			{
				ID:    10,
				Label: "Kontrol",
				Groups: []entity.ReplyGroup{
					{
						Label: "Læs",
						DataItems: []entity.FormField{
							{ID: 2, Label: "Vejenummer", Values: []entity.FieldValue{{Value: "W-1"}}},
						},
						Groups: []entity.ReplyGroup{
							{Label: "Resultat", DataItems: []entity.FormField{approval}},
						},
					},
					{
						Label: "Bemærkninger",
						DataItems: []entity.FormField{
							{ID: 3, Label: entity.DefaultCommentLabel, Values: []entity.FieldValue{{Value: comment}}},
						},
					},
				},
			},
		},
	}
}
