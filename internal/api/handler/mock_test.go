package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/idempotency"
	"github.com/edvin/ern/internal/model"
)

type mockEmergencyService struct {
	mock.Mock
}

func (m *mockEmergencyService) Trigger(ctx context.Context, req escalation.TriggerRequest) (*escalation.TriggerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escalation.TriggerResult), args.Error(1)
}

func (m *mockEmergencyService) Resolve(ctx context.Context, caseID, resolvedBy string) (*model.EmergencyCase, error) {
	args := m.Called(ctx, caseID, resolvedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmergencyCase), args.Error(1)
}

func (m *mockEmergencyService) RecordResponse(ctx context.Context, caseID, responderID string, status model.AssignmentStatus) (*escalation.ResponseResult, error) {
	args := m.Called(ctx, caseID, responderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escalation.ResponseResult), args.Error(1)
}

func (m *mockEmergencyService) GetCase(ctx context.Context, caseID, viewerID string) (*escalation.CaseDetail, error) {
	args := m.Called(ctx, caseID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escalation.CaseDetail), args.Error(1)
}

func (m *mockEmergencyService) ReadLog(ctx context.Context, caseID, viewerID string) ([]model.EscalationLogEntry, error) {
	args := m.Called(ctx, caseID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EscalationLogEntry), args.Error(1)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) Begin(ctx context.Context, key string) (*idempotency.Record, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idempotency.Record), args.Error(1)
}

func (m *mockIdempotencyStore) Complete(ctx context.Context, key string, rec idempotency.Record) error {
	args := m.Called(ctx, key, rec)
	return args.Error(0)
}

func (m *mockIdempotencyStore) Abandon(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
