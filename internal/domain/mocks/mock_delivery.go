package mocks

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
)

// MockDeliveryHistory is a mock of DeliveryHistory interface
type MockDeliveryHistory struct {
	ctrl     *gomock.Controller
	recorder *MockDeliveryHistoryMockRecorder
}

// MockDeliveryHistoryMockRecorder is the mock recorder for MockDeliveryHistory
type MockDeliveryHistoryMockRecorder struct {
	mock *MockDeliveryHistory
}

// NewMockDeliveryHistory creates a new mock instance
func NewMockDeliveryHistory(ctrl *gomock.Controller) *MockDeliveryHistory {
	mock := &MockDeliveryHistory{ctrl: ctrl}
	mock.recorder = &MockDeliveryHistoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockDeliveryHistory) EXPECT() *MockDeliveryHistoryMockRecorder {
	return m.recorder
}

// RecordDelivery mocks base method
func (m *MockDeliveryHistory) RecordDelivery(ctx context.Context, record *domain.DeliveryRecord) error {
	ret := m.ctrl.Call(m, "RecordDelivery", ctx, record)
	ret0, _ := ret[0].(error)
	return ret0
}

// RecordDelivery indicates an expected call of RecordDelivery
func (mr *MockDeliveryHistoryMockRecorder) RecordDelivery(ctx, record interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RecordDelivery", reflect.TypeOf((*MockDeliveryHistory)(nil).RecordDelivery), ctx, record)
}

// MockSuppressionList is a mock of SuppressionList interface
type MockSuppressionList struct {
	ctrl     *gomock.Controller
	recorder *MockSuppressionListMockRecorder
}

// MockSuppressionListMockRecorder is the mock recorder for MockSuppressionList
type MockSuppressionListMockRecorder struct {
	mock *MockSuppressionList
}

// NewMockSuppressionList creates a new mock instance
func NewMockSuppressionList(ctrl *gomock.Controller) *MockSuppressionList {
	mock := &MockSuppressionList{ctrl: ctrl}
	mock.recorder = &MockSuppressionListMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockSuppressionList) EXPECT() *MockSuppressionListMockRecorder {
	return m.recorder
}

// Suppress mocks base method
func (m *MockSuppressionList) Suppress(ctx context.Context, suppression *domain.Suppression) error {
	ret := m.ctrl.Call(m, "Suppress", ctx, suppression)
	ret0, _ := ret[0].(error)
	return ret0
}

// Suppress indicates an expected call of Suppress
func (mr *MockSuppressionListMockRecorder) Suppress(ctx, suppression interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Suppress", reflect.TypeOf((*MockSuppressionList)(nil).Suppress), ctx, suppression)
}

// IsSuppressed mocks base method
func (m *MockSuppressionList) IsSuppressed(ctx context.Context, email string) (bool, error) {
	ret := m.ctrl.Call(m, "IsSuppressed", ctx, email)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// IsSuppressed indicates an expected call of IsSuppressed
func (mr *MockSuppressionListMockRecorder) IsSuppressed(ctx, email interface{}) *gomock.Call {
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsSuppressed", reflect.TypeOf((*MockSuppressionList)(nil).IsSuppressed), ctx, email)
}
