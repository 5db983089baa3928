package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"habilitaciones/internal/model"
	"habilitaciones/internal/repository"
)

type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, s *model.Submission) (*model.Submission, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) List(ctx context.Context, q repository.ListQuery) (*repository.Page, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Page), args.Error(1)
}

func (m *MockSubmissionRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSubmissionRepository) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSubmissionRepository) UpdateReview(ctx context.Context, id string, notes string, status model.Status) error {
	args := m.Called(ctx, id, notes, status)
	return args.Error(0)
}

func (m *MockSubmissionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
