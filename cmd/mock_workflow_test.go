package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"mutafix.dev/pkg/mutafix/internal/domain"
)

type mockWorkflow struct {
	mock.Mock
}

var _ domain.Workflow = (*mockWorkflow)(nil)

// useMockWorkflow swaps the package workflow for a mock until the test ends.
func useMockWorkflow(t *testing.T) *mockWorkflow {
	t.Helper()

	mw := &mockWorkflow{}
	mw.Test(t)

	original := workflow
	workflow = mw

	t.Cleanup(func() {
		workflow = original
		mw.AssertExpectations(t)
	})

	return mw
}

func (w *mockWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *mockWorkflow) Mutate(ctx context.Context, args domain.MutateArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *mockWorkflow) Score(ctx context.Context, args domain.ScoreArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *mockWorkflow) Index(ctx context.Context, args domain.IndexArgs) error {
	return w.Called(ctx, args).Error(0)
}

func (w *mockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	return w.Called(ctx, args).Error(0)
}
