package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fitstack/coachd/internal/domain"
	"github.com/fitstack/coachd/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockJobLister is a mock implementation of JobLister
type MockJobLister struct {
	mock.Mock
}

func (m *MockJobLister) ListUnfinished(ctx context.Context) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

// MockBatchProcessor is a mock implementation of BatchProcessor
type MockBatchProcessor struct {
	mock.Mock
}

func (m *MockBatchProcessor) ProcessBatch(ctx context.Context, jobID string) (*service.BatchResult, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker("test", mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestBatchAdvancer_ProcessJobs_NoUnfinishedJobs(t *testing.T) {
	mockLister := new(MockJobLister)
	mockRunner := new(MockBatchProcessor)

	mockLister.On("ListUnfinished", mock.Anything).Return([]*domain.EmbeddingJob{}, nil)

	advancer := NewBatchAdvancer(mockLister, mockRunner)
	err := advancer.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRunner.AssertNotCalled(t, "ProcessBatch", mock.Anything, mock.Anything)
}

func TestBatchAdvancer_ProcessJobs_AdvancesEachJobOnce(t *testing.T) {
	mockLister := new(MockJobLister)
	mockRunner := new(MockBatchProcessor)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", Status: domain.EmbeddingJobStatusRunning},
		{ID: "job-2", Status: domain.EmbeddingJobStatusPending},
	}
	mockLister.On("ListUnfinished", mock.Anything).Return(jobs, nil)
	mockRunner.On("ProcessBatch", mock.Anything, "job-1").Return(&service.BatchResult{JobID: "job-1"}, nil).Once()
	mockRunner.On("ProcessBatch", mock.Anything, "job-2").Return(&service.BatchResult{JobID: "job-2", Completed: true}, nil).Once()

	advancer := NewBatchAdvancer(mockLister, mockRunner)
	err := advancer.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRunner.AssertExpectations(t)
}

func TestBatchAdvancer_ProcessJobs_OneFailureDoesNotStopOthers(t *testing.T) {
	mockLister := new(MockJobLister)
	mockRunner := new(MockBatchProcessor)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", Status: domain.EmbeddingJobStatusRunning},
		{ID: "job-2", Status: domain.EmbeddingJobStatusRunning},
	}
	mockLister.On("ListUnfinished", mock.Anything).Return(jobs, nil)
	mockRunner.On("ProcessBatch", mock.Anything, "job-1").Return(nil, errors.New("db down")).Once()
	mockRunner.On("ProcessBatch", mock.Anything, "job-2").Return(&service.BatchResult{JobID: "job-2"}, nil).Once()

	advancer := NewBatchAdvancer(mockLister, mockRunner)
	err := advancer.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRunner.AssertExpectations(t)
}

func TestBatchAdvancer_ProcessJobs_ListFailure(t *testing.T) {
	mockLister := new(MockJobLister)
	mockRunner := new(MockBatchProcessor)

	mockLister.On("ListUnfinished", mock.Anything).Return(nil, errors.New("db down"))

	advancer := NewBatchAdvancer(mockLister, mockRunner)
	err := advancer.ProcessJobs(context.Background())

	assert.Error(t, err)
}
