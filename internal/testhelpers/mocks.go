package testhelpers

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/mealplanner/backend/internal/ai"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/worker"
)

// MockJSONGenerator stands in for the AI client.
type MockJSONGenerator struct {
	mock.Mock
}

func (m *MockJSONGenerator) GenerateJSON(ctx context.Context, prompt string, opts ...ai.Option) (map[string]interface{}, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

// MockNotifier records recipe emails.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendRecipesEmail(ctx context.Context, to string, recipes []*models.Recipe) error {
	args := m.Called(ctx, to, recipes)
	return args.Error(0)
}

// InlineTasks runs submitted tasks synchronously when Drain is called.
type InlineTasks struct {
	mu    sync.Mutex
	names []string
	tasks []worker.TaskFunc
}

func (r *InlineTasks) Submit(name string, fn worker.TaskFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.tasks = append(r.tasks, fn)
	return nil
}

// Names lists submitted task names in order.
func (r *InlineTasks) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// Drain runs every pending task and returns their errors.
func (r *InlineTasks) Drain(ctx context.Context) []error {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()

	var errs []error
	for _, fn := range tasks {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
