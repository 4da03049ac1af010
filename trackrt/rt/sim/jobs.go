package sim

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/gekko3d/headlights"
)

// Jobs runs file-writing work (exports, reference renders) off the render
// loop on a one-worker pool.
type Jobs struct {
	pool    worker.DynamicWorkerPool
	logger  headlights.Logger
	mu      sync.Mutex
	nextID  int
	running sync.WaitGroup
}

func NewJobs(logger headlights.Logger) *Jobs {
	if logger == nil {
		logger = headlights.NewNopLogger()
	}
	return &Jobs{
		pool:   worker.NewDynamicWorkerPool(1, 8, time.Second),
		logger: logger,
	}
}

// Submit queues job. The job returns the path it wrote.
func (j *Jobs) Submit(name string, job func() (string, error)) {
	j.mu.Lock()
	j.nextID++
	id := j.nextID
	j.mu.Unlock()

	j.running.Add(1)
	j.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			defer j.running.Done()
			path, err := job()
			if err != nil {
				j.logger.Errorf("%s: %v", name, err)
				return nil, err
			}
			j.logger.Infof("wrote %s", path)
			return path, nil
		},
	})
}

// Wait blocks until every submitted job has returned.
func (j *Jobs) Wait() {
	j.running.Wait()
}
