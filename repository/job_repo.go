package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"card_recommend/models"
)

// JobStore 推荐任务存储。每个任务只有一个写者（驱动它的后台任务），读者可以并发轮询
type JobStore interface {
	// Create 分配新ID并插入 pending 记录
	Create() (string, error)
	// Get 返回任务快照
	Get(id string) (models.Job, error)
	// Complete pending → completed
	Complete(id string, result *models.RecommendationResult) error
	// Fail pending → failed
	Fail(id string, reason string) error
	// PruneFinished 删除在 before 之前结束的终态任务，返回删除数量
	PruneFinished(before time.Time) int
}

// MemoryJobStore 进程内任务存储，随进程生命周期存在
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
	now  func() time.Time
}

// NewMemoryJobStore 创建内存任务存储
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*models.Job),
		now:  time.Now,
	}
}

func (s *MemoryJobStore) Create() (string, error) {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; exists {
		return "", fmt.Errorf("job id collision: %s", id)
	}
	s.jobs[id] = &models.Job{
		ID:        id,
		Status:    models.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id, nil
}

func (s *MemoryJobStore) Get(id string) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, ErrJobNotFound
	}
	return *job, nil
}

func (s *MemoryJobStore) Complete(id string, result *models.RecommendationResult) error {
	if result == nil {
		return fmt.Errorf("complete job %s: nil result", id)
	}
	return s.transition(id, models.JobCompleted, func(job *models.Job) {
		job.Result = result
	})
}

func (s *MemoryJobStore) Fail(id string, reason string) error {
	if reason == "" {
		reason = "unknown error"
	}
	return s.transition(id, models.JobFailed, func(job *models.Job) {
		job.Error = reason
	})
}

// transition 在锁内校验状态迁移，非法迁移不修改任何字段
func (s *MemoryJobStore) transition(id string, to models.JobStatus, apply func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if !models.CanTransition(job.Status, to) {
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.Status)
	}
	apply(job)
	job.Status = to
	job.UpdatedAt = s.now()
	return nil
}

func (s *MemoryJobStore) PruneFinished(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(before) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// Len 当前保存的任务数量
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
