package repository

import (
	"context"
	"slices"
	"sync"

	"card_recommend/models"
)

// HistoryStore 已完成推荐结果的追加日志，不支持删除和修改
type HistoryStore interface {
	Append(ctx context.Context, result *models.RecommendationResult) error
	Get(ctx context.Context, id int64) (*models.RecommendationResult, error)
	// Recent 按创建时间倒序返回最多 limit 条，limit<=0 时返回空
	Recent(ctx context.Context, limit int) ([]models.RecommendationResult, error)
	// LastID 已保存的最大生成ID，用于进程启动时恢复序号
	LastID(ctx context.Context) (int64, error)
}

// MemoryHistoryStore 进程内历史记录，results 按 (CreatedAt, ID) 升序保存
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	results []*models.RecommendationResult
	byID    map[int64]*models.RecommendationResult
}

// NewMemoryHistoryStore 创建内存历史存储
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{byID: make(map[int64]*models.RecommendationResult)}
}

func compareCreated(a, b *models.RecommendationResult) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func (s *MemoryHistoryStore) Append(_ context.Context, result *models.RecommendationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[result.ID]; exists {
		return ErrDuplicateResult
	}
	// 并发任务的追加顺序不一定等于创建顺序
	idx, _ := slices.BinarySearchFunc(s.results, result, compareCreated)
	s.results = slices.Insert(s.results, idx, result)
	s.byID[result.ID] = result
	return nil
}

func (s *MemoryHistoryStore) Get(_ context.Context, id int64) (*models.RecommendationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.byID[id]
	if !ok {
		return nil, ErrResultNotFound
	}
	return result, nil
}

func (s *MemoryHistoryStore) Recent(_ context.Context, limit int) ([]models.RecommendationResult, error) {
	if limit <= 0 {
		return []models.RecommendationResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, len(s.results))
	out := make([]models.RecommendationResult, 0, n)
	for i := len(s.results) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *s.results[i])
	}
	return out, nil
}

func (s *MemoryHistoryStore) LastID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last int64
	for id := range s.byID {
		if id > last {
			last = id
		}
	}
	return last, nil
}
