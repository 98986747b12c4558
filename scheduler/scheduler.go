package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"card_recommend/config"
	"card_recommend/logger"
)

// 将秒数转换为时间间隔
func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// 任务类型
type TaskType int

const (
	TaskJobSweep TaskType = iota
)

// 任务状态
type TaskStatus struct {
	LastRun     time.Time
	NextRun     time.Time
	IsRunning   bool
	Description string
}

// JobPruner 清理已结束的任务
type JobPruner interface {
	PruneFinished(before time.Time) int
}

// 任务调度器
type Scheduler struct {
	pruner    JobPruner
	retention time.Duration
	interval  time.Duration
	tasks     map[TaskType]*TaskStatus
	mutex     sync.Mutex
	wg        sync.WaitGroup
}

// 创建新的调度器
func NewScheduler(cfg *config.Config, pruner JobPruner) *Scheduler {
	retention := time.Duration(cfg.Jobs.RetentionMin) * time.Minute
	if retention <= 0 {
		retention = time.Hour
	}
	interval := secondsToDuration(cfg.Jobs.SweepIntervalSec)
	if interval <= 0 {
		interval = time.Minute
	}

	return &Scheduler{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		tasks:     make(map[TaskType]*TaskStatus),
	}
}

// Start 启动调度器，ctx 取消后主循环退出
func (s *Scheduler) Start(ctx context.Context) {
	s.initTasks(time.Now())

	s.wg.Add(1)
	go s.run(ctx)

	logger.Info("调度器已启动", "check_interval", s.interval.String(), "job_retention", s.retention.String())
}

// Wait 等待主循环和正在执行的任务结束
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// 初始化任务
func (s *Scheduler) initTasks(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tasks[TaskJobSweep] = &TaskStatus{
		NextRun:     now.Add(s.interval),
		Description: fmt.Sprintf("清理已结束任务 (保留%s)", s.retention),
	}
	logger.Info("定时任务初始化完成", "task_count", len(s.tasks))
}

// 主循环
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("调度器已停止")
			return
		case now := <-ticker.C:
			s.checkTasks(now)
		}
	}
}

// 检查任务
func (s *Scheduler) checkTasks(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for taskType, status := range s.tasks {
		// 如果任务正在运行，跳过
		if status.IsRunning {
			continue
		}

		// 如果到达或超过下次运行时间，执行任务
		if now.After(status.NextRun) || now.Equal(status.NextRun) {
			status.IsRunning = true
			s.wg.Add(1)
			go s.runTask(taskType, now)
		}
	}
}

// 运行任务
func (s *Scheduler) runTask(taskType TaskType, now time.Time) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("定时任务异常", "task", taskType, "panic", r)
		}

		s.mutex.Lock()
		defer s.mutex.Unlock()

		status := s.tasks[taskType]
		status.IsRunning = false
		status.LastRun = now
		status.NextRun = now.Add(s.interval)
	}()

	switch taskType {
	case TaskJobSweep:
		s.sweep(now)
	}
}

// sweep 删除在 now-retention 之前进入终态的任务，返回删除数量
func (s *Scheduler) sweep(now time.Time) int {
	removed := s.pruner.PruneFinished(now.Add(-s.retention))
	if removed > 0 {
		logger.Info("已清理结束的任务", "removed", removed)
	} else {
		logger.Debug("没有需要清理的任务")
	}
	return removed
}

// Status 当前各任务状态的快照
func (s *Scheduler) Status() map[TaskType]TaskStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make(map[TaskType]TaskStatus, len(s.tasks))
	for k, v := range s.tasks {
		out[k] = *v
	}
	return out
}
