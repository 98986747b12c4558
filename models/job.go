package models

import (
	"fmt"
	"time"
)

// JobStatus 推荐任务状态
//
//	pending ──► completed
//	   │
//	   └──────► failed
//
// completed 和 failed 为终态。
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// validJobTransitions 允许的状态迁移
var validJobTransitions = map[JobStatus][]JobStatus{
	JobPending: {JobCompleted, JobFailed},
}

// ParseJobStatus 字符串转状态
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	switch st {
	case JobPending, JobCompleted, JobFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTerminal 是否为终态
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition 判断 from → to 是否合法
func CanTransition(from, to JobStatus) bool {
	for _, s := range validJobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job 一次异步生成请求。Result 仅在 completed 时存在，Error 仅在 failed 时存在
type Job struct {
	ID        string                `json:"job_id"`
	Status    JobStatus             `json:"status"`
	Result    *RecommendationResult `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
