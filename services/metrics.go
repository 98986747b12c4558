package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmittedTotal 提交的生成任务数
	JobsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "card_recommend_jobs_submitted_total",
		Help: "Total number of recommendation jobs submitted",
	})

	// JobsFinishedTotal 按终态统计的任务数
	JobsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_recommend_jobs_finished_total",
		Help: "Total number of recommendation jobs that reached a terminal state",
	}, []string{"status"})

	// JobDuration 任务从提交到终态的耗时
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "card_recommend_job_duration_seconds",
		Help:    "Time from job submission to terminal state",
		Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"status"})

	// InferenceRequestsTotal 外部推理调用，按结果分类
	InferenceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_recommend_inference_requests_total",
		Help: "Total number of inference requests by outcome",
	}, []string{"outcome"})

	// InferenceDuration 外部推理调用耗时
	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "card_recommend_inference_duration_seconds",
		Help:    "Latency of inference requests",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	})

	// ExtractionsTotal 文档提取结果，按方式和结果分类
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_recommend_extractions_total",
		Help: "Document extractions by method and outcome",
	}, []string{"method", "outcome"})

	// ParsesTotal 模型输出解析，按格式分类（失败为 failed）
	ParsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "card_recommend_parses_total",
		Help: "Model answer parses by detected format",
	}, []string{"format"})
)
