package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"card_recommend/config"
	"card_recommend/logger"
	"card_recommend/models"
	"card_recommend/repository"
)

// historyWriteTimeout 历史追加使用独立的超时，不受任务截止时间影响
const historyWriteTimeout = 5 * time.Second

// RecommendationService 异步推荐任务编排：
// 提取 → 构建提示词 → 推理 → 解析 → 写入任务终态 → 追加历史
type RecommendationService struct {
	jobs      repository.JobStore
	history   repository.HistoryStore
	uploads   repository.UploadStore
	extractor Extractor
	inference Inference

	sem        *semaphore.Weighted
	jobTimeout time.Duration
	seq        atomic.Int64
	wg         sync.WaitGroup
	now        func() time.Time
}

// NewRecommendationService 创建推荐服务，生成序号从历史存储中已有的最大ID继续
func NewRecommendationService(
	ctx context.Context,
	cfg *config.Config,
	jobs repository.JobStore,
	history repository.HistoryStore,
	uploads repository.UploadStore,
	extractor Extractor,
	inference Inference,
) (*RecommendationService, error) {
	concurrency := cfg.LLM.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	timeout := time.Duration(cfg.Jobs.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	lastID, err := history.LastID(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover generation sequence: %w", err)
	}

	s := &RecommendationService{
		jobs:       jobs,
		history:    history,
		uploads:    uploads,
		extractor:  extractor,
		inference:  inference,
		sem:        semaphore.NewWeighted(int64(concurrency)),
		jobTimeout: timeout,
		now:        time.Now,
	}
	s.seq.Store(lastID)
	logger.Info("推荐服务初始化完成", "max_concurrency", concurrency, "job_timeout", timeout.String(), "last_generation_id", lastID)
	return s, nil
}

// Submit 校验文件引用并创建任务，立即返回任务ID，生成过程在后台执行
func (s *RecommendationService) Submit(ctx context.Context, req models.GenerateRequest) (string, error) {
	var file *repository.UploadedFile
	if id := strings.TrimSpace(req.FileID); id != "" {
		f, err := s.uploads.Resolve(id)
		if err != nil {
			return "", err
		}
		file = &f
	}

	jobID, err := s.jobs.Create()
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	JobsSubmittedTotal.Inc()
	logger.Info("推荐任务已提交", "job_id", jobID, "has_document", file != nil)

	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), jobID, req.Filters, file)
	return jobID, nil
}

// Job 查询任务状态
func (s *RecommendationService) Job(id string) (models.Job, error) {
	return s.jobs.Get(id)
}

// History 最近的推荐结果
func (s *RecommendationService) History(ctx context.Context, limit int) ([]models.RecommendationResult, error) {
	return s.history.Recent(ctx, limit)
}

// Result 按生成ID获取推荐结果
func (s *RecommendationService) Result(ctx context.Context, id int64) (*models.RecommendationResult, error) {
	return s.history.Get(ctx, id)
}

// Wait 等待所有进行中的任务结束
func (s *RecommendationService) Wait() {
	s.wg.Wait()
}

func (s *RecommendationService) run(ctx context.Context, jobID string, filters models.FilterSet, file *repository.UploadedFile) {
	defer s.wg.Done()
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("推荐任务异常退出", "job_id", jobID, "panic", r, "stack", string(debug.Stack()))
			s.fail(jobID, start, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	result, err := s.generate(ctx, jobID, filters, file)
	if err != nil {
		s.fail(jobID, start, err.Error())
		return
	}

	if err := s.jobs.Complete(jobID, result); err != nil {
		logger.Error("写入任务完成状态失败", "job_id", jobID, "error", err)
		return
	}
	JobsFinishedTotal.WithLabelValues(string(models.JobCompleted)).Inc()
	JobDuration.WithLabelValues(string(models.JobCompleted)).Observe(time.Since(start).Seconds())

	hctx, hcancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer hcancel()
	if err := s.history.Append(hctx, result); err != nil {
		logger.Error("追加历史记录失败", "job_id", jobID, "result_id", result.ID, "error", err)
		return
	}
	logger.Info("推荐任务完成", "job_id", jobID, "result_id", result.ID, "count", result.Count, "format", result.Format,
		"duration_ms", time.Since(start).Milliseconds())
}

func (s *RecommendationService) generate(ctx context.Context, jobID string, filters models.FilterSet, file *repository.UploadedFile) (*models.RecommendationResult, error) {
	var (
		doc  *models.DocumentSummary
		text string
	)
	if file != nil {
		extracted := s.extractor.Extract(ctx, file.Path)
		doc = summarizeDocument(file, extracted)
		if extracted.Succeeded() {
			text = extracted.Text
			logger.Info("文档提取成功", "job_id", jobID, "file_id", file.ID, "method", extracted.Method,
				"pages", extracted.Pages, "characters", doc.Characters, "truncated", extracted.Truncated)
		} else {
			logger.Warn("文档提取失败，按无文档继续", "job_id", jobID, "file_id", file.ID, "reason", extracted.Reason)
		}
		if err := s.uploads.MarkConsumed(file.ID); err != nil {
			logger.Warn("标记上传文件失败", "job_id", jobID, "file_id", file.ID, "error", err)
		}
	}

	prompt := BuildRecommendationPrompt(filters, text)

	answer, err := s.query(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseRecommendationAnswer(answer)
	if err != nil {
		ParsesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	ParsesTotal.WithLabelValues(parsed.Format).Inc()

	result := models.NewRecommendationResult(s.seq.Add(1), filters, parsed.Summary, parsed.Items, parsed.Format, s.now())
	result.Document = doc
	return result, nil
}

// query 在并发上限内调用推理服务
func (s *RecommendationService) query(ctx context.Context, prompt string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for an inference slot: %w", err)
	}
	defer s.sem.Release(1)
	return s.inference.Query(ctx, prompt)
}

func (s *RecommendationService) fail(jobID string, start time.Time, reason string) {
	if err := s.jobs.Fail(jobID, reason); err != nil {
		logger.Error("写入任务失败状态失败", "job_id", jobID, "error", err)
		return
	}
	JobsFinishedTotal.WithLabelValues(string(models.JobFailed)).Inc()
	JobDuration.WithLabelValues(string(models.JobFailed)).Observe(time.Since(start).Seconds())
	logger.Warn("推荐任务失败", "job_id", jobID, "reason", reason, "duration_ms", time.Since(start).Milliseconds())
}

func summarizeDocument(file *repository.UploadedFile, extracted models.ExtractedDocument) *models.DocumentSummary {
	summary := &models.DocumentSummary{
		FileID:    file.ID,
		FileName:  file.Name,
		Method:    extracted.Method,
		Pages:     extracted.Pages,
		Truncated: extracted.Truncated,
	}
	if extracted.Succeeded() {
		summary.Status = models.DocumentStatusExtracted
		summary.Characters = utf8.RuneCountInString(extracted.Text)
	} else {
		summary.Status = models.DocumentStatusFailed
		summary.Reason = extracted.Reason
	}
	return summary
}
