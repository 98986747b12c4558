package services

import (
	"context"

	"card_recommend/models"
)

// Extractor 文档文本提取接口，失败以 ExtractedDocument.Failed 表示而不是 error
type Extractor interface {
	Extract(ctx context.Context, path string) models.ExtractedDocument
}

// Inference 外部推理服务接口，返回未解析的回答文本
type Inference interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Recommender 推荐任务服务接口
type Recommender interface {
	// 提交生成任务，返回任务ID
	Submit(ctx context.Context, req models.GenerateRequest) (string, error)

	// 查询任务状态
	Job(id string) (models.Job, error)

	// 最近的历史推荐，按创建时间倒序
	History(ctx context.Context, limit int) ([]models.RecommendationResult, error)

	// 按生成ID获取单条结果
	Result(ctx context.Context, id int64) (*models.RecommendationResult, error)
}

// Chatter 基于已完成推荐结果的追问接口
type Chatter interface {
	Reply(ctx context.Context, resultID int64, transcript []models.ChatTurn, message string) (string, error)
}

var (
	_ Extractor   = (*DocumentExtractor)(nil)
	_ Inference   = (*InferenceClient)(nil)
	_ Recommender = (*RecommendationService)(nil)
	_ Chatter     = (*ChatService)(nil)
)
