package models

import "time"

// FilterSet 用户提交的筛选条件，所有字段可选，缺省即不限制
type FilterSet struct {
	// 卡组织，如 VISA / Mastercard
	Networks []string `json:"network,omitempty" validate:"omitempty,max=8,dive,required,max=32"`
	// 期望的返现/积分类别
	RewardCategories []string `json:"rewards,omitempty" validate:"omitempty,max=16,dive,required,max=64"`
	// 年费区间，如 "0-100"、"0"、"95+"
	FeeRange string `json:"fee_range,omitempty" validate:"omitempty,feerange"`
	// 其它自由文本需求
	AdditionalRequirements string `json:"additional_requirements,omitempty" validate:"omitempty,max=2000"`
}

// 文档提取方式
const (
	ExtractMethodText = "text"
	ExtractMethodOCR  = "ocr"
)

// ExtractedDocument 文档提取结果，Text 非空与 Failed 二者只有其一
type ExtractedDocument struct {
	Text      string `json:"-"`
	Failed    bool   `json:"failed"`
	Reason    string `json:"reason,omitempty"`
	Method    string `json:"method,omitempty"`
	Pages     int    `json:"pages,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Succeeded 是否得到了可用文本
func (d ExtractedDocument) Succeeded() bool {
	return !d.Failed && d.Text != ""
}

// 文档状态
const (
	DocumentStatusExtracted = "extracted"
	DocumentStatusFailed    = "failed"
)

// DocumentSummary 推荐结果中记录的文档处理情况，只保留摘要信息不保存原文
type DocumentSummary struct {
	FileID     string `json:"file_id"`
	FileName   string `json:"file_name,omitempty"`
	Status     string `json:"status"`
	Method     string `json:"method,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	Characters int    `json:"characters"`
	Truncated  bool   `json:"truncated,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// RecommendedItem 单张推荐卡片，所有字段对服务端而言都是模型给出的不透明字符串
type RecommendedItem struct {
	Name        string   `json:"name"`
	Issuer      string   `json:"issuer"`
	ImageURL    string   `json:"image_url"`
	AnnualFee   string   `json:"annual_fee"`
	Network     string   `json:"network"`
	Offer       string   `json:"offer,omitempty"`
	RewardsRate string   `json:"rewards_rate"`
	Reason      string   `json:"reason"`
	Benefits    []string `json:"benefits"`
	ApplyURL    string   `json:"apply_url"`
}

// 模型输出格式
const (
	FormatPrimary = "primary" // {summary, recommendations}
	FormatLegacy  = "legacy"  // 早期版本的纯数组输出
)

// RecommendationResult 一次生成的完整结果，Items 的顺序即排名顺序
type RecommendationResult struct {
	ID        int64             `json:"id"`
	Filters   FilterSet         `json:"filters"`
	Document  *DocumentSummary  `json:"document,omitempty"`
	Summary   string            `json:"summary,omitempty"`
	Items     []RecommendedItem `json:"recommendations"`
	Count     int               `json:"count"`
	Format    string            `json:"format"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewRecommendationResult 构建结果并保证 Count 与 Items 长度一致
func NewRecommendationResult(id int64, filters FilterSet, summary string, items []RecommendedItem, format string, createdAt time.Time) *RecommendationResult {
	if items == nil {
		items = []RecommendedItem{}
	}
	return &RecommendationResult{
		ID:        id,
		Filters:   filters,
		Summary:   summary,
		Items:     items,
		Count:     len(items),
		Format:    format,
		CreatedAt: createdAt,
	}
}
