package models

// APIResponse 通用API响应
type APIResponse struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// GenerateRequest 生成推荐请求体
type GenerateRequest struct {
	Filters FilterSet `json:"filters"`
	FileID  string    `json:"file_id,omitempty" example:"5d0c3f0e-1f5e-4c4c-9a4e-0a8f0b1b2c3d" validate:"omitempty,max=64"`
}

// GenerateResponse 提交生成任务后的响应数据
type GenerateResponse struct {
	JobID  string    `json:"job_id" example:"5d0c3f0e-1f5e-4c4c-9a4e-0a8f0b1b2c3d"`
	Status JobStatus `json:"status" example:"pending"`
}

// ChatRequest 追问请求体
type ChatRequest struct {
	ResultID int64      `json:"result_id" example:"1" validate:"required,gt=0"`
	History  []ChatTurn `json:"history" validate:"omitempty,max=100,dive"`
	Message  string     `json:"message" example:"Which card is best for groceries?" validate:"required,max=4000"`
}

// ChatResponse 追问回复
type ChatResponse struct {
	ResultID int64  `json:"result_id" example:"1"`
	Reply    string `json:"reply"`
}

// UploadResponse 上传成功的响应数据
type UploadResponse struct {
	FileID   string `json:"file_id" example:"5d0c3f0e-1f5e-4c4c-9a4e-0a8f0b1b2c3d"`
	FileName string `json:"file_name" example:"statement.pdf"`
	Size     int64  `json:"size" example:"20480"`
}

// HistoryResponse 历史记录列表
type HistoryResponse struct {
	Count   int                    `json:"count"`
	Results []RecommendationResult `json:"results"`
}
