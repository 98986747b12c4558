package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"card_recommend/config"
	"card_recommend/logger"
	"card_recommend/models"
	"card_recommend/repository"
	"card_recommend/services"
	"card_recommend/utils"
)

// SubmitRecommendationHandler godoc
// @Summary 提交信用卡推荐任务
// @Description 根据筛选条件和可选的上传文档异步生成3张信用卡推荐，立即返回任务ID，通过任务查询接口轮询结果
// @Tags 推荐
// @Accept json
// @Produce json
// @Param request body models.GenerateRequest true "筛选条件"
// @Success 202 {object} models.APIResponse{data=models.GenerateResponse} "已受理"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 404 {object} models.APIResponse "上传文件不存在"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/recommendations [post]
func SubmitRecommendationHandler(w http.ResponseWriter, r *http.Request, svc services.Recommender) {
	var req models.GenerateRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, err.Error(), map[string]interface{}{})
		return
	}
	if fieldErrs := validateRequest(&req); fieldErrs != nil {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{"errors": fieldErrs})
		return
	}

	jobID, err := svc.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			utils.WriteErrorResponse(w, models.CodeFileNotFound, map[string]interface{}{"file_id": req.FileID})
			return
		}
		logger.Error("提交推荐任务失败", "error", err)
		utils.HandleServiceError(w, err, models.CodeServerError)
		return
	}

	utils.WriteAcceptedResponse(w, models.GenerateResponse{JobID: jobID, Status: models.JobPending})
}

// GetJobHandler godoc
// @Summary 查询推荐任务状态
// @Description 返回任务当前状态；completed 时包含推荐结果，failed 时包含失败原因
// @Tags 推荐
// @Produce json
// @Param jobID path string true "任务ID"
// @Success 200 {object} models.APIResponse{data=models.Job} "成功"
// @Failure 404 {object} models.APIResponse "任务不存在"
// @Router /api/recommendations/jobs/{jobID} [get]
func GetJobHandler(w http.ResponseWriter, r *http.Request, svc services.Recommender) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		utils.WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{"param": "jobID"})
		return
	}

	job, err := svc.Job(jobID)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeServerError)
		return
	}
	utils.WriteSuccessResponse(w, job)
}

// GetHistoryHandler godoc
// @Summary 查询历史推荐
// @Description 按创建时间倒序返回最近的推荐结果
// @Tags 推荐
// @Produce json
// @Param limit query int false "返回条数，默认20，最大100"
// @Success 200 {object} models.APIResponse{data=models.HistoryResponse} "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/recommendations/history [get]
func GetHistoryHandler(w http.ResponseWriter, r *http.Request, cfg *config.Config, svc services.Recommender) {
	limit := cfg.History.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, "limit must be a non-negative integer", map[string]interface{}{"param": "limit"})
			return
		}
		limit = n
	}
	limit = utils.Clamp(limit, 0, cfg.History.MaxLimit)

	results, err := svc.History(r.Context(), limit)
	if err != nil {
		logger.Error("查询历史推荐失败", "error", err)
		utils.HandleServiceError(w, err, models.CodeDatabaseError)
		return
	}
	utils.WriteSuccessResponse(w, models.HistoryResponse{Count: len(results), Results: results})
}

// GetResultHandler godoc
// @Summary 获取单条推荐结果
// @Tags 推荐
// @Produce json
// @Param id path int true "生成ID"
// @Success 200 {object} models.APIResponse{data=models.RecommendationResult} "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 404 {object} models.APIResponse "推荐结果不存在"
// @Router /api/recommendations/{id} [get]
func GetResultHandler(w http.ResponseWriter, r *http.Request, svc services.Recommender) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, "id must be a positive integer", map[string]interface{}{"param": "id"})
		return
	}

	result, err := svc.Result(r.Context(), id)
	if err != nil {
		utils.HandleServiceError(w, err, models.CodeDatabaseError)
		return
	}
	utils.WriteSuccessResponse(w, result)
}
