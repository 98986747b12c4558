package handlers

import (
	"errors"
	"net/http"

	"card_recommend/logger"
	"card_recommend/models"
	"card_recommend/repository"
	"card_recommend/services"
	"card_recommend/utils"
)

// ChatHandler godoc
// @Summary 针对推荐结果追问
// @Description 基于一条已完成的推荐结果和对话记录回答追问，回复原样返回
// @Tags 追问
// @Accept json
// @Produce json
// @Param request body models.ChatRequest true "追问内容"
// @Success 200 {object} models.APIResponse{data=models.ChatResponse} "成功"
// @Failure 400 {object} models.APIResponse "参数错误"
// @Failure 404 {object} models.APIResponse "推荐结果不存在"
// @Failure 502 {object} models.APIResponse "推理服务错误"
// @Router /api/chat [post]
func ChatHandler(w http.ResponseWriter, r *http.Request, chat services.Chatter) {
	var req models.ChatRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, err.Error(), map[string]interface{}{})
		return
	}
	if fieldErrs := validateRequest(&req); fieldErrs != nil {
		utils.WriteErrorResponse(w, models.CodeInvalidParams, map[string]interface{}{"errors": fieldErrs})
		return
	}

	reply, err := chat.Reply(r.Context(), req.ResultID, req.History, req.Message)
	if err != nil {
		var ie *services.InferenceError
		switch {
		case errors.Is(err, repository.ErrResultNotFound):
			utils.WriteErrorResponse(w, models.CodeResultNotFound, map[string]interface{}{"result_id": req.ResultID})
		case errors.Is(err, services.ErrEmptyMessage):
			utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, err.Error(), map[string]interface{}{})
		case errors.As(err, &ie):
			utils.WriteCustomErrorResponse(w, models.CodeThirdPartyAPIError, ie.Error(), map[string]interface{}{"kind": ie.Kind})
		default:
			logger.Error("追问失败", "result_id", req.ResultID, "error", err)
			utils.HandleServiceError(w, err, models.CodeServerError)
		}
		return
	}

	utils.WriteSuccessResponse(w, models.ChatResponse{ResultID: req.ResultID, Reply: reply})
}
