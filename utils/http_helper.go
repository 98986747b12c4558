package utils

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"card_recommend/models"
)

// MaxJSONBodyBytes 请求体大小上限
const MaxJSONBodyBytes = 1 << 20

// WriteFormattedJSON 格式化JSON输出，使其更易读
func WriteFormattedJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ") // 使用4个空格缩进
	encoder.Encode(data)
}

// WriteSuccessResponse 写入成功响应
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteFormattedJSON(w, http.StatusOK, models.NewSuccessResponse(data))
}

// WriteAcceptedResponse 写入已受理的异步任务响应
func WriteAcceptedResponse(w http.ResponseWriter, data interface{}) {
	WriteFormattedJSON(w, http.StatusAccepted, models.NewSuccessResponse(data))
}

// WriteErrorResponse 写入错误响应
func WriteErrorResponse(w http.ResponseWriter, code int, data interface{}) {
	WriteFormattedJSON(w, models.HTTPStatus(code), models.NewErrorResponse(code, data))
}

// WriteCustomErrorResponse 写入自定义错误消息的响应
func WriteCustomErrorResponse(w http.ResponseWriter, code int, message string, data interface{}) {
	WriteFormattedJSON(w, models.HTTPStatus(code), models.NewCustomErrorResponse(code, message, data))
}

// HandleServiceError 处理服务层错误的通用函数，无法识别的错误使用 fallback 响应码
func HandleServiceError(w http.ResponseWriter, err error, fallback int) {
	code := ErrorCode(err, fallback)
	if code == fallback {
		WriteCustomErrorResponse(w, code, err.Error(), map[string]interface{}{})
		return
	}
	WriteErrorResponse(w, code, map[string]interface{}{})
}

// DecodeJSONBody 解析请求体，拒绝未知字段和多余内容
func DecodeJSONBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
