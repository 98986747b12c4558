package models

import "net/http"

// 响应码定义
const (
	// 成功
	CodeSuccess = 0

	// 客户端错误 (1000-1999)
	CodeInvalidParams  = 1000 // 无效的参数
	CodeMissingParams  = 1001 // 缺少必要参数
	CodeFileNotFound   = 1002 // 上传文件不存在
	CodeJobNotFound    = 1003 // 任务不存在
	CodeResultNotFound = 1004 // 推荐结果不存在
	CodeUploadRejected = 1005 // 上传文件不符合要求

	// 服务端错误 (2000-2999)
	CodeServerError        = 2000 // 服务器内部错误
	CodeDatabaseError      = 2001 // 数据库错误
	CodeRecommendGenError  = 2003 // 推荐生成错误
	CodeThirdPartyAPIError = 2005 // 第三方API错误
)

// 错误码对应的消息
var CodeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeInvalidParams:      "无效的参数",
	CodeMissingParams:      "缺少必要参数",
	CodeFileNotFound:       "上传文件不存在",
	CodeJobNotFound:        "任务不存在",
	CodeResultNotFound:     "推荐结果不存在",
	CodeUploadRejected:     "上传文件不符合要求",
	CodeServerError:        "服务器内部错误",
	CodeDatabaseError:      "数据库错误",
	CodeRecommendGenError:  "推荐生成错误",
	CodeThirdPartyAPIError: "第三方API错误",
}

// codeHTTPStatus 错误码对应的HTTP状态码，未列出的按500处理
var codeHTTPStatus = map[int]int{
	CodeSuccess:            http.StatusOK,
	CodeInvalidParams:      http.StatusBadRequest,
	CodeMissingParams:      http.StatusBadRequest,
	CodeFileNotFound:       http.StatusNotFound,
	CodeJobNotFound:        http.StatusNotFound,
	CodeResultNotFound:     http.StatusNotFound,
	CodeUploadRejected:     http.StatusBadRequest,
	CodeThirdPartyAPIError: http.StatusBadGateway,
}

// HTTPStatus 返回错误码对应的HTTP状态码
func HTTPStatus(code int) int {
	if status, ok := codeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Code:    CodeSuccess,
		Message: CodeMessages[CodeSuccess],
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, data interface{}) APIResponse {
	message, exists := CodeMessages[code]
	if !exists {
		message = "未知错误"
	}
	return APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewCustomErrorResponse 创建自定义错误消息的响应
func NewCustomErrorResponse(code int, message string, data interface{}) APIResponse {
	return APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
}
