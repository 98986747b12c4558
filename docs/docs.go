// Package docs 由 swag 注解生成的 Swagger 文档
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {
            "name": "API Support",
            "url": "http://www.swagger.io/support",
            "email": "support@swagger.io"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/uploads": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["上传"],
                "summary": "上传财务文档",
                "parameters": [
                    {"type": "file", "description": "文档", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "文件不符合要求", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/recommendations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["推荐"],
                "summary": "提交信用卡推荐任务",
                "parameters": [
                    {"description": "筛选条件", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.GenerateRequest"}}
                ],
                "responses": {
                    "202": {"description": "已受理", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "参数错误", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "上传文件不存在", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/recommendations/jobs/{jobID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["推荐"],
                "summary": "查询推荐任务状态",
                "parameters": [
                    {"type": "string", "description": "任务ID", "name": "jobID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "任务不存在", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/recommendations/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["推荐"],
                "summary": "查询历史推荐",
                "parameters": [
                    {"type": "integer", "description": "返回条数，默认20，最大100", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/recommendations/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["推荐"],
                "summary": "获取单条推荐结果",
                "parameters": [
                    {"type": "integer", "description": "生成ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "推荐结果不存在", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/api/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["追问"],
                "summary": "针对推荐结果追问",
                "parameters": [
                    {"description": "追问内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "推荐结果不存在", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "502": {"description": "推理服务错误", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "成功", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 0},
                "message": {"type": "string", "example": "success"},
                "data": {}
            }
        },
        "models.FilterSet": {
            "type": "object",
            "properties": {
                "network": {"type": "array", "items": {"type": "string"}, "example": ["VISA"]},
                "rewards": {"type": "array", "items": {"type": "string"}, "example": ["dining", "travel"]},
                "fee_range": {"type": "string", "example": "0-100"},
                "additional_requirements": {"type": "string"}
            }
        },
        "models.GenerateRequest": {
            "type": "object",
            "properties": {
                "filters": {"$ref": "#/definitions/models.FilterSet"},
                "file_id": {"type": "string"}
            }
        },
        "models.ChatTurn": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["user", "assistant"]},
                "content": {"type": "string"}
            }
        },
        "models.ChatRequest": {
            "type": "object",
            "required": ["message", "result_id"],
            "properties": {
                "result_id": {"type": "integer", "example": 1},
                "history": {"type": "array", "items": {"$ref": "#/definitions/models.ChatTurn"}},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "信用卡推荐服务 API",
	Description:      "根据用户筛选条件和上传的财务文档，异步调用外部推理服务生成信用卡推荐，并支持针对结果追问",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
