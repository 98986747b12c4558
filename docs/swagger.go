package docs

// @title 信用卡推荐服务 API
// @version 1.0
// @description 根据用户筛选条件和上传的财务文档，异步调用外部推理服务生成信用卡推荐，并支持针对结果追问
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @schemes http https
