package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"card_recommend/config"
	"card_recommend/logger"
	"card_recommend/models"
	"card_recommend/repository"
	"card_recommend/utils"
)

// multipartMemory 解析表单时保留在内存中的上限，超出部分写入临时文件
const multipartMemory = 8 << 20

// UploadHandler godoc
// @Summary 上传财务文档
// @Description 上传账单等文档（pdf/txt/图片），返回的 file_id 用于提交推荐任务
// @Tags 上传
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文档"
// @Success 200 {object} models.APIResponse{data=models.UploadResponse} "成功"
// @Failure 400 {object} models.APIResponse "文件不符合要求"
// @Failure 500 {object} models.APIResponse "服务器错误"
// @Router /api/uploads [post]
func UploadHandler(w http.ResponseWriter, r *http.Request, cfg *config.Config, uploads repository.UploadStore) {
	maxBytes := int64(cfg.Upload.MaxSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			utils.WriteCustomErrorResponse(w, models.CodeUploadRejected, fmt.Sprintf("file exceeds %d MB", cfg.Upload.MaxSizeMB), map[string]interface{}{})
			return
		}
		utils.WriteCustomErrorResponse(w, models.CodeInvalidParams, "invalid multipart form: "+err.Error(), map[string]interface{}{})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteErrorResponse(w, models.CodeMissingParams, map[string]interface{}{"param": "file"})
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExt(cfg.Upload.AllowExts, ext) {
		utils.WriteCustomErrorResponse(w, models.CodeUploadRejected, fmt.Sprintf("file type %q is not allowed", ext),
			map[string]interface{}{"allowed": cfg.Upload.AllowExts})
		return
	}
	if header.Size > maxBytes {
		utils.WriteCustomErrorResponse(w, models.CodeUploadRejected, fmt.Sprintf("file exceeds %d MB", cfg.Upload.MaxSizeMB), map[string]interface{}{})
		return
	}

	path, size, err := saveUpload(cfg.Upload.Dir, ext, file)
	if err != nil {
		logger.Error("保存上传文件失败", "file_name", name, "error", err)
		utils.WriteCustomErrorResponse(w, models.CodeServerError, "failed to store upload", map[string]interface{}{})
		return
	}

	registered, err := uploads.Register(name, path, size)
	if err != nil {
		_ = os.Remove(path)
		utils.HandleServiceError(w, err, models.CodeServerError)
		return
	}
	logger.Info("文件上传成功", "file_id", registered.ID, "file_name", name, "size", size)
	utils.WriteSuccessResponse(w, models.UploadResponse{FileID: registered.ID, FileName: name, Size: size})
}

func allowedExt(allowed []string, ext string) bool {
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), ext) {
			return true
		}
	}
	return false
}

// saveUpload 以随机文件名写入上传目录，保留原扩展名供提取器识别类型
func saveUpload(dir, ext string, src io.Reader) (string, int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+ext)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}

	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write upload file: %w", err)
	}
	return path, size, nil
}
