package repository

import "errors"

var (
	// ErrJobNotFound 任务不存在（或已被清理）
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinished 任务已处于终态，不能再次写入
	ErrJobFinished = errors.New("job already finished")
	// ErrResultNotFound 历史中没有该推荐结果
	ErrResultNotFound = errors.New("recommendation result not found")
	// ErrDuplicateResult 相同ID的结果已存在
	ErrDuplicateResult = errors.New("recommendation result already exists")
	// ErrFileNotFound 上传引用不存在或文件已丢失
	ErrFileNotFound = errors.New("uploaded file not found")
)
