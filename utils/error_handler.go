package utils

import (
	"database/sql"
	"errors"

	"card_recommend/models"
	"card_recommend/repository"
)

// IsSQLNoRowsError 检查错误是否为SQL无结果错误
func IsSQLNoRowsError(err error) bool {
	return err != nil && errors.Is(err, sql.ErrNoRows)
}

// repositoryErrorCodes 存储层哨兵错误到响应码的映射
var repositoryErrorCodes = []struct {
	err  error
	code int
}{
	{repository.ErrJobNotFound, models.CodeJobNotFound},
	{repository.ErrResultNotFound, models.CodeResultNotFound},
	{repository.ErrFileNotFound, models.CodeFileNotFound},
}

// ErrorCode 把错误映射为响应码，无法识别的错误返回 fallback
func ErrorCode(err error, fallback int) int {
	if err == nil {
		return models.CodeSuccess
	}
	for _, m := range repositoryErrorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	if IsSQLNoRowsError(err) {
		return models.CodeResultNotFound
	}
	return fallback
}
