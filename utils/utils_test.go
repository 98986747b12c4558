package utils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_recommend/models"
	"card_recommend/repository"
)

func TestDeduplicateSlice(t *testing.T) {
	assert.Equal(t, []string{"VISA", "Amex"}, DeduplicateSlice([]string{" VISA", "", "Amex", "VISA ", "  "}))
	assert.NotNil(t, DeduplicateSlice(nil))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("abc", 5))
	assert.Equal(t, "ab...", Preview("abcdef", 2))
	assert.Equal(t, "信用...", Preview("信用卡推荐", 2))
	assert.Equal(t, "", Preview("abc", 0))
}

func TestTruncateRunes(t *testing.T) {
	s, cut := TruncateRunes("信用卡推荐", 3)
	assert.True(t, cut)
	assert.Equal(t, "信用卡", s)

	s, cut = TruncateRunes("abc", 3)
	assert.False(t, cut)
	assert.Equal(t, "abc", s)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(-3, 1, 10))
	assert.Equal(t, 10, Clamp(99, 1, 10))
	assert.Equal(t, 5, Clamp(5, 1, 10))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, models.CodeJobNotFound, ErrorCode(fmt.Errorf("get: %w", repository.ErrJobNotFound), models.CodeServerError))
	assert.Equal(t, models.CodeFileNotFound, ErrorCode(repository.ErrFileNotFound, models.CodeServerError))
	assert.Equal(t, models.CodeResultNotFound, ErrorCode(repository.ErrResultNotFound, models.CodeServerError))
	assert.Equal(t, models.CodeDatabaseError, ErrorCode(fmt.Errorf("boom"), models.CodeDatabaseError))
}

func TestHandleServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleServiceError(rec, repository.ErrJobNotFound, models.CodeServerError)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code": 1003`)

	rec = httptest.NewRecorder()
	HandleServiceError(rec, fmt.Errorf("disk on fire"), models.CodeServerError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk on fire")
}

func TestDecodeJSONBody(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "x"}`))
	require.NoError(t, DecodeJSONBody(r, &v))
	assert.Equal(t, "x", v.Name)

	for _, body := range []string{``, `{"name": 1}`, `{"other": "x"}`, `{"name": "a"} {"name": "b"}`} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		assert.Error(t, DecodeJSONBody(r, &v), body)
	}
}
