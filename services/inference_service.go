package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"card_recommend/config"
	"card_recommend/logger"
	"card_recommend/utils"
)

// InferenceErrorKind 推理调用失败分类
type InferenceErrorKind string

const (
	InferenceNetwork     InferenceErrorKind = "network"
	InferenceTimeout     InferenceErrorKind = "timeout"
	InferenceStatus      InferenceErrorKind = "status"
	InferenceDecode      InferenceErrorKind = "decode"
	InferenceEmpty       InferenceErrorKind = "empty_answer"
	InferenceUnavailable InferenceErrorKind = "unavailable"
)

// maxReplyBytes 上游回复体上限
const maxReplyBytes = 4 << 20

// InferenceError 推理调用的统一错误类型，调用方只需要看 Kind 和 Error()
type InferenceError struct {
	Kind       InferenceErrorKind
	StatusCode int
	Err        error

	// 调用方的context先结束，不算上游故障
	callerSide bool
}

func (e *InferenceError) Error() string {
	switch e.Kind {
	case InferenceTimeout:
		return fmt.Sprintf("inference service timed out: %v", e.Err)
	case InferenceNetwork:
		return fmt.Sprintf("inference service unreachable: %v", e.Err)
	case InferenceStatus:
		return fmt.Sprintf("inference service returned HTTP %d: %v", e.StatusCode, e.Err)
	case InferenceDecode:
		return fmt.Sprintf("inference reply is not valid JSON: %v", e.Err)
	case InferenceEmpty:
		return fmt.Sprintf("inference reply has no answer: %v", e.Err)
	case InferenceUnavailable:
		return fmt.Sprintf("inference service temporarily disabled after repeated failures: %v", e.Err)
	}
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// InferenceClient 外部检索/生成服务客户端。不做内部重试，失败统一分类后交给调用方
type InferenceClient struct {
	url          string
	apiKey       string
	answerFields []string
	params       map[string]any
	client       *http.Client
	breaker      *gobreaker.CircuitBreaker[string]
	maxReply     int64
}

// NewInferenceClient 创建推理客户端
func NewInferenceClient(cfg *config.Config) *InferenceClient {
	timeout := time.Duration(cfg.Inference.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	fields := cfg.Inference.AnswerFields
	if len(fields) == 0 {
		fields = []string{"answer"}
	}
	maxFailures := cfg.Inference.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := time.Duration(cfg.Inference.Breaker.OpenSec) * time.Second
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "inference",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("推理服务熔断状态变化", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &InferenceClient{
		url:          strings.TrimRight(cfg.Inference.BaseURL, "/") + cfg.Inference.Path,
		apiKey:       cfg.Inference.APIKey,
		answerFields: fields,
		params:       cfg.Inference.Params,
		client:       &http.Client{Timeout: timeout},
		breaker:      breaker,
		maxReply:     maxReplyBytes,
	}
}

// tripsBreaker 只有上游不可达、上游超时和5xx计入熔断；4xx、解码错误和调用方取消不计入
func tripsBreaker(err error) bool {
	var ie *InferenceError
	if !errors.As(err, &ie) {
		return false
	}
	switch ie.Kind {
	case InferenceNetwork, InferenceTimeout:
		return !ie.callerSide
	case InferenceStatus:
		return ie.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// Query 发送提示词，返回回答文本（未做任何解析）
func (c *InferenceClient) Query(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	answer, err := c.breaker.Execute(func() (string, error) {
		return c.do(ctx, prompt)
	})
	InferenceDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &InferenceError{Kind: InferenceUnavailable, Err: err}
		}
		outcome := "error"
		var ie *InferenceError
		if errors.As(err, &ie) {
			outcome = string(ie.Kind)
		}
		InferenceRequestsTotal.WithLabelValues(outcome).Inc()
		logger.Error("推理请求失败", "url", c.url, "outcome", outcome, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", err
	}

	InferenceRequestsTotal.WithLabelValues("success").Inc()
	logger.Info("推理请求成功", "duration_ms", time.Since(start).Milliseconds(), "answer_preview", utils.Preview(answer, 200))
	return answer, nil
}

func (c *InferenceClient) do(ctx context.Context, prompt string) (string, error) {
	payload := make(map[string]any, len(c.params)+1)
	for k, v := range c.params {
		payload[k] = v
	}
	payload["question"] = prompt

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	logger.Debug("推理请求详情", "url", c.url, "request_size", len(b), "prompt_preview", utils.Preview(prompt, 100))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReply+1))
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	if int64(len(body)) > c.maxReply {
		return "", &InferenceError{
			Kind: InferenceDecode,
			Err:  fmt.Errorf("reply exceeds %d bytes", c.maxReply),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &InferenceError{
			Kind:       InferenceStatus,
			StatusCode: resp.StatusCode,
			Err:        errors.New(utils.Preview(strings.TrimSpace(string(body)), 500)),
		}
	}

	return extractAnswer(body, c.answerFields)
}

func classifyTransportError(ctx context.Context, err error) error {
	callerSide := ctx.Err() != nil
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &InferenceError{Kind: InferenceTimeout, Err: err, callerSide: callerSide}
	}
	return &InferenceError{Kind: InferenceNetwork, Err: err, callerSide: callerSide}
}

// extractAnswer 按字段名顺序查找回答文本。第一个字段为标准字段，其余是上游历史版本的兼容别名；
// 顶层找不到时再到 data 信封里查找
func extractAnswer(body []byte, fields []string) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", &InferenceError{Kind: InferenceDecode, Err: err}
	}
	if answer, ok := lookupAnswer(top, fields); ok {
		return answer, nil
	}
	if raw, ok := top["data"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil {
			if answer, ok := lookupAnswer(nested, fields); ok {
				return answer, nil
			}
		}
	}
	return "", &InferenceError{
		Kind: InferenceEmpty,
		Err:  fmt.Errorf("none of the fields %s present", strings.Join(fields, ", ")),
	}
}

func lookupAnswer(m map[string]json.RawMessage, fields []string) (string, bool) {
	for _, f := range fields {
		raw, ok := m[f]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if strings.TrimSpace(s) != "" {
				return s, true
			}
			continue
		}
		// 部分版本直接返回结构化对象，原样交给解析器
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return string(trimmed), true
		}
	}
	return "", false
}
