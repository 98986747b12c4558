package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"card_recommend/models"
)

// 解析失败原因
const (
	ReasonNoStructuredData = "no structured data found in model answer"
	ReasonMalformed        = "malformed structured data in model answer"
	ReasonMissingFields    = "structured data is missing the summary and recommendations fields"
	ReasonNoItems          = "structured data contains no usable recommendations"
)

// ParseError 模型输出无法解析。所有失败路径都返回这个类型，解析器本身不会panic
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParsedRecommendation 解析得到的推荐数据，Format 标记识别到的输出格式
type ParsedRecommendation struct {
	Format  string
	Summary string
	Items   []models.RecommendedItem
}

type candidateOutcome int

const (
	outcomeOK candidateOutcome = iota
	outcomeWrongShape
	outcomeNoItems
)

// ParseRecommendationAnswer 从模型回答中找出第一个可用的JSON值。
// 从每个 '{' 或 '[' 位置尝试解码恰好一个完整的JSON值，无法解码则前进一个字符；
// 解码成功但结构不符时跳过整个值，避免误用其内部的嵌套对象
func ParseRecommendationAnswer(answer string) (parsed *ParsedRecommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
			err = &ParseError{Reason: ReasonMalformed, Err: fmt.Errorf("parser fault: %v", r)}
		}
	}()

	var (
		sawCandidate bool
		lastDecode   error
		best         candidateOutcome = -1
	)

	for i := 0; i < len(answer); {
		j := strings.IndexAny(answer[i:], "{[")
		if j < 0 {
			break
		}
		start := i + j
		sawCandidate = true

		dec := json.NewDecoder(strings.NewReader(answer[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			lastDecode = err
			i = start + 1
			continue
		}

		p, outcome := classifyCandidate(raw)
		if outcome == outcomeOK {
			return p, nil
		}
		if outcome > best {
			best = outcome
		}
		i = start + int(dec.InputOffset())
	}

	switch {
	case best == outcomeNoItems:
		return nil, &ParseError{Reason: ReasonNoItems}
	case best == outcomeWrongShape:
		return nil, &ParseError{Reason: ReasonMissingFields}
	case sawCandidate:
		return nil, &ParseError{Reason: ReasonMalformed, Err: lastDecode}
	}
	return nil, &ParseError{Reason: ReasonNoStructuredData}
}

func classifyCandidate(raw json.RawMessage) (*ParsedRecommendation, candidateOutcome) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, outcomeWrongShape
	}

	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, outcomeWrongShape
		}
		summaryRaw, hasSummary := obj["summary"]
		itemsRaw, hasItems := obj["recommendations"]
		if !hasSummary && !hasItems {
			return nil, outcomeWrongShape
		}

		var summary looseString
		if hasSummary {
			if err := json.Unmarshal(summaryRaw, &summary); err != nil {
				return nil, outcomeWrongShape
			}
		}
		var items []models.RecommendedItem
		if hasItems {
			var err error
			if items, err = decodeItems(itemsRaw); err != nil {
				return nil, outcomeWrongShape
			}
		}
		if len(items) == 0 {
			return nil, outcomeNoItems
		}
		return &ParsedRecommendation{Format: models.FormatPrimary, Summary: string(summary), Items: items}, outcomeOK

	case '[':
		items, err := decodeItems(raw)
		if err != nil {
			return nil, outcomeWrongShape
		}
		if len(items) == 0 {
			return nil, outcomeNoItems
		}
		return &ParsedRecommendation{Format: models.FormatLegacy, Items: items}, outcomeOK
	}
	return nil, outcomeWrongShape
}

// rawItem 宽松的卡片结构：模型有时把年费写成数字、把权益写成单个字符串
type rawItem struct {
	Name        looseString `json:"name"`
	Issuer      looseString `json:"issuer"`
	ImageURL    looseString `json:"image_url"`
	AnnualFee   looseString `json:"annual_fee"`
	Network     looseString `json:"network"`
	Offer       looseString `json:"offer"`
	RewardsRate looseString `json:"rewards_rate"`
	Reason      looseString `json:"reason"`
	Benefits    looseList   `json:"benefits"`
	ApplyURL    looseString `json:"apply_url"`
}

// decodeItems 解码卡片数组，去掉没有名称的条目，保持原有顺序
func decodeItems(raw json.RawMessage) ([]models.RecommendedItem, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var raws []rawItem
	if err := json.Unmarshal(raw, &raws); err != nil {
		return nil, err
	}

	items := make([]models.RecommendedItem, 0, len(raws))
	for _, r := range raws {
		if r.Name == "" {
			continue
		}
		benefits := []string(r.Benefits)
		if benefits == nil {
			benefits = []string{}
		}
		items = append(items, models.RecommendedItem{
			Name:        string(r.Name),
			Issuer:      string(r.Issuer),
			ImageURL:    string(r.ImageURL),
			AnnualFee:   string(r.AnnualFee),
			Network:     string(r.Network),
			Offer:       string(r.Offer),
			RewardsRate: string(r.RewardsRate),
			Reason:      string(r.Reason),
			Benefits:    benefits,
			ApplyURL:    string(r.ApplyURL),
		})
	}
	return items, nil
}

// looseString 接受字符串、数字、布尔和null
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
	case b[0] == '{' || b[0] == '[':
		return errors.New("expected a scalar value")
	default:
		*s = looseString(b)
	}
	return nil
}

// looseList 接受字符串数组或单个字符串
type looseList []string

func (l *looseList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case b[0] == '[':
		var parts []looseString
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				out = append(out, string(p))
			}
		}
		*l = out
		return nil
	}

	var single looseString
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	if single != "" {
		*l = []string{string(single)}
	}
	return nil
}
