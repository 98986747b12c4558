package utils

import (
	"strings"
	"unicode/utf8"
)

// DeduplicateSlice 去重字符串切片，同时去掉首尾空白和空字符串，保持首次出现的顺序
func DeduplicateSlice(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	for _, val := range input {
		val = strings.TrimSpace(val)
		if val != "" && !seen[val] {
			result = append(result, val)
			seen[val] = true
		}
	}

	return result
}

// Preview 截取前 n 个字符用于日志输出，超出部分以 "..." 代替
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// TruncateRunes 按字符数截断文本，返回截断后的文本和是否发生了截断
func TruncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}

// Clamp 把 v 限制在 [lo, hi] 范围内
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
