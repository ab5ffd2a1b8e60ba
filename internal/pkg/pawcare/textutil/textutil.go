// Package textutil 提供文档切分和内容寻址相关的文本工具函数。
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 按优先级排列的切分边界：段落、行、句子、单词。
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// IsBlank 判断字符串是否为空或仅包含空白字符。
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SplitIntoChunks 将文本分割成重叠的块。
// chunkSize 和 overlap 以 Unicode 字符计。窗口内优先在段落、行、句子、
// 单词边界处截断，找不到边界时硬切。空白文本返回 nil。
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 || IsBlank(text) {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	var chunks []string

	for start := 0; start < len(runes); {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = start + cutPoint(runes[start:end], overlap)
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		start = overlapStart(runes, start, end, overlap)
	}

	return chunks
}

// cutPoint 返回窗口内的截断位置（不含）。
// 截断点必须超过 overlap，保证下一个窗口向前推进。
func cutPoint(window []rune, overlap int) int {
	s := string(window)
	for _, sep := range DefaultSeparators {
		idx := strings.LastIndex(s, sep)
		if idx < 0 {
			continue
		}
		pos := utf8.RuneCountInString(s[:idx]) + utf8.RuneCountInString(sep)
		if pos > overlap && pos <= len(window) {
			return pos
		}
	}
	return len(window)
}

// overlapStart 返回下一个窗口的起点。重叠区域内存在边界时从边界之后开始，
// 避免下一块以半个单词开头。
func overlapStart(runes []rune, start, end, overlap int) int {
	from := end - overlap
	if from <= start {
		from = start + 1
	}
	seg := string(runes[from:end])
	for _, sep := range DefaultSeparators {
		if idx := strings.Index(seg, sep); idx >= 0 {
			return from + utf8.RuneCountInString(seg[:idx]) + utf8.RuneCountInString(sep)
		}
	}
	return from
}

// ContentID 计算块的内容寻址 ID：sha256(source NUL ordinal NUL text) 的十六进制。
// 同一目录重复索引得到相同 ID，upsert 覆盖而不是重复写入。
func ContentID(source string, ordinal int, text string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(ordinal)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
