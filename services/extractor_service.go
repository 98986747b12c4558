package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"card_recommend/config"
	"card_recommend/logger"
	"card_recommend/models"
	"card_recommend/utils"
)

var (
	plainTextExts = map[string]bool{".txt": true, ".md": true, ".csv": true}
	imageExts     = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true}
)

// errNoTextLayer 图片类文档没有可直接读取的文本
var errNoTextLayer = errors.New("document has no text layer")

// OCREngine 对文档首页做光学识别
type OCREngine interface {
	RecognizeFirstPage(ctx context.Context, path string) (string, error)
}

// DocumentExtractor 文档文本提取：先做结构化提取，失败或为空时按配置决定是否回退到首页OCR
type DocumentExtractor struct {
	maxPages    int
	maxChars    int
	ocrFallback bool
	ocr         OCREngine
}

// NewDocumentExtractor 创建文档提取器，ocr 为 nil 时不做回退
func NewDocumentExtractor(cfg *config.Config, ocr OCREngine) *DocumentExtractor {
	maxPages := cfg.Extraction.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	maxChars := cfg.Extraction.MaxChars
	if maxChars <= 0 {
		maxChars = 20000
	}
	return &DocumentExtractor{
		maxPages:    maxPages,
		maxChars:    maxChars,
		ocrFallback: cfg.Extraction.OCRFallback,
		ocr:         ocr,
	}
}

// Extract 提取文档文本。失败以 Failed 标记返回，不会返回 error 或向外抛出 panic
func (e *DocumentExtractor) Extract(ctx context.Context, path string) (doc models.ExtractedDocument) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("文档提取发生panic", "path", path, "panic", r)
			doc = extractionFailure(fmt.Sprintf("extraction aborted: %v", r))
		}
		outcome := "success"
		if doc.Failed {
			outcome = "failed"
		}
		method := doc.Method
		if method == "" {
			method = "none"
		}
		ExtractionsTotal.WithLabelValues(method, outcome).Inc()
	}()

	if _, err := os.Stat(path); err != nil {
		return extractionFailure(fmt.Sprintf("document not readable: %v", err))
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		text      string
		pages     int
		truncated bool
		err       error
	)
	switch {
	case ext == ".pdf":
		text, pages, truncated, err = readPDFText(path, e.maxPages)
	case plainTextExts[ext]:
		text, err = readPlainText(path)
		pages = 1
	case imageExts[ext]:
		err = errNoTextLayer
	default:
		return extractionFailure(fmt.Sprintf("unsupported document type %q", ext))
	}

	if err == nil && strings.TrimSpace(text) != "" {
		return e.success(text, models.ExtractMethodText, pages, truncated)
	}

	reason := "structural extraction produced no text"
	if err != nil {
		reason = fmt.Sprintf("structural extraction failed: %v", err)
	}
	logger.Info("结构化提取未得到文本", "path", path, "reason", reason, "ocr_fallback", e.ocrFallback)

	if !e.ocrFallback || e.ocr == nil {
		return extractionFailure(reason)
	}

	ocrText, err := e.ocr.RecognizeFirstPage(ctx, path)
	if err != nil {
		return extractionFailure(fmt.Sprintf("%s; ocr failed: %v", reason, err))
	}
	if strings.TrimSpace(ocrText) == "" {
		return extractionFailure(reason + "; ocr produced no text")
	}
	return e.success(ocrText, models.ExtractMethodOCR, 1, truncated)
}

func (e *DocumentExtractor) success(text, method string, pages int, truncated bool) models.ExtractedDocument {
	text, cut := utils.TruncateRunes(strings.TrimSpace(text), e.maxChars)
	truncated = truncated || cut
	return models.ExtractedDocument{
		Text:      text,
		Method:    method,
		Pages:     pages,
		Truncated: truncated,
	}
}

func extractionFailure(reason string) models.ExtractedDocument {
	return models.ExtractedDocument{Failed: true, Reason: reason}
}

func readPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("file is not valid UTF-8 text")
	}
	return string(data), nil
}

// readPDFText 逐页读取文本层，超过 maxPages 的部分截断。损坏或加密的文档可能让pdf库panic，这里统一转为error
func readPDFText(path string, maxPages int) (text string, pages int, truncated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, false, err
	}
	defer f.Close()

	total := r.NumPage()
	pages = min(total, maxPages)
	truncated = total > maxPages

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", pages, truncated, fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), pages, truncated, nil
}

// TesseractOCR 调用本机 pdftoppm + tesseract 命令行识别首页
type TesseractOCR struct {
	tesseractPath string
	pdftoppmPath  string
	language      string
}

// NewTesseractOCR 创建命令行OCR引擎
func NewTesseractOCR(cfg *config.Config) *TesseractOCR {
	return &TesseractOCR{
		tesseractPath: cfg.Extraction.TesseractPath,
		pdftoppmPath:  cfg.Extraction.PdftoppmPath,
		language:      cfg.Extraction.OCRLanguage,
	}
}

func (o *TesseractOCR) RecognizeFirstPage(ctx context.Context, path string) (string, error) {
	image := path
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		dir, err := os.MkdirTemp("", "card-ocr-*")
		if err != nil {
			return "", fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(dir)

		prefix := filepath.Join(dir, "page")
		cmd := exec.CommandContext(ctx, o.pdftoppmPath, "-f", "1", "-l", "1", "-r", "300", "-png", "-singlefile", path, prefix)
		if out, err := cmd.CombinedOutput(); err != nil {
			return "", fmt.Errorf("rendering first page: %w: %s", err, strings.TrimSpace(string(out)))
		}
		image = prefix + ".png"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.tesseractPath, image, "stdout", "-l", o.language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
