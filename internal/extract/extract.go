// Package extract turns local files and web pages into documents ready for ingestion.
// Extraction never fails loudly: any error yields a document with empty content and a
// logged warning, which ingestion treats as a no-op.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"ragqa/internal/domain"
)

// Document types assigned by each extractor.
const (
	TypeText = "text"
	TypePDF  = "PDF"
	TypeWeb  = "web"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; ragqa/1.0)"

	// maxPageBytes caps how much of a response body is read.
	maxPageBytes = 10 << 20
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

type Config struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
	// Runner overrides how pdftotext is invoked.
	Runner CommandRunner
}

type Extractor struct {
	client    *http.Client
	userAgent string
	runner    CommandRunner
	logger    *zap.Logger
}

func New(cfg Config) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Runner == nil {
		cfg.Runner = execRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Extractor{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		runner:    cfg.Runner,
		logger:    cfg.Logger,
	}
}

// Extract dispatches on the target: http(s) URLs are fetched, anything else is read as a file.
func (e *Extractor) Extract(ctx context.Context, target string) domain.Document {
	if IsURL(target) {
		return e.URL(ctx, target)
	}
	return e.File(ctx, target)
}

// IsURL reports whether target looks like an http or https URL.
func IsURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// File reads a local file. PDFs go through pdftotext; everything else is read as UTF-8 text.
// The document source is the file's base name.
func (e *Extractor) File(ctx context.Context, path string) domain.Document {
	doc := domain.Document{Source: filepath.Base(path), Type: TypeText}
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		doc.Type = TypePDF
		text, err = e.pdfText(ctx, path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		e.logger.Warn("file extraction failed", zap.String("path", path), zap.Error(err))
		return doc
	}
	doc.Content = text
	return doc
}

func (e *Extractor) pdfText(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// URL fetches a web page and extracts its main article text. The document source is the URL.
func (e *Extractor) URL(ctx context.Context, rawURL string) domain.Document {
	doc := domain.Document{Source: rawURL, Type: TypeWeb}
	text, err := e.fetchArticle(ctx, rawURL)
	if err != nil {
		e.logger.Warn("url extraction failed", zap.String("url", rawURL), zap.Error(err))
		return doc
	}
	doc.Content = text
	return doc
}

func (e *Extractor) fetchArticle(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return CollapseWhitespace(article.TextContent), nil
}

// CollapseWhitespace trims every line, splits lines on runs of two spaces and
// joins the non-empty phrases with newlines.
func CollapseWhitespace(text string) string {
	var phrases []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if p := strings.TrimSpace(phrase); p != "" {
				phrases = append(phrases, p)
			}
		}
	}
	return strings.Join(phrases, "\n")
}
