// Package tesseract recognizes text in images and PDFs with the tesseract and
// pdftoppm command-line tools.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
)

// Defaults for zero Config fields.
const (
	DefaultTesseract = "tesseract"
	DefaultPdftoppm  = "pdftoppm"
	DefaultLanguages = "eng+spa"
	DefaultDPI       = 300
	DefaultMaxPages  = 20
)

var errNoPages = errors.New("pdftoppm produced no images")

// Config holds binary paths and recognition settings.
type Config struct {
	Tesseract   string
	Pdftoppm    string
	Languages   string
	TessdataDir string
	DPI         int
	MaxPages    int
}

// Recognizer extracts text from a file on disk.
type Recognizer struct {
	cfg       Config
	runner    Runner
	pageCount func(path string) (int, error)
	logger    *zap.Logger
}

// New creates a recognizer. A nil runner uses os/exec.
func New(cfg Config, runner Runner, logger *zap.Logger) *Recognizer {
	if cfg.Tesseract == "" {
		cfg.Tesseract = DefaultTesseract
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = DefaultPdftoppm
	}
	if cfg.Languages == "" {
		cfg.Languages = DefaultLanguages
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Recognizer{
		cfg:       cfg,
		runner:    runner,
		pageCount: api.PageCountFile,
		logger:    logger,
	}
}

// Recognize returns the text of an image, or of every PDF page joined with "\n".
// Empty text is not an error; callers decide what no text means.
func (r *Recognizer) Recognize(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return r.recognizePDF(ctx, path)
	}
	return r.recognizeImage(ctx, path)
}

func (r *Recognizer) recognizeImage(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", r.cfg.Languages}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.cfg.TessdataDir)
	}
	out, errb, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

func (r *Recognizer) recognizePDF(ctx context.Context, path string) (string, error) {
	pages, err := r.pageCount(path)
	if err != nil {
		return "", fmt.Errorf("count pdf pages: %w", err)
	}
	if pages == 0 {
		return "", nil
	}
	last := pages
	if last > r.cfg.MaxPages {
		r.logger.Warn("PDF truncated to max pages",
			zap.String("file", filepath.Base(path)),
			zap.Int("pages", pages),
			zap.Int("max_pages", r.cfg.MaxPages),
		)
		last = r.cfg.MaxPages
	}

	tmpDir, err := os.MkdirTemp("", "docextract-pages-*")
	if err != nil {
		return "", fmt.Errorf("create page dir: %w", err)
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			r.logger.Warn("Failed to remove page dir", zap.String("dir", tmpDir), zap.Error(rerr))
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l <last> <in.pdf> <prefix>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-r", strconv.Itoa(r.cfg.DPI), "-png", "-f", "1", "-l", strconv.Itoa(last), path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("list rendered pages: %w", err)
	}
	if len(images) == 0 {
		return "", errNoPages
	}
	sortPages(images)

	texts := make([]string, 0, len(images))
	for _, img := range images {
		txt, err := r.recognizeImage(ctx, img)
		if err != nil {
			return "", err
		}
		texts = append(texts, txt)
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

// sortPages orders pdftoppm output by page number; its zero padding depends on the page count.
func sortPages(images []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.SliceStable(images, func(i, j int) bool { return num(images[i]) < num(images[j]) })
}
