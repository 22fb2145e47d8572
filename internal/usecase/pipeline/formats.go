package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/docextract/internal/domain"
)

// DefaultExtensions is the upload allow-list when none is configured.
var DefaultExtensions = []string{"pdf", "png", "jpg", "jpeg"}

// AllowList checks file extensions case-insensitively.
type AllowList struct {
	exts map[string]struct{}
}

// NewAllowList builds an allow-list. Entries may carry a leading dot.
func NewAllowList(exts []string) AllowList {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return AllowList{exts: m}
}

// Check returns ErrUnsupportedFormat when filename's extension is not allowed.
func (a AllowList) Check(filename string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := a.exts[ext]; !ok || ext == "" {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filename)
	}
	return nil
}
