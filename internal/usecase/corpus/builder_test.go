package corpus

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/docextract/internal/domain"
	"github.com/kailas-cloud/docextract/internal/domain/index"
)

// --- Mocks ---

type mockRecognizer struct {
	mu    sync.Mutex
	texts map[string]string // keyed by base name
	fail  map[string]bool
}

func (m *mockRecognizer) Recognize(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := filepath.Base(path)
	if m.fail[base] {
		return "", errors.New("tesseract: exit status 1")
	}
	return m.texts[base], nil
}

// mockEmbedder maps text to a vector by keyword; it has no batch endpoint.
type mockEmbedder struct {
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	switch {
	case strings.Contains(text, "INVOICE"):
		return domain.EmbeddingResult{Embedding: []float32{2, 0}}, nil
	case strings.Contains(text, "MEMO"):
		return domain.EmbeddingResult{Embedding: []float32{0, 3}}, nil
	default:
		return domain.EmbeddingResult{Embedding: []float32{1, 1}}, nil
	}
}

type mockBatchEmbedder struct {
	mockEmbedder
	batches []int
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batches = append(m.batches, len(texts))
	return domain.BatchFallback(ctx, &m.mockEmbedder, texts)
}

type mockStore struct {
	model string
	docs  []index.Document
	err   error
}

func (m *mockStore) Replace(_ context.Context, model string, docs []index.Document) error {
	if m.err != nil {
		return m.err
	}
	m.model = model
	m.docs = docs
	return nil
}

type mockProgress struct {
	mu      sync.Mutex
	total   int
	ticks   int
	stopped bool
}

func (p *mockProgress) Start(total int) { p.total = total }
func (p *mockProgress) Increment()      { p.mu.Lock(); p.ticks++; p.mu.Unlock() }
func (p *mockProgress) Finish()         { p.stopped = true }

func writeCorpus(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// --- Tests ---

func TestDiscover(t *testing.T) {
	root := writeCorpus(t,
		"invoice/a.png",
		"invoice/B.JPG",
		"invoice/notes.txt",
		"invoice/2024/c.pdf",
		"memo/m.jpeg",
		".cache/x.png",
		"loose.png",
	)

	got, err := Discover(root, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var refs []string
	for _, s := range got {
		refs = append(refs, s.Label+":"+s.Rel)
	}
	want := []string{
		"invoice:invoice/2024/c.pdf",
		"invoice:invoice/B.JPG",
		"invoice:invoice/a.png",
		"memo:memo/m.jpeg",
	}
	if strings.Join(refs, ",") != strings.Join(want, ",") {
		t.Errorf("Discover = %v\nwant %v", refs, want)
	}
}

func TestDiscover_IncludeExclude(t *testing.T) {
	root := writeCorpus(t, "invoice/a.png", "invoice/drafts/b.png", "memo/c.pdf")

	got, err := Discover(root, []string{"**/*.png"}, []string{"drafts/**"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Rel != "invoice/a.png" {
		t.Errorf("Discover = %+v", got)
	}

	if _, err := Discover(root, []string{"[invalid"}, nil); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestBuild(t *testing.T) {
	root := writeCorpus(t, "invoice/a.png", "invoice/b.png", "memo/c.png", "memo/blank.png", "memo/broken.png")
	rec := &mockRecognizer{
		texts: map[string]string{
			"a.png":     "INVOICE #1",
			"b.png":     "INVOICE #2",
			"c.png":     "MEMO to staff",
			"blank.png": "   ",
		},
		fail: map[string]bool{"broken.png": true},
	}
	store := &mockStore{}
	progress := &mockProgress{}

	b := NewBuilder(rec, &mockEmbedder{}, store, progress, nil)
	report, err := b.Build(context.Background(), Options{Root: root, Model: "all-minilm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Discovered != 5 || report.Indexed != 3 || report.Empty != 1 || report.Failed != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.PerLabel["invoice"] != 2 || report.PerLabel["memo"] != 1 {
		t.Errorf("PerLabel = %v", report.PerLabel)
	}
	if report.Dim != 2 {
		t.Errorf("Dim = %d", report.Dim)
	}
	if store.model != "all-minilm" || len(store.docs) != 3 {
		t.Fatalf("store got model=%q docs=%d", store.model, len(store.docs))
	}
	for _, d := range store.docs {
		if math.Abs(index.Norm(d.Vector)-1) > 1e-6 {
			t.Errorf("%s not normalized: %v", d.SourceRef, d.Vector)
		}
	}
	if store.docs[0].SourceRef != "invoice/a.png" || store.docs[0].Text != "INVOICE #1" {
		t.Errorf("first doc = %+v", store.docs[0])
	}
	if progress.total != 5 || progress.ticks != 5 || !progress.stopped {
		t.Errorf("progress = %+v", progress)
	}
}

func TestBuild_UsesBatchEndpoint(t *testing.T) {
	root := writeCorpus(t, "invoice/1.png", "invoice/2.png", "invoice/3.png")
	rec := &mockRecognizer{texts: map[string]string{"1.png": "INVOICE", "2.png": "INVOICE", "3.png": "INVOICE"}}
	emb := &mockBatchEmbedder{}

	_, err := NewBuilder(rec, emb, &mockStore{}, nil, nil).Build(context.Background(), Options{Root: root, BatchSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.batches) != 2 || emb.batches[0] != 2 || emb.batches[1] != 1 {
		t.Errorf("batches = %v, want [2 1]", emb.batches)
	}
}

func TestBuild_NothingLegible(t *testing.T) {
	root := writeCorpus(t, "memo/blank.png")
	rec := &mockRecognizer{texts: map[string]string{}}
	store := &mockStore{}

	_, err := NewBuilder(rec, &mockEmbedder{}, store, nil, nil).Build(context.Background(), Options{Root: root})
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
	if store.docs != nil {
		t.Error("store must not be replaced with an empty corpus")
	}
}

func TestBuild_StoreError(t *testing.T) {
	root := writeCorpus(t, "invoice/a.png")
	rec := &mockRecognizer{texts: map[string]string{"a.png": "INVOICE"}}
	storeErr := errors.New("disk full")

	_, err := NewBuilder(rec, &mockEmbedder{}, &mockStore{err: storeErr}, nil, nil).
		Build(context.Background(), Options{Root: root})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestBuild_MissingRoot(t *testing.T) {
	_, err := NewBuilder(&mockRecognizer{}, &mockEmbedder{}, &mockStore{}, nil, nil).
		Build(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}
