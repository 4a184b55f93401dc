// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package locate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-assembler/internal/pdftest"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// fakeSource serves canned page text. errPage and panicPage (zero-based)
// make PageText fail; -1 disables them.
type fakeSource struct {
	pages     []string
	errPage   int
	panicPage int
	visited   []int
	closed    bool
}

func (f *fakeSource) PageCount() (int, error) { return len(f.pages), nil }

func (f *fakeSource) PageText(index int) (string, error) {
	f.visited = append(f.visited, index)
	if index == f.errPage {
		return "", errors.New("malformed content stream")
	}
	if index == f.panicPage {
		panic("index out of range")
	}
	return f.pages[index], nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func newFake(pages ...string) *fakeSource {
	return &fakeSource{pages: pages, errPage: -1, panicPage: -1}
}

func fakeLocator(src *fakeSource) *Locator {
	return newLocator(func(string) (PageSource, error) { return src, nil }, types.LocatorConfig{}, nil)
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name   string
		pages  []string
		labels []types.Label
		want   types.KeywordPageMap
	}{
		{
			name: "last occurrence wins",
			pages: []string{
				"Contents\nX ..... 5",
				"intro",
				"X appears here first",
				"body",
				"more body",
				"X",
				"end",
			},
			labels: []types.Label{"X"},
			want:   types.KeywordPageMap{"X": 5},
		},
		{
			name:   "absent label omitted",
			pages:  []string{"alpha", "beta"},
			labels: []types.Label{"alpha", "gamma"},
			want:   types.KeywordPageMap{"alpha": 0},
		},
		{
			name:   "matching is case-sensitive",
			pages:  []string{"Coordination curves", "COORDINATION CURVES"},
			labels: []types.Label{"Coordination Curves"},
			want:   types.KeywordPageMap{},
		},
		{
			name:   "substring inside longer text",
			pages:  []string{"", "3 – Short Circuit Results and discussion"},
			labels: []types.Label{"– Short Circuit Results"},
			want:   types.KeywordPageMap{"– Short Circuit Results": 1},
		},
		{
			name:   "empty pages contribute nothing",
			pages:  []string{"A", "", "   ", ""},
			labels: []types.Label{"A"},
			want:   types.KeywordPageMap{"A": 0},
		},
		{
			name:   "two labels on one page",
			pages:  []string{"toc: H1 H2", "H1 and H2", "tail"},
			labels: []types.Label{"H2", "H1"},
			want:   types.KeywordPageMap{"H1": 1, "H2": 1},
		},
		{
			name:   "no labels",
			pages:  []string{"A"},
			labels: nil,
			want:   types.KeywordPageMap{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFake(tt.pages...)
			got, err := fakeLocator(src).Locate(context.Background(), "main.pdf", tt.labels)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate_ScansBackToFrontAndStopsEarly(t *testing.T) {
	src := newFake("H", "body", "H", "tail")
	got, err := fakeLocator(src).Locate(context.Background(), "main.pdf", []types.Label{"H"})
	require.NoError(t, err)

	assert.Equal(t, types.KeywordPageMap{"H": 2}, got)
	assert.Equal(t, []int{3, 2}, src.visited)
	assert.True(t, src.closed)
}

func TestLocate_Idempotent(t *testing.T) {
	pages := []string{"A B", "B", "C", "A"}
	labels := []types.Label{"A", "B", "C", "D"}

	first, err := fakeLocator(newFake(pages...)).Locate(context.Background(), "main.pdf", labels)
	require.NoError(t, err)
	second, err := fakeLocator(newFake(pages...)).Locate(context.Background(), "main.pdf", labels)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, types.KeywordPageMap{"A": 3, "B": 1, "C": 2}, first)
}

func TestLocate_Failures(t *testing.T) {
	t.Run("extraction error", func(t *testing.T) {
		src := newFake("A", "B", "C")
		src.errPage = 1
		_, err := fakeLocator(src).Locate(context.Background(), "main.pdf", []types.Label{"A"})
		require.ErrorIs(t, err, ErrLocationFailed)
		assert.Contains(t, err.Error(), "page 2")
		assert.True(t, src.closed)
	})

	t.Run("backend panic", func(t *testing.T) {
		src := newFake("A", "B", "C")
		src.panicPage = 2
		_, err := fakeLocator(src).Locate(context.Background(), "main.pdf", []types.Label{"A"})
		require.ErrorIs(t, err, ErrLocationFailed)
		assert.Contains(t, err.Error(), "panicked")
	})

	t.Run("open error", func(t *testing.T) {
		l := newLocator(func(string) (PageSource, error) {
			return nil, errors.New("not a PDF")
		}, types.LocatorConfig{}, nil)
		_, err := l.Locate(context.Background(), "main.pdf", []types.Label{"A"})
		require.ErrorIs(t, err, ErrLocationFailed)
	})
}

func TestLocate_Cancelled(t *testing.T) {
	opened := false
	l := newLocator(func(string) (PageSource, error) {
		opened = true
		return newFake("A"), nil
	}, types.LocatorConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Locate(ctx, "main.pdf", []types.Label{"A"})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, opened, "PDF opened after cancellation")
}

func TestNew(t *testing.T) {
	for _, b := range []types.TextBackend{"", types.TextTabula, types.TextLedongthuc, types.TextFitz} {
		_, err := New(types.LocatorConfig{Backend: b}, nil)
		assert.NoError(t, err, "backend %q", b)
	}

	_, err := New(types.LocatorConfig{Backend: "pdfminer"}, nil)
	assert.Error(t, err)
}

func TestLocate_RealPDF(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "report.pdf",
		"Table of Contents\nCoordination Curves 3",
		"Introduction",
		"",
		"Coordination Curves\nSee attached",
		"Closing remarks",
	)
	labels := []types.Label{"Coordination Curves", "Utility Fault Data"}

	for _, b := range []types.TextBackend{types.TextTabula, types.TextLedongthuc} {
		t.Run(string(b), func(t *testing.T) {
			l, err := New(types.LocatorConfig{Backend: b}, nil)
			require.NoError(t, err)

			got, err := l.Locate(context.Background(), path, labels)
			require.NoError(t, err)
			assert.Equal(t, types.KeywordPageMap{"Coordination Curves": 3}, got)
		})
	}
}
