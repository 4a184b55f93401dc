// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-assembler/internal/pdfio"
	"github.com/pdiddy/report-assembler/internal/pdftest"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// fakeEngine implements engine for testing. By default it writes a
// one-page PDF for the staged input.
type fakeEngine struct {
	fn       func(ctx context.Context, s *Session, name string) error
	sessions []string
	staged   map[string]string // staged document.xml per input name
}

func (f *fakeEngine) name() string { return "fake" }

func (f *fakeEngine) render(ctx context.Context, s *Session, name string) error {
	f.sessions = append(f.sessions, s.Dir())
	if f.staged == nil {
		f.staged = make(map[string]string)
	}
	if k, err := Detect(filepath.Join(s.inDir, name)); err == nil && k.HasRevisionMarkup() {
		doc, err := documentXML(filepath.Join(s.inDir, name))
		if err != nil {
			return err
		}
		f.staged[name] = doc
	}
	if f.fn != nil {
		return f.fn(ctx, s, name)
	}
	stem := name[:len(name)-len(filepath.Ext(name))]
	return os.WriteFile(filepath.Join(s.outDir, stem+".pdf"), pdftest.Build("RENDERED"), 0o644)
}

func documentXML(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			data, err := readPart(f)
			return string(data), err
		}
	}
	return "", errors.New("no document part")
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/r/report.docx", "/r/report.pdf"},
		{"/r/Report.Final.DOC", "/r/Report.Final.pdf"},
		{"report", "report.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputPath(tt.in), tt.in)
	}
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	docx := writeDocx(t, dir, "a.docx", "")
	docm := writeDocx(t, dir, "b.docm", "")
	odt := filepath.Join(dir, "c.odt")
	writePackage(t, odt, [][2]string{
		{"mimetype", "application/vnd.oasis.opendocument.text"},
		{"content.xml", "<office:document-content/>"},
	})
	fakeDocx := filepath.Join(dir, "d.docx")
	require.NoError(t, os.WriteFile(fakeDocx, []byte("plain text"), 0o644))
	xlsx := filepath.Join(dir, "e.docx")
	writePackage(t, xlsx, [][2]string{{"xl/workbook.xml", "<workbook/>"}})

	tests := []struct {
		name string
		path string
		want Kind
		err  bool
	}{
		{name: "docx", path: docx, want: KindDOCX},
		{name: "docm", path: docm, want: KindDOCM},
		{name: "odt", path: odt, want: KindODT},
		{name: "legacy doc by extension", path: filepath.Join(dir, "x.DOC"), want: KindDOC},
		{name: "rtf by extension", path: filepath.Join(dir, "x.rtf"), want: KindRTF},
		{name: "docx that is not a package", path: fakeDocx, err: true},
		{name: "spreadsheet named docx", path: xlsx, err: true},
		{name: "pdf is not a source", path: filepath.Join(dir, "x.pdf"), err: true},
		{name: "text file", path: filepath.Join(dir, "x.txt"), err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.path)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := writeDocx(t, dir, "report.docx",
		`<w:p><w:ins><w:r><w:t>Heading</w:t></w:r></w:ins><w:del><w:r><w:delText>Draft</w:delText></w:r></w:del></w:p>`)
	eng := &fakeEngine{}

	out, err := newConverter(eng, types.ConversionConfig{}, nil).Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), out)

	n, err := pdfio.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, docHead+`<w:p><w:r><w:t>Heading</w:t></w:r></w:p>`+docTail, eng.staged["report.docx"],
		"engine sees the document with revisions accepted")

	require.Len(t, eng.sessions, 1)
	assert.NoDirExists(t, eng.sessions[0], "session directory is removed")

	before := readParts(t, src)["word/document.xml"]
	assert.Contains(t, before, "<w:del>", "the source document is not modified")
}

func TestConvert_KeepRevisions(t *testing.T) {
	dir := t.TempDir()
	body := `<w:p><w:del><w:r><w:delText>Draft</w:delText></w:r></w:del></w:p>`
	src := writeDocx(t, dir, "report.docx", body)
	eng := &fakeEngine{}

	_, err := newConverter(eng, types.ConversionConfig{KeepRevisions: true}, nil).Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, docHead+body+docTail, eng.staged["report.docx"])
}

func TestConvert_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(context.Context, *Session, string) error
		wantMsg string
	}{
		{
			name: "engine error",
			fn: func(context.Context, *Session, string) error {
				return errors.New("soffice: exit status 81: user profile locked")
			},
			wantMsg: "user profile locked",
		},
		{
			name:    "engine produced nothing",
			fn:      func(context.Context, *Session, string) error { return nil },
			wantMsg: "produced no PDF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeDocx(t, dir, "report.docx", "")
			eng := &fakeEngine{fn: tt.fn}

			_, err := newConverter(eng, types.ConversionConfig{}, nil).Convert(context.Background(), src)
			require.ErrorIs(t, err, ErrConversionFailed)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NoFileExists(t, filepath.Join(dir, "report.pdf"))
			require.Len(t, eng.sessions, 1)
			assert.NoDirExists(t, eng.sessions[0])
		})
	}
}

func TestConvert_Timeout(t *testing.T) {
	dir := t.TempDir()
	src := writeDocx(t, dir, "report.docx", "")
	eng := &fakeEngine{fn: func(ctx context.Context, _ *Session, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	cfg := types.ConversionConfig{Timeout: 20 * time.Millisecond}
	_, err := newConverter(eng, cfg, nil).Convert(context.Background(), src)
	require.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "timed out")
}

func TestConvert_UnsupportedSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	eng := &fakeEngine{}

	_, err := newConverter(eng, types.ConversionConfig{}, nil).Convert(context.Background(), src)
	require.ErrorIs(t, err, ErrConversionFailed)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Empty(t, eng.sessions, "engine never started")
}

func TestSession_CloseIdempotent(t *testing.T) {
	s, err := openSession(&fakeEngine{}, nil)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(s.Dir(), "profile"))

	require.NoError(t, s.Close())
	assert.NoDirExists(t, s.Dir())
	assert.NoError(t, s.Close())
}

func TestWithSession_ReleasesOnPanic(t *testing.T) {
	var dir string
	assert.Panics(t, func() {
		_ = withSession(&fakeEngine{}, nil, func(s *Session) error {
			dir = s.Dir()
			panic("boom")
		})
	})
	require.NotEmpty(t, dir)
	assert.NoDirExists(t, dir)
}

func TestWithSession_ReturnsFnError(t *testing.T) {
	want := errors.New("stop")
	err := withSession(&fakeEngine{}, nil, func(*Session) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestSofficeArgs(t *testing.T) {
	args := sofficeArgs("file:///tmp/p", "/tmp/out", "/tmp/in/r.docx")
	assert.Contains(t, args, "--headless")
	assert.Contains(t, args, "--norestore")
	assert.Contains(t, args, "-env:UserInstallation=file:///tmp/p")
	assert.Equal(t, "/tmp/in/r.docx", args[len(args)-1])
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "file:///tmp/a%20b/profile", fileURL("/tmp/a b/profile"))
}

// fakeSoffice is a shell stand-in for soffice: it writes a small file named
// after the input into --outdir, or fails when the input stem is "fail".
const fakeSoffice = `#!/bin/sh
out=""
in=""
while [ $# -gt 0 ]; do
  case "$1" in
    --outdir) out="$2"; shift ;;
    *) in="$1" ;;
  esac
  shift
done
base=$(basename "$in")
stem="${base%.*}"
if [ "$stem" = "fail" ]; then
  echo "Error: source file could not be loaded" >&2
  exit 1
fi
printf '%%PDF-1.4 fake\n' > "$out/$stem.pdf"
`

func TestNativeEngine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "soffice")
	require.NoError(t, os.WriteFile(bin, []byte(fakeSoffice), 0o755))

	eng := &nativeEngine{bin: bin}
	conv := newConverter(eng, types.ConversionConfig{}, nil)

	t.Run("renders", func(t *testing.T) {
		src := writeDocx(t, dir, "report.docx", "")
		out, err := conv.Convert(context.Background(), src)
		require.NoError(t, err)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 fake\n", string(data))
	})

	t.Run("engine message surfaces", func(t *testing.T) {
		src := filepath.Join(dir, "fail.rtf")
		require.NoError(t, os.WriteFile(src, []byte(`{\rtf1 x}`), 0o644))
		_, err := conv.Convert(context.Background(), src)
		require.ErrorIs(t, err, ErrConversionFailed)
		assert.Contains(t, err.Error(), "could not be loaded")
	})
}

func TestNewEngine_UnknownBackend(t *testing.T) {
	_, err := newEngine(types.ConversionConfig{Backend: "word"})
	assert.Error(t, err)
}
