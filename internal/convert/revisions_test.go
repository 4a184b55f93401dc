// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
	`<w:document xmlns:w="` + nsW + `"><w:body>`

const docTail = `</w:body></w:document>`

func TestStripRevisions(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		changed int
	}{
		{
			name: "no revisions",
			body: `<w:p><w:r><w:t xml:space="preserve">Plain &amp; simple</w:t></w:r></w:p>`,
			want: `<w:p><w:r><w:t xml:space="preserve">Plain &amp; simple</w:t></w:r></w:p>`,
		},
		{
			name:    "insertion kept without its wrapper",
			body:    `<w:p><w:ins w:id="1" w:author="A"><w:r><w:t>added</w:t></w:r></w:ins></w:p>`,
			want:    `<w:p><w:r><w:t>added</w:t></w:r></w:p>`,
			changed: 1,
		},
		{
			name:    "deletion removed with its text",
			body:    `<w:p><w:r><w:t>kept</w:t></w:r><w:del w:id="2"><w:r><w:delText>gone</w:delText></w:r></w:del></w:p>`,
			want:    `<w:p><w:r><w:t>kept</w:t></w:r></w:p>`,
			changed: 1,
		},
		{
			name: "move resolves to destination",
			body: `<w:p><w:moveFromRangeStart w:id="3" w:name="m"/><w:moveFrom><w:r><w:t>old place</w:t></w:r></w:moveFrom>` +
				`<w:moveFromRangeEnd w:id="3"/></w:p><w:p><w:moveTo><w:r><w:t>new place</w:t></w:r></w:moveTo></w:p>`,
			want:    `<w:p></w:p><w:p><w:r><w:t>new place</w:t></w:r></w:p>`,
			changed: 4,
		},
		{
			name:    "property change record dropped",
			body:    `<w:p><w:r><w:rPr><w:b/><w:rPrChange w:id="4"><w:rPr><w:i/></w:rPr></w:rPrChange></w:rPr><w:t>x</w:t></w:r></w:p>`,
			want:    `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>x</w:t></w:r></w:p>`,
			changed: 1,
		},
		{
			name:    "nested insertion inside deletion is dropped",
			body:    `<w:p><w:del><w:ins><w:r><w:t>both</w:t></w:r></w:ins></w:del><w:r><w:t>after</w:t></w:r></w:p>`,
			want:    `<w:p><w:r><w:t>after</w:t></w:r></w:p>`,
			changed: 1,
		},
		{
			name: "deleted table row removed",
			body: `<w:tbl><w:tr><w:tc><w:p><w:r><w:t>keep</w:t></w:r></w:p></w:tc></w:tr>` +
				`<w:tr><w:trPr><w:del w:id="5"/></w:trPr><w:tc><w:p><w:del><w:r><w:delText>row</w:delText></w:r></w:del></w:p></w:tc></w:tr></w:tbl>`,
			want:    `<w:tbl><w:tr><w:tc><w:p><w:r><w:t>keep</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`,
			changed: 3,
		},
		{
			name:    "table with every row deleted removed",
			body:    `<w:tbl><w:tblPr/><w:tr><w:trPr><w:del w:id="6"/></w:trPr><w:tc><w:p/></w:tc></w:tr></w:tbl><w:p/>`,
			want:    `<w:p/>`,
			changed: 3,
		},
		{
			name: "paragraph with deleted mark and no remaining text removed",
			body: `<w:p><w:pPr><w:rPr><w:del w:id="7"/></w:rPr></w:pPr><w:del><w:r><w:delText>gone</w:delText></w:r></w:del></w:p>` +
				`<w:p><w:r><w:t>next</w:t></w:r></w:p>`,
			want:    `<w:p><w:r><w:t>next</w:t></w:r></w:p>`,
			changed: 3,
		},
		{
			name:    "paragraph with deleted mark keeps surviving text",
			body:    `<w:p><w:pPr><w:rPr><w:del w:id="8"/></w:rPr></w:pPr><w:r><w:t>stays</w:t></w:r></w:p>`,
			want:    `<w:p><w:pPr><w:rPr></w:rPr></w:pPr><w:r><w:t>stays</w:t></w:r></w:p>`,
			changed: 1,
		},
		{
			name:    "inserted row kept",
			body:    `<w:tbl><w:tr><w:trPr><w:ins w:id="9"/></w:trPr><w:tc><w:p/></w:tc></w:tr></w:tbl>`,
			want:    `<w:tbl><w:tr><w:trPr></w:trPr><w:tc><w:p/></w:tc></w:tr></w:tbl>`,
			changed: 1,
		},
		{
			name: "elements of other namespaces untouched",
			body: `<w:p xmlns:x="urn:other"><x:del>stays</x:del></w:p>`,
			want: `<w:p xmlns:x="urn:other"><x:del>stays</x:del></w:p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := stripRevisions([]byte(docHead + tt.body + docTail))
			require.NoError(t, err)
			assert.Equal(t, docHead+tt.want+docTail, string(got))
			assert.Equal(t, tt.changed, n)
		})
	}
}

func TestStripRevisions_DefaultNamespace(t *testing.T) {
	in := `<document xmlns="` + nsW + `"><body><p><del><r><t>x</t></r></del><ins><r><t>y</t></r></ins></p></body></document>`
	got, n, err := stripRevisions([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, `<document xmlns="`+nsW+`"><body><p><r><t>y</t></r></p></body></document>`, string(got))
	assert.Equal(t, 2, n)
}

func TestStripRevisions_Malformed(t *testing.T) {
	_, _, err := stripRevisions([]byte(docHead + `<w:p><w:r w:x=`))
	assert.Error(t, err)
}

// writePackage writes a zip holding parts in the given order.
func writePackage(t *testing.T, path string, parts [][2]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(p[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeDocx writes a minimal WordprocessingML package with body as the
// document body.
func writeDocx(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writePackage(t, path, [][2]string{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"word/document.xml", docHead + body + docTail},
		{"word/settings.xml", `<w:settings xmlns:w="` + nsW + `"><w:trackRevisions/><w:zoom w:percent="100"/></w:settings>`},
		{"docProps/app.xml", `<Properties><w:del xmlns:w="` + nsW + `"/></Properties>`},
	})
	return path
}

func readParts(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		parts[f.Name] = string(data)
	}
	return parts
}

func TestAcceptRevisions(t *testing.T) {
	dir := t.TempDir()
	src := writeDocx(t, dir, "report.docx",
		`<w:p><w:ins><w:r><w:t>new</w:t></w:r></w:ins><w:del><w:r><w:delText>old</w:delText></w:r></w:del></w:p>`)
	dst := filepath.Join(dir, "clean.docx")

	n, err := acceptRevisions(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	before := readParts(t, src)
	after := readParts(t, dst)
	assert.Equal(t, docHead+`<w:p><w:r><w:t>new</w:t></w:r></w:p>`+docTail, after["word/document.xml"])
	assert.Equal(t, `<w:settings xmlns:w="`+nsW+`"><w:zoom w:percent="100"/></w:settings>`, after["word/settings.xml"])
	assert.Equal(t, before["[Content_Types].xml"], after["[Content_Types].xml"])
	assert.Equal(t, before["docProps/app.xml"], after["docProps/app.xml"], "parts outside word/ are copied as is")

	kind, err := Detect(dst)
	require.NoError(t, err)
	assert.Equal(t, KindDOCX, kind)
}

func TestAcceptRevisions_NotAPackage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.docx")
	require.NoError(t, os.WriteFile(src, []byte("not a zip"), 0o644))

	_, err := acceptRevisions(src, filepath.Join(dir, "out.docx"))
	assert.Error(t, err)
}
