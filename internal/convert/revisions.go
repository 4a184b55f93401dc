// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// nsW is the WordprocessingML main namespace.
const nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

type revisionAction int

const (
	keepElement revisionAction = iota
	unwrapElement
	dropElement
)

// revisionElements maps WordprocessingML element names to what accepting
// all revisions does to them.
var revisionElements = map[string]revisionAction{
	"ins":    unwrapElement,
	"moveTo": unwrapElement,

	"del":                         dropElement,
	"moveFrom":                    dropElement,
	"moveFromRangeStart":          dropElement,
	"moveFromRangeEnd":            dropElement,
	"moveToRangeStart":            dropElement,
	"moveToRangeEnd":              dropElement,
	"customXmlInsRangeStart":      dropElement,
	"customXmlInsRangeEnd":        dropElement,
	"customXmlDelRangeStart":      dropElement,
	"customXmlDelRangeEnd":        dropElement,
	"customXmlMoveFromRangeStart": dropElement,
	"customXmlMoveFromRangeEnd":   dropElement,
	"customXmlMoveToRangeStart":   dropElement,
	"customXmlMoveToRangeEnd":     dropElement,
	"rPrChange":                   dropElement,
	"pPrChange":                   dropElement,
	"sectPrChange":                dropElement,
	"tblPrChange":                 dropElement,
	"tblPrExChange":               dropElement,
	"trPrChange":                  dropElement,
	"tcPrChange":                  dropElement,
	"tblGridChange":               dropElement,
	"numberingChange":             dropElement,
	"trackRevisions":              dropElement,
}

// acceptRevisions writes to dst a copy of the WordprocessingML package src
// in which every tracked revision is accepted. Parts outside word/ are
// copied without recompression. It returns the number of revision elements
// removed or unwrapped.
func acceptRevisions(src, dst string) (int, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("opening package %s: %w", src, err)
	}
	defer zr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	total := 0
	for _, f := range zr.File {
		if !isWordPart(f.Name) {
			if err := zw.Copy(f); err != nil {
				return 0, fmt.Errorf("copying part %s: %w", f.Name, err)
			}
			continue
		}

		data, err := readPart(f)
		if err != nil {
			return 0, err
		}
		clean, n, err := stripRevisions(data)
		if err != nil {
			return 0, fmt.Errorf("part %s: %w", f.Name, err)
		}
		total += n

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
		})
		if err != nil {
			return 0, fmt.Errorf("writing part %s: %w", f.Name, err)
		}
		if _, err := w.Write(clean); err != nil {
			return 0, fmt.Errorf("writing part %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finishing %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", dst, err)
	}
	return total, nil
}

func isWordPart(name string) bool {
	return strings.HasPrefix(name, "word/") && strings.HasSuffix(name, ".xml")
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading part %s: %w", f.Name, err)
	}
	return data, nil
}

// openElement is an element whose end tag is still pending.
type openElement struct {
	name    string // local name when in the WordprocessingML namespace
	omitted bool   // tags left out of the output
}

// block buffers a w:p, w:tr or w:tbl until its end tag, when accepting
// revisions decides whether it survives.
type block struct {
	name    string
	depth   int // len(open) with the block's own start tag pushed
	buf     bytes.Buffer
	deleted bool // paragraph mark or row deleted, or a row of the table deleted
	kept    int  // runs of a paragraph or rows of a table that survive
}

// drop reports whether the accepted document loses the whole block. A
// deleted row goes with its content. A paragraph whose mark was deleted,
// or a table that lost rows, goes only when nothing inside survives.
func (b *block) drop() bool {
	if b.name == "tr" {
		return b.deleted
	}
	return b.deleted && b.kept == 0
}

// stripRevisions rewrites one XML part. Markup is copied byte for byte
// except revision elements: unwrapped elements lose their tags but keep
// their content, dropped elements lose both. Deleted table rows and
// paragraphs left empty by a deleted paragraph mark are removed.
func stripRevisions(data []byte) ([]byte, int, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	var (
		out      bytes.Buffer
		prefixes = make(map[string]bool) // prefixes bound to nsW
		skip     int                     // depth inside a dropped element
		open     []openElement
		blocks   []*block
		changed  int
		prev     int64
	)
	out.Grow(len(data))

	dst := func() *bytes.Buffer {
		if n := len(blocks); n > 0 {
			return &blocks[n-1].buf
		}
		return &out
	}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("parsing XML: %w", err)
		}
		cur := d.InputOffset()
		raw := data[prev:cur]
		prev = cur

		switch t := tok.(type) {
		case xml.StartElement:
			for _, a := range t.Attr {
				if a.Value != nsW {
					continue
				}
				if a.Name.Space == "xmlns" {
					prefixes[a.Name.Local] = true
				} else if a.Name.Space == "" && a.Name.Local == "xmlns" {
					prefixes[""] = true
				}
			}
			if skip > 0 {
				skip++
				continue
			}
			var name string
			if prefixes[t.Name.Space] {
				name = t.Name.Local
			}
			switch revisionElements[name] {
			case dropElement:
				changed++
				if name == "del" {
					markDeleted(open, blocks)
				}
				skip = 1
			case unwrapElement:
				changed++
				open = append(open, openElement{name: name, omitted: true})
			default:
				open = append(open, openElement{name: name})
				switch name {
				case "r":
					if n := len(blocks); n > 0 && blocks[n-1].name == "p" {
						blocks[n-1].kept++
					}
				case "p", "tr", "tbl":
					blocks = append(blocks, &block{name: name, depth: len(open)})
				}
				dst().Write(raw)
			}

		case xml.EndElement:
			if skip > 0 {
				skip--
				continue
			}
			n := len(open)
			if n == 0 {
				dst().Write(raw)
				continue
			}
			e := open[n-1]
			open = open[:n-1]
			if e.omitted {
				continue
			}
			dst().Write(raw)
			if nb := len(blocks); nb > 0 && blocks[nb-1].depth == n {
				b := blocks[nb-1]
				blocks = blocks[:nb-1]
				var parent *block
				if len(blocks) > 0 && b.name == "tr" && blocks[len(blocks)-1].name == "tbl" {
					parent = blocks[len(blocks)-1]
				}
				if b.drop() {
					changed++
					if parent != nil {
						parent.deleted = true
					}
					continue
				}
				if parent != nil {
					parent.kept++
				}
				dst().Write(b.buf.Bytes())
			}

		default:
			if skip == 0 {
				dst().Write(raw)
			}
		}
	}
	for _, b := range blocks {
		out.Write(b.buf.Bytes())
	}
	out.Write(data[prev:])
	return out.Bytes(), changed, nil
}

// markDeleted records a w:del found under the open elements: under w:trPr
// it deletes the row, under w:pPr/w:rPr it deletes the paragraph mark.
func markDeleted(open []openElement, blocks []*block) {
	n := len(open)
	if n == 0 || len(blocks) == 0 {
		return
	}
	var want string
	switch {
	case open[n-1].name == "trPr":
		want = "tr"
	case open[n-1].name == "rPr" && n >= 2 && open[n-2].name == "pPr":
		want = "p"
	default:
		return
	}
	if b := blocks[len(blocks)-1]; b.name == want {
		b.deleted = true
	}
}
