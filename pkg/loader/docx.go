package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

const docXMLMax = 50 << 20

// DocxToText extracts the body text of a .docx file. Paragraphs become one
// line each, table rows become one line of tab separated cells. Whitespace
// inside a line is collapsed and lines already emitted are dropped.
func DocxToText(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("document.xml not found in docx")
	}
	if docFile.UncompressedSize64 > docXMLMax {
		return "", fmt.Errorf("document.xml too large: %d bytes",
			docFile.UncompressedSize64)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, int64(docXMLMax)))

	var (
		out  strings.Builder
		seen = map[string]struct{}{}

		para strings.Builder
		cell strings.Builder
		row  []string

		inText   bool
		delDepth int
		tblDepth int
	)

	emit := func(line string) {
		if line == "" {
			return
		}
		if _, ok := seen[line]; ok {
			return
		}
		seen[line] = struct{}{}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	current := func() *strings.Builder {
		if tblDepth > 0 {
			return &cell
		}
		return &para
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "del":
				delDepth++
			case "t":
				inText = true
			case "tab", "br", "cr":
				if delDepth == 0 {
					current().WriteByte(' ')
				}
			case "noBreakHyphen":
				if delDepth == 0 {
					current().WriteRune('-')
				}
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					row = row[:0]
				}
			case "tc":
				if tblDepth == 1 {
					cell.Reset()
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tblDepth > 0 {
					cell.WriteByte(' ')
					continue
				}
				emit(normalizeSpace(para.String()))
				para.Reset()
			case "tc":
				if tblDepth == 1 {
					row = append(row, normalizeSpace(cell.String()))
				}
			case "tr":
				if tblDepth == 1 {
					emit(strings.Join(row, "\t"))
				}
			case "tbl":
				if tblDepth > 0 {
					tblDepth--
				}
			case "del":
				if delDepth > 0 {
					delDepth--
				}
			}

		case xml.CharData:
			if delDepth != 0 || !inText {
				continue
			}
			current().Write(t)
		}
	}

	return out.String(), nil
}

// DocxFileToText reads path and converts it with DocxToText.
func DocxFileToText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DocxToText(content)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
