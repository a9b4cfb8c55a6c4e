package loader

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/graphrag-chat/backend/pkg/common"
)

func TestResolveInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("张三在北京大学工作"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	in, err := ResolveInput(path)
	if err != nil {
		t.Fatalf("ResolveInput: %v", err)
	}
	if in.Source != "notes.txt" {
		t.Fatalf("source = %q, want notes.txt", in.Source)
	}
	if in.Text != "张三在北京大学工作" {
		t.Fatalf("text = %q", in.Text)
	}
}

func TestResolveInputLiteral(t *testing.T) {
	tests := []string{
		"张三在北京大学工作",
		"/definitely/not/a/real/file.txt",
		"line one\nline two",
	}
	for _, input := range tests {
		in, err := ResolveInput(input)
		if err != nil {
			t.Fatalf("ResolveInput(%q): %v", input, err)
		}
		if in.Source != common.CustomInputSource || in.Text != input {
			t.Fatalf("ResolveInput(%q) = %+v", input, in)
		}
	}
}

func TestResolveInputDirectoryIsLiteral(t *testing.T) {
	dir := t.TempDir()
	in, err := ResolveInput(dir)
	if err != nil {
		t.Fatalf("ResolveInput: %v", err)
	}
	if in.Source != common.CustomInputSource {
		t.Fatalf("directory resolved as file: %+v", in)
	}
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDocxToText(t *testing.T) {
	body := `<w:p><w:r><w:t>布洛芬   是一种</w:t></w:r><w:r><w:t xml:space="preserve"> 药物</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>布洛芬 是一种 药物</w:t></w:r></w:p>` +
		`<w:p><w:r><w:del><w:t>deleted</w:t></w:del><w:t>kept</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>名称</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>用量</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>片剂</w:t></w:r></w:p><w:p><w:r><w:t>0.2g</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>每日 三次</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>`

	got, err := DocxToText(buildDocx(t, body))
	if err != nil {
		t.Fatalf("DocxToText: %v", err)
	}
	want := "布洛芬 是一种 药物\nkept\n名称\t用量\n片剂 0.2g\t每日 三次\n"
	if got != want {
		t.Fatalf("DocxToText =\n%q\nwant\n%q", got, want)
	}
}

func TestDocxToTextInvalid(t *testing.T) {
	if _, err := DocxToText([]byte("not a zip")); err == nil {
		t.Fatalf("expected error for non-zip input")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("word/other.xml")
	_ = zw.Close()
	if _, err := DocxToText(buf.Bytes()); err == nil {
		t.Fatalf("expected error for missing document.xml")
	}
}
