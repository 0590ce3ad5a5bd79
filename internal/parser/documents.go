package parser

import (
	"bytes"
	"html"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"transcript-rag/internal/models"
)

var docxText = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

func parseMarkdown(filePath string, rate float64) ([]models.TranscriptSegment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return estimateTimes(markdownParagraphs(data), rate), nil
}

// markdownParagraphs returns the plain text of every paragraph, inline
// markup removed. Headings, code blocks and tables are skipped.
func markdownParagraphs(source []byte) []string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var paragraphs []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindTextBlock:
			if p := collapseSpace(inlineText(n, source)); p != "" {
				paragraphs = append(paragraphs, p)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return paragraphs
}

func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func parseDOCX(filePath string, rate float64) ([]models.TranscriptSegment, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return estimateTimes(docxParagraphs(r.Editable().GetContent()), rate), nil
}

// docxParagraphs pulls the text runs out of document.xml, one entry per
// non-empty <w:p>.
func docxParagraphs(xml string) []string {
	var paragraphs []string
	for _, p := range strings.Split(xml, "</w:p>") {
		var sb strings.Builder
		for _, m := range docxText.FindAllStringSubmatch(p, -1) {
			sb.WriteString(html.UnescapeString(m[1]))
		}
		if s := collapseSpace(sb.String()); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return paragraphs
}

func parsePDF(filePath string, rate float64) ([]models.TranscriptSegment, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var paragraphs []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		paragraphs = append(paragraphs, splitParagraphs(pageText)...)
	}
	return estimateTimes(paragraphs, rate), nil
}

// parseXLSX reads the first sheet. Rows are either start, end, text or a
// single text column; an optional header row naming a "text" column is
// skipped. Times are estimated unless every row carries them.
func parseXLSX(filePath string, rate float64) ([]models.TranscriptSegment, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var (
		timed    []models.TranscriptSegment
		texts    []string
		allTimed = true
	)
	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if len(row) >= 3 {
			start, errStart := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
			end, errEnd := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
			if errStart == nil && errEnd == nil {
				t := collapseSpace(strings.Join(row[2:], " "))
				timed = append(timed, models.TranscriptSegment{Start: start, End: end, Text: t})
				texts = append(texts, t)
				continue
			}
		}
		t := collapseSpace(strings.Join(row, " "))
		if t == "" {
			continue
		}
		allTimed = false
		texts = append(texts, t)
	}

	if allTimed {
		return timed, nil
	}
	return estimateTimes(texts, rate), nil
}

func isHeaderRow(row []string) bool {
	for _, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), "text") {
			return true
		}
	}
	return false
}
