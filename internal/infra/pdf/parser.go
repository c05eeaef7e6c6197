package pdf

import (
	"fmt"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/ledongthuc/pdf"
)

// ParsePages は PDF をページ単位のプレーンテキストに変換する（ページ番号は0始まり）。
// 内容オブジェクトを持たないページは飛ばす。
func ParsePages(path string) (pages []ingestion.Page, err error) {
	// 壊れた PDF ではパーサが panic することがあるためエラーに変換する
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]ingestion.Page, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, ingestion.Page{Number: i - 1, Text: text})
	}
	return pages, nil
}
