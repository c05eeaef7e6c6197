package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
)

// DefaultSeparators は分割に使う区切りの優先順（段落、行、文、単語、文字）
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveSplitter は区切りの優先リストを再帰的に試しながらテキストを分割します。
// 長さはすべて rune 数で数えます。
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewRecursiveSplitter は新しいRecursiveSplitterを作成します。
// separators の末尾が "" でない場合は "" を補い、最大長を必ず守れるようにします。
func NewRecursiveSplitter(chunkSize, overlap int, separators []string) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive (got %d)", ingestion.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d) (got %d)", ingestion.ErrInvalidConfig, chunkSize, overlap)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	seps := append([]string(nil), separators...)
	if seps[len(seps)-1] != "" {
		seps = append(seps, "")
	}
	return &RecursiveSplitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: seps,
	}, nil
}

// ChunkSize は最大チャンク長を返します
func (s *RecursiveSplitter) ChunkSize() int {
	return s.chunkSize
}

// SplitText はテキストをチャンク列に分割します
func (s *RecursiveSplitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var final []string
	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			if doc := strings.TrimSpace(piece); doc != "" {
				final = append(final, doc)
			}
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge は短い断片を chunkSize 以下のウィンドウにまとめます。
// ウィンドウを確定するたびに、末尾の合計 overlap 以下の断片を次のウィンドウへ持ち越します。
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, piece := range pieces {
		l := runeLen(piece)
		if total+l > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+l > s.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += l
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator は区切りを次の断片の先頭に残したまま分割します
func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, separator+p)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
