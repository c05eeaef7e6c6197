package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PageSeparator はページ結合に使う区切り。ページ境界で文が続く場合もチャンクが跨げるよう単語区切りにする
const PageSeparator = " "

// メタデータキー
const (
	MetaSource           = "source"
	MetaPage             = "page"
	MetaTotalPages       = "total_pages"
	MetaChunkIndex       = "chunk_index"
	MetaStartIndex       = "start_index"
	MetaTokenCount       = "token_count"
	MetaSourceCommit     = "source_commit"
	MetaSourceRepository = "source_repository"
)

// Page は PDF の 1 ページ分のテキストを表す（Number は 0 始まり）
type Page struct {
	Number int
	Text   string
}

// Document はソースファイル 1 件をパースした結果を表す
type Document struct {
	Source   string
	Pages    []Page
	Metadata map[string]any
}

// Text はページを段落区切りで結合した全文を返す
func (d *Document) Text() string {
	texts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, PageSeparator)
}

// PageAt は全文中の rune オフセットが属するページ番号を返す
func (d *Document) PageAt(offset int) int {
	if len(d.Pages) == 0 {
		return 0
	}
	sepLen := utf8.RuneCountInString(PageSeparator)
	end := 0
	for _, p := range d.Pages {
		end += utf8.RuneCountInString(p.Text)
		if offset < end+sepLen {
			return p.Number
		}
		end += sepLen
	}
	return d.Pages[len(d.Pages)-1].Number
}

// Chunk はドキュメントを分割したテキスト片を表す
type Chunk struct {
	Content    string
	Source     string
	Page       int
	Ordinal    int
	StartIndex int
	TokenCount *int
	Metadata   map[string]any
}

// Key はチャンクの決定的な識別子を返す
func (c *Chunk) Key() string {
	sum := sha256.Sum256([]byte(c.Content))
	return fmt.Sprintf("%s#%d#%s", c.Source, c.Ordinal, hex.EncodeToString(sum[:8]))
}

// PointID はチャンクキーから決定的な UUID を生成する
func (c *Chunk) PointID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.Key()))
}

// Point はベクトルストアへ投入する 1 レコード
type Point struct {
	ID      uuid.UUID
	Vector  []float32
	Content string
	Payload map[string]any
}

// ペイロードキー
const (
	PayloadContent  = "page_content"
	PayloadMetadata = "metadata"
)

// Distance はベクトルの距離関数
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceEuclid Distance = "Euclid"
	DistanceDot    Distance = "Dot"
)

// ParseDistance は文字列を Distance に変換する（大文字小文字は区別しない）
func ParseDistance(s string) (Distance, bool) {
	switch strings.ToLower(s) {
	case "cosine":
		return DistanceCosine, true
	case "euclid", "euclidean", "l2":
		return DistanceEuclid, true
	case "dot":
		return DistanceDot, true
	default:
		return "", false
	}
}

// CollectionSpec はコレクションのスキーマ定義
type CollectionSpec struct {
	Name      string
	Dimension int
	Distance  Distance
}
