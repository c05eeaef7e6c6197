package pdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	"github.com/jinford/pdf-ingest/pkg/filter"
)

// PageParser はファイルをページごとのテキストに変換する
type PageParser func(path string) ([]ingestion.Page, error)

// ProvenanceResolver はディレクトリの出自情報（コミット等）をメタデータとして返す
type ProvenanceResolver interface {
	Resolve(dir string) (map[string]any, error)
}

// Loader はディレクトリ配下の PDF を読み込む DocumentLoader 実装
type Loader struct {
	root       string
	include    string
	parse      PageParser
	provenance ProvenanceResolver
	logger     *slog.Logger
}

// LoaderOption は Loader のオプション設定
type LoaderOption func(*Loader)

// WithInclude は取り込み対象パターンを上書きする（デフォルト: **/*.pdf）
func WithInclude(pattern string) LoaderOption {
	return func(l *Loader) {
		l.include = pattern
	}
}

// WithPageParser はページ抽出処理を差し替える
func WithPageParser(parse PageParser) LoaderOption {
	return func(l *Loader) {
		l.parse = parse
	}
}

// WithProvenance は出自情報の解決処理を設定する
func WithProvenance(resolver ProvenanceResolver) LoaderOption {
	return func(l *Loader) {
		l.provenance = resolver
	}
}

// WithLoaderLogger はロガーを設定する
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader は新しい Loader を作成する
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:    root,
		include: filter.DefaultInclude,
		parse:   ParsePages,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root はルートディレクトリを返す
func (l *Loader) Root() string {
	return l.root
}

// Load は対象ファイルをパス順に読み込む。該当ファイルが0件でもエラーにはしない。
func (l *Loader) Load(ctx context.Context) ([]*ingestion.Document, error) {
	paths, err := l.discover()
	if err != nil {
		return nil, err
	}

	var provenance map[string]any
	if l.provenance != nil && len(paths) > 0 {
		provenance, err = l.provenance.Resolve(l.root)
		if err != nil {
			// 出自情報は付加情報のため取り込みは継続する
			l.logger.Warn("出自情報の取得に失敗", "root", l.root, "error", err)
			provenance = nil
		}
	}

	docs := make([]*ingestion.Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pages, err := l.parse(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ingestion.ErrParseFailed, path, err)
		}

		metadata := make(map[string]any, len(provenance)+2)
		for k, v := range provenance {
			metadata[k] = v
		}
		metadata[ingestion.MetaSource] = path
		metadata[ingestion.MetaTotalPages] = len(pages)

		docs = append(docs, &ingestion.Document{
			Source:   path,
			Pages:    pages,
			Metadata: metadata,
		})
		l.logger.Debug("ドキュメントを読み込み", "path", path, "pages", len(pages))
	}

	return docs, nil
}

// discover はルート配下で対象パターンに一致するファイルを列挙する（隠しディレクトリ・隠しファイルは除外）。
// ルートがシンボリックリンクの場合はリンク先を走査し、返すパスは指定されたルート基準のままにする。
func (l *Loader) discover() ([]string, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ingestion.ErrSourceUnavailable, l.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ingestion.ErrSourceUnavailable, l.root)
	}

	walkRoot, err := filepath.EvalSymlinks(l.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ingestion.ErrSourceUnavailable, l.root, err)
	}

	ff, err := filter.NewFileFilter(walkRoot, l.include)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ingestion.ErrSourceUnavailable, err)
	}

	var paths []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == walkRoot {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return err
		}
		if ff.Match(rel) {
			paths = append(paths, filepath.Join(l.root, rel))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ingestion.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("failed to walk %s: %w", l.root, err)
	}

	return paths, nil
}

var _ ingestion.DocumentLoader = (*Loader)(nil)
