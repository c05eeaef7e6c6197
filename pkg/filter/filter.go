package filter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName はルート直下に置く除外パターンファイル名
const IgnoreFileName = ".ingestignore"

// DefaultInclude はデフォルトの取り込み対象パターン
const DefaultInclude = "**/*.pdf"

// FileFilter は取り込み対象パターンと .ingestignore のパターンマッチングを提供します
type FileFilter struct {
	include *gitignore.GitIgnore
	exclude *gitignore.GitIgnore
}

// NewFileFilter は新しいFileFilterを作成します。
// include は gitignore 形式のパターン（"**" 対応）で、root 配下の .ingestignore があれば除外に使います。
func NewFileFilter(root, include string) (*FileFilter, error) {
	if strings.TrimSpace(include) == "" {
		include = DefaultInclude
	}

	f := &FileFilter{
		include: gitignore.CompileIgnoreLines(include),
	}

	ignorePath := filepath.Join(root, IgnoreFileName)
	if _, err := os.Stat(ignorePath); err == nil {
		patterns, err := readIgnoreFile(ignorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
		}
		if len(patterns) > 0 {
			f.exclude = gitignore.CompileIgnoreLines(patterns...)
		}
	}

	return f, nil
}

// Match は root からの相対パスが取り込み対象かどうかを判定します
func (f *FileFilter) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if !f.include.MatchesPath(relPath) {
		return false
	}
	return !f.ShouldIgnore(relPath)
}

// ShouldIgnore はパスが .ingestignore で除外されるかを判定します
func (f *FileFilter) ShouldIgnore(relPath string) bool {
	if f.exclude == nil {
		return false
	}
	return f.exclude.MatchesPath(filepath.ToSlash(relPath))
}

// readIgnoreFile は ignore ファイルを読み込んでパターンのスライスを返します
func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		// 空行とコメント行をスキップ
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}
