package git

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/jinford/pdf-ingest/internal/core/ingestion"
	giturls "github.com/whilp/git-urls"
)

// Resolver はディレクトリを含む Git 作業ツリーからコミット情報を取得する
type Resolver struct {
	remoteName string
}

// NewResolver は新しい Resolver を作成する
func NewResolver() *Resolver {
	return &Resolver{remoteName: "origin"}
}

// Resolve は dir を含むリポジトリの HEAD コミットと origin を返す。
// Git 管理外のディレクトリでは nil を返す。
func (r *Resolver) Resolve(dir string) (map[string]any, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	metadata := map[string]any{}

	head, err := repo.Head()
	switch {
	case err == nil:
		metadata[ingestion.MetaSourceCommit] = head.Hash().String()
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// コミットがまだ無いリポジトリ
	default:
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	remote, err := repo.Remote(r.remoteName)
	if err == nil && len(remote.Config().URLs) > 0 {
		if name, err := NormalizeRemoteURL(remote.Config().URLs[0]); err == nil {
			metadata[ingestion.MetaSourceRepository] = name
		}
	}

	return metadata, nil
}

// NormalizeRemoteURL はGit URLを host/path 形式に変換する
func NormalizeRemoteURL(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	p := strings.TrimPrefix(u.Path, "/")
	p = strings.TrimSuffix(p, ".git")

	return path.Join(hostname, p), nil
}
