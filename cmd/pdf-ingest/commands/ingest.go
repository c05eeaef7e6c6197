package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/pdf-ingest/pkg/config"
)

// IngestFlags は取り込みコマンドのフラグ（未指定の項目は環境変数の値を使う）
func IngestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Usage: "環境変数ファイルパス",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "PDFを読み込むディレクトリ（INGEST_DATA_DIR）",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "書き込み先コレクション名（COLLECTION_NAME）",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "ベクトルストア qdrant / pgvector（VECTOR_STORE）",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "1回の書き込みで扱うチャンク数（INGEST_BATCH_SIZE）",
		},
	}
}

// IngestAction はPDF取り込みを実行するコマンドのアクション。
// 取り込みに失敗した場合は終了コード1で終了する。
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile, os.Stdout, func(cfg *config.Config) {
		applyFlags(cmd, cfg)
	})
	if err != nil {
		slog.Error("初期化に失敗", "error", err)
		return cli.Exit("", 1)
	}
	defer appCtx.Close()

	appCtx.Logger().Info("PDF取り込みを開始",
		"dataDir", appCtx.Config.Ingest.DataDir,
		"collection", appCtx.Config.VectorStore.Collection,
		"store", appCtx.Config.VectorStore.Backend,
	)

	result := appCtx.Container.IngestService.Ingest(ctx)
	if !result.Success {
		return cli.Exit("", 1)
	}
	return nil
}

// applyFlags は明示的に指定されたフラグだけを設定に反映する
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("data-dir") {
		cfg.Ingest.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("collection") {
		cfg.VectorStore.Collection = cmd.String("collection")
	}
	if cmd.IsSet("store") {
		cfg.VectorStore.Backend = strings.ToLower(cmd.String("store"))
	}
	if cmd.IsSet("batch-size") {
		cfg.Ingest.BatchSize = int(cmd.Int("batch-size"))
	}
}
