package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// 起動モードのサブコマンド名
const (
	// CommandServe はHTTPサーバーモードで起動する。
	CommandServe = "serve"
	// CommandWorker は期限切れセッションの削除ジョブのみを実行する。
	CommandWorker = "worker"
	// CommandMigrate はデータベースマイグレーションを実行する。
	CommandMigrate = "migrate"
	// CommandHealthcheck はヘルスチェックを実行する。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck = "healthcheck"
)

// NewRootCommand はpokedexのルートコマンドを生成する。
// サブコマンドを省略した場合はserveとして動作する。wはログの出力先。
func NewRootCommand(w io.Writer) *cobra.Command {
	serve := newServeCommand(w)

	root := &cobra.Command{
		Use:           "pokedex",
		Short:         "ポケモン図鑑のアカウント・認証サービス",
		Long:          "ローカルパスワードとGoogleアカウントによるログイン・登録、セッション管理を提供するHTTPサーバー。",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	root.AddCommand(
		serve,
		newWorkerCommand(w),
		newMigrateCommand(w),
		newHealthcheckCommand(),
	)
	return root
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   CommandServe,
		Short: "HTTPサーバーを起動する",
		Long:  "HTTPサーバーと期限切れセッションの削除ジョブを起動する。SIGINT/SIGTERMでグレースフルシャットダウンする。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			logStart(CommandServe, cfg.ServerPort)

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func newWorkerCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   CommandWorker,
		Short: "期限切れセッションの削除ジョブを起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			logStart(CommandWorker, cfg.ServerPort)

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runWorker(ctx, cfg)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   CommandMigrate,
		Short: "データベースマイグレーションを適用する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := Init(w)
			if err != nil {
				return err
			}
			logStart(CommandMigrate, cfg.ServerPort)
			return runMigrate(cfg)
		},
	}
}

// newHealthcheckCommand は軽量サブコマンドのため、設定の読み込みを行わない。
func newHealthcheckCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   CommandHealthcheck,
		Short: "ローカルのHTTPサーバーの /health を確認する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealthcheck(cmd.Context(), port)
		},
	}

	defaultPort := os.Getenv("SERVER_PORT")
	if defaultPort == "" {
		defaultPort = "8080"
	}
	cmd.Flags().StringVar(&port, "port", defaultPort, "確認するポート（既定値はSERVER_PORT）")
	return cmd
}

func logStart(command, port string) {
	slog.Info("starting application",
		slog.String("command", command),
		slog.String("port", port),
	)
}

// signalContext はSIGINTまたはSIGTERMでキャンセルされるコンテキストを返す。
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
