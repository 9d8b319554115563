package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/config"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/db"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/logging"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/service"
	"github.com/Rogue-Bear-Innovations/idea-cards-back/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the idea cards HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(serveApp()).Run()
			return nil
		},
	}

	root := &cobra.Command{
		Use:           "idea-cards",
		Short:         "Idea cards backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, newInitDBCmd())
	return root
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				logging.Module,
				db.Module,
				fx.Invoke(func(cfg *config.Config, gdb *gorm.DB, l *zap.SugaredLogger) error {
					sqlDB, err := gdb.DB()
					if err != nil {
						return err
					}
					l.Infow("schema applied", "path", cfg.DBPath)
					return sqlDB.Close()
				}),
			)
			return app.Err()
		},
	}
}

func serveApp() fx.Option {
	return fx.Options(
		config.Module,
		logging.Module,
		db.Module,
		service.Module,
		transport.Module,
		fx.Invoke(func(*transport.HTTPServer) {}),
	)
}
