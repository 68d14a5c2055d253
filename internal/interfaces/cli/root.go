// Package cli implements bureauctl, the operator command line.
package cli

import (
	"fmt"

	"github.com/garyjia/design-bureau/internal/config"
	"github.com/garyjia/design-bureau/internal/container"
	"github.com/garyjia/design-bureau/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

// RootCmd is the bureauctl entry point
var RootCmd = &cobra.Command{
	Use:   "bureauctl",
	Short: "Operator tooling for the design bureau workflow service",
	Long: `bureauctl runs maintenance tasks against the bureau database and
contract folders: schema migration, tariff import and folder job retries.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the configuration file")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

// env is the configuration and logger every command starts from
type env struct {
	cfg    *container.Config
	logger *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewCLILogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &env{cfg: cfg.ToContainerConfig(), logger: logger}, nil
}

// openStore opens the database with the schema applied
func (e *env) openStore() (*container.DatabaseBundle, *container.RepositoryBundle, error) {
	db, err := container.ProvideDatabase(&e.cfg.Database, e.logger)
	if err != nil {
		return nil, nil, err
	}
	repos, err := container.ProvideRepositories(db.Store, e.logger)
	if err != nil {
		_ = db.Conn.Close()
		return nil, nil, err
	}
	return db, repos, nil
}
