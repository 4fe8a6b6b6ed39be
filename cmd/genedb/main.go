// Package main provides the genedb command-line tool: load annotation
// files into an in-memory gene-model database and query it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile    string
	logger     *zap.Logger
	verboseLog bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "genedb",
		Short:   "Gene-annotation database: spatial queries and coordinate mapping",
		Version: fmt.Sprintf("%s (%s) built %s", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.genedb.yaml)")
	cmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().String("gtf", "", "GTF annotation file (plain or .gz)")
	cmd.PersistentFlags().String("duckdb", "", "DuckDB database file or s3:// URL")
	cmd.PersistentFlags().String("snapshot", "", "binary snapshot file or s3:// URL")
	cmd.PersistentFlags().Int64("promoter-window", 0, "promoter window in bp (default from config, else 2000)")
	_ = viper.BindPFlag("gtf", cmd.PersistentFlags().Lookup("gtf"))
	_ = viper.BindPFlag("duckdb", cmd.PersistentFlags().Lookup("duckdb"))
	_ = viper.BindPFlag("snapshot", cmd.PersistentFlags().Lookup("snapshot"))
	_ = viper.BindPFlag("promoter_window", cmd.PersistentFlags().Lookup("promoter-window"))

	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newMapCmd())
	cmd.AddCommand(newRegionsCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".genedb")
		}
	}
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("GENEDB")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // absent config file is not an error
}

func initLogger() error {
	cfg := zap.NewProductionConfig()
	if verboseLog {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("genedb: build logger: %w", err)
	}
	logger = l
	return nil
}
