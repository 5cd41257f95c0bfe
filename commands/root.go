package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var rootCmd = &cobra.Command{
	Use:           "yatube",
	Short:         "Yatube blog server and admin tools",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, groupCmd, cacheCmd)
}

// Execute runs the command line. Without a subcommand the server starts.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		utils.Sugar.Errorf("yatube: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// boot loads configuration, the logger and the database shared by every command.
func boot() (config.AppConfig, *gorm.DB, error) {
	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, err
	}
	db := config.InitDatabase(models.All()...)
	return cfg, db, nil
}
