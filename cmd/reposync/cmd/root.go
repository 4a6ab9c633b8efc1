package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"reposync/internal/app"
	"reposync/internal/config"
	"reposync/internal/utils/logger"
)

var (
	cfgFile    string
	driver     string
	jsonOutput bool

	cfg         *config.Config
	log         *slog.Logger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "reposync",
	Short: "reposync - синхронизация локальной базы с удаленным репозиторием записей",
	Long: `reposync импортирует коллекции владельцев из удаленного репозитория,
публикует локальные изменения, разрешает конфликты и повторяет
операции, которые не удалось выполнить.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Ошибка:"), err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if driver != "" {
		cfg.DB.Driver = driver
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log = logger.NewWithLevel(cfg.Env, cfg.Logger.LogLevel)

	application, err = app.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if application == nil {
		return nil
	}
	return application.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (yaml)")
	rootCmd.PersistentFlags().StringVar(&driver, "storage", "", "драйвер хранилища учета (sqlite, postgres, memory)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")

	rootCmd.AddCommand(serveCmd, importCmd, statusCmd, retryCmd, conflictsCmd)
}
