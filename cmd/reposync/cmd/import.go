package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reposync/internal/domain/importer"
)

var resetImport bool

var importCmd = &cobra.Command{
	Use:   "import <owner> [collection...]",
	Short: "Импортировать коллекции владельца",
	Long: `Импортирует записи владельца из удаленного репозитория постранично.
Прерванный импорт продолжается с сохраненного курсора, завершенный
повторно не выполняется без флага --reset.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, collections := args[0], args[1:]
		ctx := cmd.Context()

		if resetImport {
			targets := collections
			if len(targets) == 0 {
				targets = application.Registry.Collections()
			}
			for _, c := range targets {
				if err := application.Importer.Reset(ctx, owner, c); err != nil {
					return fmt.Errorf("ошибка сброса импорта %s: %w", c, err)
				}
			}
		}

		res := application.Importer.ImportUser(ctx, owner, collections...)
		if jsonOutput {
			return printJSON(res)
		}

		printImportResults(res.Collections)
		if !res.Completed {
			return fmt.Errorf("импорт завершен не полностью")
		}
		color.Green("Импорт завершен: синхронизировано %d, пропущено %d, ошибок %d",
			res.Synced, res.Skipped, res.Failed)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <owner>",
	Short: "Состояние импорта и очереди повторов владельца",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := args[0]
		ctx := cmd.Context()

		states, err := application.Importer.Status(ctx, owner)
		if err != nil {
			return fmt.Errorf("ошибка получения состояния импорта: %w", err)
		}
		queued, err := application.Pending.Count(ctx, owner)
		if err != nil {
			return fmt.Errorf("ошибка получения очереди повторов: %w", err)
		}

		if jsonOutput {
			return printJSON(map[string]any{"owner": owner, "imports": states, "pending": queued})
		}

		if len(states) == 0 {
			fmt.Println("Импорт еще не запускался")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Коллекция\tСтатус\tКурсор\tСинхр.\tПропущено\tОшибок\t\n")
			for _, s := range states {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t\n",
					s.Collection, statusColor(s.Status), s.Cursor, s.Synced, s.Skipped, s.Failed)
			}
			w.Flush()
		}
		fmt.Printf("\nОпераций в очереди повторов: %d\n", queued)
		return nil
	},
}

func printImportResults(results []importer.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Коллекция\tСинхр.\tПропущено\tОшибок\tКурсор\tОшибка\t\n")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t\n",
			r.Collection, r.Synced, r.Skipped, r.Failed, r.Cursor, truncate(r.Error, 60))
	}
	w.Flush()
}

func statusColor(s importer.Status) string {
	switch s {
	case importer.StatusCompleted:
		return color.GreenString(string(s))
	case importer.StatusFailed:
		return color.RedString(string(s))
	case importer.StatusInProgress:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

func init() {
	importCmd.Flags().BoolVar(&resetImport, "reset", false, "сбросить состояние и импортировать заново")
}
