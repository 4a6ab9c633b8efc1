package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reposync/internal/domain/conflict"
)

var conflictStatus string

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Отложенные конфликты",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список конфликтов",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := application.Conflicts.List(cmd.Context(), conflict.Status(conflictStatus))
		if err != nil {
			return fmt.Errorf("ошибка получения конфликтов: %w", err)
		}

		if jsonOutput {
			return printJSON(items)
		}
		if len(items) == 0 {
			fmt.Println("Конфликты не найдены")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tСтатус\tURI\tСоздан\t\n")
		for _, c := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				c.ID, c.Status, truncate(c.URI, 70), c.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		return nil
	},
}

var conflictsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Конфликт со снимками обеих сторон",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, err := application.Conflicts.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка получения конфликта: %w", err)
		}
		return printJSON(pc)
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:       "resolve <id> <local|remote>",
	Short:     "Разрешить конфликт в пользу одной из сторон",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"local", "remote"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			pc  *conflict.PendingConflict
			err error
		)
		switch conflict.Side(args[1]) {
		case conflict.SideLocal:
			pc, err = application.Conflicts.ResolveWithLocal(cmd.Context(), args[0])
		case conflict.SideRemote:
			pc, err = application.Conflicts.ResolveWithRemote(cmd.Context(), args[0])
		default:
			return fmt.Errorf("сторона должна быть local или remote, получено %q", args[1])
		}
		if err != nil {
			return fmt.Errorf("ошибка разрешения конфликта: %w", err)
		}

		color.Green("Конфликт %s разрешен: %s", pc.ID, pc.Resolution)
		return nil
	},
}

var conflictsDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Закрыть конфликт без изменений",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, err := application.Conflicts.Dismiss(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ошибка закрытия конфликта: %w", err)
		}

		color.Yellow("Конфликт %s закрыт", pc.ID)
		return nil
	},
}

func init() {
	conflictsListCmd.Flags().StringVarP(&conflictStatus, "status", "s", string(conflict.StatusPending),
		"фильтр по статусу (pending, resolved, dismissed), пустой для всех")

	conflictsCmd.AddCommand(conflictsListCmd, conflictsShowCmd, conflictsResolveCmd, conflictsDismissCmd)
}
