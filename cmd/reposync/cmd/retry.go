package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reposync/internal/domain/remote"
)

var clearQueue bool

var retryCmd = &cobra.Command{
	Use:   "retry <owner>",
	Short: "Повторить отложенные операции владельца",
	Long: `Повторяет операции из очереди в порядке их появления. Просроченные
и исчерпавшие попытки операции удаляются. При ошибке аутентификации
повтор прекращается: сначала обновите access_token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := args[0]
		ctx := cmd.Context()

		if clearQueue {
			n, err := application.Pending.Clear(ctx, owner)
			if err != nil {
				return fmt.Errorf("ошибка очистки очереди: %w", err)
			}
			color.Yellow("Удалено операций: %d", n)
			return nil
		}

		res, err := application.Pending.RetryForOwner(ctx, owner)
		if err != nil {
			if remote.IsAuth(err) {
				return fmt.Errorf("удаленный репозиторий отклонил токен, обновите access_token: %w", err)
			}
			return fmt.Errorf("ошибка повтора операций: %w", err)
		}

		if jsonOutput {
			return printJSON(res)
		}

		fmt.Printf("Всего: %d, успешно: %s, ошибок: %s, пропущено: %d\n",
			res.Total, color.GreenString("%d", res.Succeeded), color.RedString("%d", res.Failed), res.Skipped)
		for _, e := range res.Errors {
			fmt.Println("  -", e)
		}
		return nil
	},
}

func init() {
	retryCmd.Flags().BoolVar(&clearQueue, "clear", false, "удалить все операции владельца без повтора")
}
