package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch --remote <service.json5>",
	Short: "Follows the published artifact version and reloads it as other processes fit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if remoteConfigFile == "" {
			return cmd.Usage()
		}
		logger := newLogger()
		wh, err := openWarehouse(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer wh.Close()
		return wh.Run(cmd.Context(), nil)
	},
}
