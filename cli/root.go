package cli

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

const configFlag = "config"

func New(cfg *Config) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "sift <command> <subcommand> [flags]",
		Short:         "Filtered, paginated search over records",
		Long:          "Translate flat filter requests into paginated, sorted queries over appointments, tasks and candidates.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Example: heredoc.Doc(`
			$ sift server start
			$ sift server migrate
			$ sift search appointments --filter status=scheduled
			$ sift config init
		`),
		Annotations: map[string]string{
			"group": "core",
			"help:learn": heredoc.Doc(`
				Use 'sift <command> --help' for info about a command.
			`),
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString(configFlag)
			if cfgFile == "" {
				return nil
			}
			return LoadConfigFromFlag(cfgFile, cfg)
		},
	}

	rootCmd.AddCommand(
		serverCmd(cfg),
		configCommand(cfg),
		searchCommand(cfg),
		versionCmd(),
	)

	rootCmd.PersistentFlags().StringP(configFlag, "c", "", "Override config file")

	return rootCmd
}
