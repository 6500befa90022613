package app

import (
	"github.com/spf13/cobra"

	"github.com/astrolab/starsolve/cmd/starsolve/cmd/generatedb"
	presetscmd "github.com/astrolab/starsolve/cmd/starsolve/cmd/presets"
	"github.com/astrolab/starsolve/cmd/starsolve/cmd/solve"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(generatedb.NewCommand(a))
	rootCmd.AddCommand(solve.NewCommand(a))
	rootCmd.AddCommand(presetscmd.NewCommand(a))
	rootCmd.AddCommand(a.createVersionCommand())
}

// createVersionCommand creates the version command.
func (a *App) createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("starsolve %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit: %s\n", a.commit)
				cmd.Printf("  built:  %s\n", a.date)
			}
		},
	}
}
