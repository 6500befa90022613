// Package presets provides the command that lists the built-in camera/lens
// presets.
package presets

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/astrolab/starsolve/internal/appcontext"
)

// NewCommand creates the presets command using app context.
func NewCommand(appCtx appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in camera/lens presets",
		Long: `Presets lists the parameter bundles shipped with starsolve. Pass one to
generate-db or solve with --preset; explicit flags still win.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := appCtx.Presets()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFOV RANGE\tMAX MAG\tFOV ESTIMATE\tDESCRIPTION")
			for _, p := range set.All() {
				fmt.Fprintf(w, "%s\t%g-%g°\t%g\t%g°\t%s\n",
					p.Name, p.MinFOV, p.MaxFOV, p.MaxMagnitude, p.FOVEstimate, p.Description)
			}
			return w.Flush()
		},
	}
}
