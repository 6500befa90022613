// Package generatedb provides the command that compiles a raw star catalog
// into a pattern database artifact.
package generatedb

import (
	"github.com/spf13/cobra"

	"github.com/astrolab/starsolve/internal/appcontext"
	"github.com/astrolab/starsolve/pkg/catalog"
	"github.com/astrolab/starsolve/pkg/solver"
)

// Flags holds the generate-db command flags.
type Flags struct {
	Catalog      string
	MinFOV       float64
	MaxFOV       float64
	MaxMagnitude float64
	Output       string
	Preset       string
}

// NewCommand creates the generate-db command using app context.
func NewCommand(appCtx appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:   "generate-db",
		Short: "Compile a raw star catalog into a pattern database",
		Long: `Generate-db reads a raw star catalog (Hipparcos, Tycho or the Yale
Bright Star Catalog) and compiles it into the pattern database the solve
command matches images against.

The FOV range and magnitude limit should fit your camera and lens; a
--preset fills them in for known rigs. The raw catalog file is searched
in --catalog-dir and then the working directory.`,
		Example: `  starsolve generate-db --min-fov 30 --max-fov 36 --star-max-magnitude 7.5
  starsolve generate-db --preset rpi-hq-16mm -o db/rig16.npz
  starsolve generate-db --star-catalog bsc5 --min-fov 20 --max-fov 40`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, appCtx, flags)
		},
	}

	cmd.Flags().StringVar(&flags.Catalog, "star-catalog", "hip_main",
		"raw catalog to compile: hip_main, tyc_main or bsc5")
	cmd.Flags().Float64Var(&flags.MinFOV, "min-fov", 30,
		"minimum field of view in degrees (must be less than --max-fov)")
	cmd.Flags().Float64Var(&flags.MaxFOV, "max-fov", 36,
		"maximum field of view in degrees")
	cmd.Flags().Float64Var(&flags.MaxMagnitude, "star-max-magnitude", 7,
		"dimmest star magnitude to index (larger = deeper and slower)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "stars.npz",
		"output path of the database artifact")
	cmd.Flags().StringVar(&flags.Preset, "preset", "",
		"camera/lens preset supplying defaults for unset flags")

	return cmd
}

func run(cmd *cobra.Command, appCtx appcontext.Interface, flags *Flags) error {
	log := appCtx.Logger()

	if flags.Preset != "" {
		if err := applyPreset(cmd, appCtx, flags); err != nil {
			return err
		}
	}

	name, err := catalog.ParseName(flags.Catalog)
	if err != nil {
		return err
	}

	opts := solver.GenerateOptions{
		MinFOV:       flags.MinFOV,
		MaxFOV:       flags.MaxFOV,
		MaxMagnitude: flags.MaxMagnitude,
		Catalog:      string(name),
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	stars, err := catalog.Load(name, appCtx.CatalogDir())
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	log.Info().
		Str("catalog", string(name)).
		Int("stars", len(stars)).
		Msg("Catalog loaded")

	db, err := solver.Generate(stars, opts)
	if err != nil {
		return err
	}
	log.Info().
		Int("stars", db.Props.NumStars).
		Int("patterns", db.Props.NumPatterns).
		Float64("min_fov", opts.MinFOV).
		Float64("max_fov", opts.MaxFOV).
		Msg("Pattern database generated")

	if err := db.Save(flags.Output); err != nil {
		return err
	}
	log.Info().Str("path", flags.Output).Msg("Database written")

	return nil
}

// applyPreset fills flags the user did not set explicitly from the named
// preset. Explicit flags win.
func applyPreset(cmd *cobra.Command, appCtx appcontext.Interface, flags *Flags) error {
	set, err := appCtx.Presets()
	if err != nil {
		return err
	}
	p, err := set.Get(flags.Preset)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}

	if !cmd.Flags().Changed("min-fov") && p.MinFOV != 0 {
		flags.MinFOV = p.MinFOV
	}
	if !cmd.Flags().Changed("max-fov") && p.MaxFOV != 0 {
		flags.MaxFOV = p.MaxFOV
	}
	if !cmd.Flags().Changed("star-max-magnitude") && p.MaxMagnitude != 0 {
		flags.MaxMagnitude = p.MaxMagnitude
	}
	return nil
}
