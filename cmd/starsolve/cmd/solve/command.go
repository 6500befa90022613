// Package solve provides the command that plate-solves images against a
// generated pattern database and logs one CSV row per image.
package solve

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/astrolab/starsolve/internal/appcontext"
	"github.com/astrolab/starsolve/pkg/errors"
	"github.com/astrolab/starsolve/pkg/extract"
	"github.com/astrolab/starsolve/pkg/results"
	"github.com/astrolab/starsolve/pkg/solver"
)

// Flags holds the solve command flags.
type Flags struct {
	Database     string
	FOVEstimate  float64
	FOVMaxError  float64
	MinSum       float64
	MaxAxisRatio float64
	MinDistance  int
	CSV          string
	Preset       string
	Watch        bool
}

// NewCommand creates the solve command using app context.
func NewCommand(appCtx appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:   "solve [images or directories...]",
		Short: "Plate-solve star field images against a pattern database",
		Long: `Solve extracts star centroids from each input image, matches them
against the pattern database, and appends one row per image to the CSV
results log. Unsolvable or unreadable images are recorded as failures
and skipped.

With --watch, solve keeps running after the initial pass and solves new
images as they appear in the input directories.`,
		Example: `  starsolve solve captures/ --fov-estimate 33
  starsolve solve img1.jpg img2.png -d db/rig16.npz --csv night1.csv
  starsolve solve captures/ --preset rpi-hq-16mm --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, appCtx, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.Database, "database", "d", "stars.npz",
		"path to the pattern database artifact")
	cmd.Flags().Float64Var(&flags.FOVEstimate, "fov-estimate", 35,
		"expected horizontal field of view in degrees")
	cmd.Flags().Float64Var(&flags.FOVMaxError, "fov-max-error", 1.5,
		"allowed deviation from the FOV estimate in degrees (0 disables)")
	cmd.Flags().Float64Var(&flags.MinSum, "min-sum", 0,
		"minimum pixel sum for a blob to count as a star")
	cmd.Flags().Float64Var(&flags.MaxAxisRatio, "max-axis-ratio", 0,
		"maximum blob elongation before rejection")
	cmd.Flags().IntVar(&flags.MinDistance, "min-distance", 0,
		"minimum pixel separation between detected stars")
	cmd.Flags().StringVar(&flags.CSV, "csv", "results.csv",
		"output path of the results log")
	cmd.Flags().StringVar(&flags.Preset, "preset", "",
		"camera/lens preset supplying defaults for unset flags")
	cmd.Flags().BoolVar(&flags.Watch, "watch", false,
		"keep running and solve new images as they appear")

	return cmd
}

func run(cmd *cobra.Command, appCtx appcontext.Interface, flags *Flags, args []string) error {
	log := appCtx.Logger()

	if flags.Preset != "" {
		if err := applyPreset(cmd, appCtx, flags); err != nil {
			return err
		}
	}

	eopts := extract.DefaultOptions()
	if flags.MinSum != 0 {
		eopts.MinSum = flags.MinSum
	}
	if flags.MaxAxisRatio != 0 {
		eopts.MaxAxisRatio = flags.MaxAxisRatio
	}
	if flags.MinDistance != 0 {
		eopts.MinDistance = flags.MinDistance
	}

	sopts := solver.SolveOptions{
		FOVEstimate: flags.FOVEstimate,
		FOVMaxError: flags.FOVMaxError,
	}
	if err := sopts.Validate(); err != nil {
		return err
	}

	db, err := solver.Load(flags.Database)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	log.Info().
		Str("path", flags.Database).
		Str("catalog", db.Props.Catalog).
		Int("stars", db.Props.NumStars).
		Int("patterns", db.Props.NumPatterns).
		Msg("Database loaded")

	if sopts.FOVEstimate < db.Props.MinFOV || sopts.FOVEstimate > db.Props.MaxFOV {
		return errors.NewValidationError("fov-estimate", sopts.FOVEstimate,
			fmt.Sprintf("fov-estimate %g is outside the database FOV range [%g, %g]",
				sopts.FOVEstimate, db.Props.MinFOV, db.Props.MaxFOV))
	}

	images, dirs, err := collectImages(args)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	if len(images) == 0 && !flags.Watch {
		return errors.NewValidationError("images", strings.Join(args, ", "),
			"no images found in the given paths")
	}

	w, err := results.NewWriter(flags.CSV)
	if err != nil {
		return err
	}
	defer w.Close()

	runner := &runner{db: db, eopts: eopts, sopts: sopts, writer: w, log: log}
	for _, img := range images {
		runner.solveOne(img)
	}
	log.Info().
		Int("images", len(images)).
		Int("solved", runner.solved).
		Str("csv", flags.CSV).
		Msg("Solve pass complete")

	if flags.Watch {
		if len(dirs) == 0 {
			return errors.NewValidationError("watch", strings.Join(args, ", "),
				"--watch needs at least one directory argument")
		}
		return runner.watch(cmd.Context(), dirs)
	}
	return nil
}

type runner struct {
	db     *solver.Database
	eopts  extract.Options
	sopts  solver.SolveOptions
	writer *results.Writer
	log    *zerolog.Logger
	solved int
}

// solveOne solves a single image and appends its outcome row. Failures are
// logged and recorded, never fatal.
func (r *runner) solveOne(path string) {
	sol, err := r.db.SolveImage(path, r.eopts, r.sopts)
	if err != nil {
		r.log.Warn().Str("image", path).Err(err).Msg("Image not solved")
		if werr := r.writer.Append(results.Failed(path)); werr != nil {
			r.log.Error().Err(werr).Msg("Failed to append results row")
		}
		return
	}

	r.solved++
	r.log.Info().
		Str("image", path).
		Float64("ra", sol.RA).
		Float64("dec", sol.Dec).
		Float64("roll", sol.Roll).
		Float64("fov", sol.FOV).
		Int("matches", sol.Matches).
		Msg("Image solved")
	if err := r.writer.Append(results.Solved(path, sol)); err != nil {
		r.log.Error().Err(err).Msg("Failed to append results row")
	}
}

// imageExtensions are the input formats solve accepts.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".tif": true, ".tiff": true, ".bmp": true,
}

func isImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// collectImages expands the positional arguments into a sorted image list
// and the set of directories among them (for --watch).
func collectImages(args []string) (images, dirs []string, err error) {
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, errors.NewNotFoundError("input path", arg, "")
		}
		if !info.IsDir() {
			images = append(images, arg)
			continue
		}

		dirs = append(dirs, arg)
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, nil, errors.WrapIO("read", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() || !isImage(e.Name()) {
				continue
			}
			images = append(images, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(images)
	return images, dirs, nil
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

	if !cmd.Flags().Changed("fov-estimate") && p.FOVEstimate != 0 {
		flags.FOVEstimate = p.FOVEstimate
	}
	if !cmd.Flags().Changed("fov-max-error") && p.FOVMaxError != 0 {
		flags.FOVMaxError = p.FOVMaxError
	}
	if !cmd.Flags().Changed("min-sum") && p.MinSum != 0 {
		flags.MinSum = p.MinSum
	}
	if !cmd.Flags().Changed("max-axis-ratio") && p.MaxAxisRatio != 0 {
		flags.MaxAxisRatio = p.MaxAxisRatio
	}
	if !cmd.Flags().Changed("min-distance") && p.MinDistance != 0 {
		flags.MinDistance = p.MinDistance
	}
	return nil
}
