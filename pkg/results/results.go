// Package results appends plate-solve outcomes to a CSV log, one row per
// image, failures included. The log is append-friendly so repeated runs
// against the same file accumulate.
package results

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/agentstation/utc"

	"github.com/astrolab/starsolve/pkg/errors"
	"github.com/astrolab/starsolve/pkg/solver"
)

// header is the fixed CSV column set.
var header = []string{
	"image", "success",
	"ra_deg", "dec_deg", "roll_deg", "fov_deg", "rmse_arcsec", "matches",
	"solved_at",
}

// Row is one solve outcome. Numeric fields are only meaningful when Success
// is true; failed rows serialize them as empty cells.
type Row struct {
	Image    string
	Success  bool
	Solution *solver.Solution
	SolvedAt utc.Time
}

// Solved builds a success row for an image.
func Solved(image string, sol *solver.Solution) Row {
	return Row{Image: image, Success: true, Solution: sol, SolvedAt: utc.Now()}
}

// Failed builds a failure row for an image.
func Failed(image string) Row {
	return Row{Image: image, Success: false, SolvedAt: utc.Now()}
}

// Writer appends rows to a CSV results file.
type Writer struct {
	f  *os.File
	cw *csv.Writer
}

// NewWriter opens (or creates) the results file at path, creating parent
// directories as needed. The header is written only when the file is new or
// empty.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapIO("create", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	w := &Writer{f: f, cw: csv.NewWriter(f)}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.WrapIO("stat", path, err)
	}
	if info.Size() == 0 {
		if err := w.cw.Write(header); err != nil {
			f.Close()
			return nil, errors.WrapIO("write", path, err)
		}
	}
	return w, nil
}

// Append writes one row and flushes it, so partial runs still leave a
// complete log.
func (w *Writer) Append(r Row) error {
	rec := make([]string, 0, len(header))
	rec = append(rec, r.Image, strconv.FormatBool(r.Success))

	if r.Success && r.Solution != nil {
		s := r.Solution
		rec = append(rec,
			formatFloat(s.RA), formatFloat(s.Dec), formatFloat(s.Roll),
			formatFloat(s.FOV), formatFloat(s.RMSEArcsec),
			strconv.Itoa(s.Matches),
		)
	} else {
		rec = append(rec, "", "", "", "", "", "")
	}

	at := r.SolvedAt
	if at.IsZero() {
		at = utc.Now()
	}
	rec = append(rec, at.Format(time.RFC3339))

	if err := w.cw.Write(rec); err != nil {
		return errors.WrapIO("write", w.f.Name(), err)
	}
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return errors.WrapIO("write", w.f.Name(), err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		w.f.Close()
		return errors.WrapIO("write", w.f.Name(), err)
	}
	if err := w.f.Close(); err != nil {
		return errors.WrapIO("close", w.f.Name(), err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
