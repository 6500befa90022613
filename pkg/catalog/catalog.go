// Package catalog loads raw astronomical star catalogs into a flat in-memory
// star table. Three vendor formats are supported: the Hipparcos main catalog
// (hip_main.dat), the Tycho main catalog (tyc_main.dat), and the Yale Bright
// Star Catalog in its binary byte format (bsc5.dat).
package catalog

import (
	"os"
	"path/filepath"

	"github.com/astrolab/starsolve/pkg/errors"
)

// Name identifies a supported raw star catalog.
type Name string

// Supported catalogs.
const (
	HipMain Name = "hip_main"
	TycMain Name = "tyc_main"
	BSC5    Name = "bsc5"
)

// Names returns all supported catalog names.
func Names() []Name {
	return []Name{HipMain, TycMain, BSC5}
}

// ParseName validates a catalog name supplied on the command line.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case HipMain, TycMain, BSC5:
		return Name(s), nil
	}
	return "", errors.NewValidationError("star-catalog", s,
		"unsupported catalog, use one of: hip_main, tyc_main, bsc5")
}

// Filename returns the raw catalog file expected on disk.
func (n Name) Filename() string {
	switch n {
	case HipMain:
		return "hip_main.dat"
	case TycMain:
		return "tyc_main.dat"
	case BSC5:
		return "bsc5.dat"
	}
	return ""
}

// downloadHint tells the user where to obtain the raw file.
func (n Name) downloadHint() string {
	switch n {
	case HipMain:
		return "Download HIPPARCOS 'hip_main.dat' from:\n  https://cdsarc.cds.unistra.fr/ftp/cats/I/239/hip_main.dat"
	case BSC5:
		return "Download the BSC5 byte-format file from:\n  http://tdc-www.harvard.edu/catalogs/bsc5.html"
	case TycMain:
		return "Ensure you have the Tycho main file and rename it to 'tyc_main.dat'."
	}
	return ""
}

// Star is one row of the loaded star table. Coordinates are ICRS degrees.
type Star struct {
	ID  int     // catalog identifier (HIP/TYC/HR number)
	RA  float64 // right ascension, degrees
	Dec float64 // declination, degrees
	Mag float64 // visual magnitude (lower = brighter)
}

// Resolve locates the raw catalog file, searching dir (when non-empty) and
// then the current working directory. A missing file yields a NotFoundError
// carrying a download hint.
func Resolve(name Name, dir string) (string, error) {
	var searched []string
	if dir != "" {
		searched = append(searched, filepath.Join(dir, name.Filename()))
	}
	searched = append(searched, name.Filename())

	for _, path := range searched {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	where := dir
	if where == "" {
		where = "."
	}
	return "", errors.NewNotFoundError(
		"catalog file '"+name.Filename()+"'", where, name.downloadHint())
}

// Load reads the named catalog from dir (or the working directory) into a
// star table. Rows with unparsable coordinates are skipped.
func Load(name Name, dir string) ([]Star, error) {
	path, err := Resolve(name, dir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	switch name {
	case HipMain:
		return parseHipparcos(f, path)
	case TycMain:
		return parseTycho(f, path)
	case BSC5:
		return parseBSC5(f, path)
	}
	return nil, errors.NewValidationError("star-catalog", string(name), "unsupported catalog")
}
