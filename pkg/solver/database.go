// Package solver implements the star-pattern engine behind the starsolve
// CLI: it builds a pattern database from a star table and plate-solves
// extracted centroid fields against it. The database artifact is a zip of
// numpy arrays plus a YAML properties entry, so it stays inspectable with
// standard numpy tooling.
package solver

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/sbinet/npyio"

	"github.com/astrolab/starsolve/pkg/errors"
)

// Props records how a database was generated. It travels inside the
// artifact so solve runs can validate and log what they loaded.
type Props struct {
	Catalog      string  `yaml:"catalog"`
	MinFOV       float64 `yaml:"min_fov_deg"`
	MaxFOV       float64 `yaml:"max_fov_deg"`
	MaxMagnitude float64 `yaml:"max_magnitude"`
	PatternSize  int     `yaml:"pattern_size"`
	HashBins     int     `yaml:"hash_bins"`
	NumStars     int     `yaml:"num_stars"`
	NumPatterns  int     `yaml:"num_patterns"`
	GeneratedAt  string  `yaml:"generated_at"`
}

// Database is the in-memory form of a generated pattern database. Star
// arrays are in brightness order, brightest first.
type Database struct {
	Props    Props
	Vectors  [][3]float64 // unit vectors on the celestial sphere
	Mags     []float64
	IDs      []int64
	Patterns map[uint64][]Quad
}

// Artifact entry names inside the zip bundle.
const (
	entryProps    = "props.yaml"
	entryVectors  = "vectors.npy"
	entryMags     = "mags.npy"
	entryIDs      = "ids.npy"
	entryPatterns = "patterns.npy"
)

// patternRow is the flattened on-disk width of one pattern: hash key plus
// four star indices.
const patternRow = 1 + patternSize

// Save writes the database as a compressed array bundle, creating parent
// directories as needed.
func (db *Database) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	props, err := yaml.Marshal(db.Props)
	if err != nil {
		return errors.WrapParse("yaml", entryProps, err)
	}
	if err := writeZipEntry(zw, entryProps, func(w io.Writer) error {
		_, werr := w.Write(props)
		return werr
	}); err != nil {
		return err
	}

	vectors := make([]float64, 0, 3*len(db.Vectors))
	for _, v := range db.Vectors {
		vectors = append(vectors, v[0], v[1], v[2])
	}

	patterns := make([]int64, 0, patternRow*db.Props.NumPatterns)
	keys := make([]uint64, 0, len(db.Patterns))
	for key := range db.Patterns {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		for _, q := range db.Patterns[key] {
			patterns = append(patterns, int64(key),
				int64(q[0]), int64(q[1]), int64(q[2]), int64(q[3]))
		}
	}

	arrays := []struct {
		name string
		data interface{}
	}{
		{entryVectors, vectors},
		{entryMags, db.Mags},
		{entryIDs, db.IDs},
		{entryPatterns, patterns},
	}
	for _, a := range arrays {
		if err := writeZipEntry(zw, a.name, func(w io.Writer) error {
			return npyio.Write(w, a.data)
		}); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, write func(io.Writer) error) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.WrapIO("create", name, err)
	}
	if err := write(w); err != nil {
		return errors.WrapIO("write", name, err)
	}
	return nil
}

// Load reads a database artifact produced by Save.
func Load(path string) (*Database, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NewNotFoundError("database file", path,
			"Generate it first with the 'generate-db' command.")
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.NewParseError("npz", path, "not a valid database bundle", err)
	}
	defer zr.Close()

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}
	for _, name := range []string{entryProps, entryVectors, entryMags, entryIDs, entryPatterns} {
		if _, ok := entries[name]; !ok {
			return nil, errors.NewParseError("npz", path,
				fmt.Sprintf("missing %s entry", name), nil)
		}
	}

	db := &Database{Patterns: make(map[uint64][]Quad)}

	raw, err := readZipEntry(entries[entryProps])
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &db.Props); err != nil {
		return nil, errors.WrapParse("yaml", entryProps, err)
	}

	var vectors []float64
	if err := readNpy(entries[entryVectors], &vectors); err != nil {
		return nil, err
	}
	if len(vectors)%3 != 0 {
		return nil, errors.NewParseError("npz", path, "vector array not divisible by 3", nil)
	}
	db.Vectors = make([][3]float64, len(vectors)/3)
	for i := range db.Vectors {
		db.Vectors[i] = [3]float64{vectors[3*i], vectors[3*i+1], vectors[3*i+2]}
	}

	if err := readNpy(entries[entryMags], &db.Mags); err != nil {
		return nil, err
	}
	if err := readNpy(entries[entryIDs], &db.IDs); err != nil {
		return nil, err
	}

	var patterns []int64
	if err := readNpy(entries[entryPatterns], &patterns); err != nil {
		return nil, err
	}
	if len(patterns)%patternRow != 0 {
		return nil, errors.NewParseError("npz", path, "pattern array has a partial row", nil)
	}
	for i := 0; i < len(patterns); i += patternRow {
		key := uint64(patterns[i])
		q := Quad{
			int32(patterns[i+1]), int32(patterns[i+2]),
			int32(patterns[i+3]), int32(patterns[i+4]),
		}
		db.Patterns[key] = append(db.Patterns[key], q)
	}

	if len(db.Vectors) != len(db.Mags) || len(db.Vectors) != len(db.IDs) {
		return nil, errors.NewParseError("npz", path, "star arrays disagree on length", nil)
	}

	return db, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, errors.WrapIO("open", f.Name, err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", f.Name, err)
	}
	return raw, nil
}

func readNpy(f *zip.File, ptr interface{}) error {
	r, err := f.Open()
	if err != nil {
		return errors.WrapIO("open", f.Name, err)
	}
	defer r.Close()
	if err := npyio.Read(r, ptr); err != nil {
		return errors.WrapParse("npy", f.Name, err)
	}
	return nil
}
