package catalog

import "io"

// parseTycho reads the pipe-delimited Tycho main file. The published layout
// mirrors the Hipparcos main file for the fields this tool consumes (RAdeg,
// DEdeg, V magnitude), so the loader is shared.
func parseTycho(r io.Reader, path string) ([]Star, error) {
	return parsePipeDelimited(r, path, "tyc_main")
}
