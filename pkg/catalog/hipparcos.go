package catalog

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/astrolab/starsolve/pkg/errors"
)

// Field positions in the pipe-delimited Hipparcos main catalog (ESA 1997,
// CDS I/239). The same layout is shared by the Tycho main file.
const (
	hipFieldID   = 1 // HIP number
	hipFieldVmag = 5 // V magnitude
	hipFieldRA   = 8 // RAdeg (ICRS)
	hipFieldDec  = 9 // DEdeg (ICRS)
	hipMinFields = 10
)

// parseHipparcos reads pipe-delimited hip_main.dat rows. Stars lacking a
// parsable position or magnitude (a handful of rows in the published file)
// are skipped.
func parseHipparcos(r io.Reader, path string) ([]Star, error) {
	return parsePipeDelimited(r, path, "hip_main")
}

func parsePipeDelimited(r io.Reader, path, format string) ([]Star, error) {
	var stars []Star

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Split(scanner.Text(), "|")
		if len(fields) < hipMinFields {
			continue
		}

		ra, err := strconv.ParseFloat(strings.TrimSpace(fields[hipFieldRA]), 64)
		if err != nil {
			continue
		}
		dec, err := strconv.ParseFloat(strings.TrimSpace(fields[hipFieldDec]), 64)
		if err != nil {
			continue
		}
		mag, err := strconv.ParseFloat(strings.TrimSpace(fields[hipFieldVmag]), 64)
		if err != nil {
			continue
		}

		id := lineNo
		if n, err := strconv.Atoi(firstToken(fields[hipFieldID])); err == nil {
			id = n
		}

		stars = append(stars, Star{ID: id, RA: ra, Dec: dec, Mag: mag})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WrapParse(format, path, err)
	}
	if len(stars) == 0 {
		return nil, errors.NewParseError(format, path, "no parsable star rows", nil)
	}

	return stars, nil
}

// firstToken returns the first whitespace-separated token of a field.
// Tycho identifiers are triples like "0001 00008 1"; the leading component
// is enough to keep IDs stable.
func firstToken(field string) string {
	parts := strings.Fields(field)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
