package catalog

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/astrolab/starsolve/pkg/errors"
)

// bsc5Header is the 28-byte preamble of the BSC5 binary byte format
// (http://tdc-www.harvard.edu/catalogs/bsc5.html). All values little-endian.
type bsc5Header struct {
	Star0 int32 // subtracted from star number to get sequence number
	Star1 int32 // first star number in file
	StarN int32 // number of stars; negative means J2000 coordinates
	StNum int32 // star numbering scheme
	MProp int32 // 1 if proper motion is included
	NMag  int32 // number of magnitudes present
	NBEnt int32 // number of bytes per star entry
}

// bsc5Entry is one 32-byte star record.
type bsc5Entry struct {
	XNO   float32 // catalog (HR) number
	SRA0  float64 // right ascension, radians
	SDEC0 float64 // declination, radians
	IS    [2]byte // spectral type, two chars
	Mag   int16   // V magnitude * 100
	XRPM  float32 // RA proper motion
	XDPM  float32 // Dec proper motion
}

const bsc5EntryBytes = 32

// parseBSC5 reads the binary BSC5 catalog.
func parseBSC5(r io.Reader, path string) ([]Star, error) {
	var hdr bsc5Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.NewParseError("bsc5", path, "short or corrupt header", err)
	}

	n := int(hdr.StarN)
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return nil, errors.NewParseError("bsc5", path, "header reports zero stars", nil)
	}
	if hdr.NBEnt != bsc5EntryBytes {
		return nil, errors.NewParseError("bsc5", path,
			fmt.Sprintf("unexpected entry size %d, want %d", hdr.NBEnt, bsc5EntryBytes), nil)
	}

	stars := make([]Star, 0, n)
	for i := 0; i < n; i++ {
		var e bsc5Entry
		if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, errors.NewParseError("bsc5", path,
				fmt.Sprintf("corrupt entry %d", i), err)
		}

		// Entries with catalog number 0 are placeholders for novae and
		// deleted stars.
		if e.XNO == 0 {
			continue
		}

		stars = append(stars, Star{
			ID:  int(e.XNO),
			RA:  e.SRA0 * 180 / math.Pi,
			Dec: e.SDEC0 * 180 / math.Pi,
			Mag: float64(e.Mag) / 100,
		})
	}
	if len(stars) == 0 {
		return nil, errors.NewParseError("bsc5", path, "no parsable star entries", nil)
	}

	return stars, nil
}
