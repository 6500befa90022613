package catalog

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrolab/starsolve/pkg/errors"
)

// Representative rows from the published hip_main.dat (CDS I/239).
const hipSample = `H|           1| |00 00 00.22|+01 05 20.4| 9.10| |H|000.00091185|+01.08901332|   3.54|...
H|           2| |00 00 00.91|-19 29 55.8| 9.27| |G|000.00379737|-19.49883745|  21.90|...
H|          88| |00 01 04.60|+08 00 25.1| 8.80| |H|           .|+08.00697150|   2.00|...
H|       92855| |18 55 15.93|-26 17 48.2| 2.05| |H|283.81636072|-26.29672411|  21.41|...`

func TestParseHipparcos(t *testing.T) {
	stars, err := parseHipparcos(strings.NewReader(hipSample), "hip_main.dat")
	require.NoError(t, err)

	// Row with the unparsable RA field must be skipped, not fatal.
	require.Len(t, stars, 3)

	assert.Equal(t, 1, stars[0].ID)
	assert.InDelta(t, 0.00091185, stars[0].RA, 1e-9)
	assert.InDelta(t, 1.08901332, stars[0].Dec, 1e-9)
	assert.InDelta(t, 9.10, stars[0].Mag, 1e-9)

	// Nunki, the brightest star in the sample.
	assert.Equal(t, 92855, stars[2].ID)
	assert.InDelta(t, 2.05, stars[2].Mag, 1e-9)
	assert.InDelta(t, -26.29672411, stars[2].Dec, 1e-9)
}

func TestParseHipparcosEmpty(t *testing.T) {
	_, err := parseHipparcos(strings.NewReader("garbage\nmore garbage\n"), "hip_main.dat")
	require.Error(t, err)

	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseTychoSharedLayout(t *testing.T) {
	line := `T|0001 00008 1| |00 02 01.79|-00 45 13.2| 12.146| |T|000.50745792|-00.75367389|...`
	stars, err := parseTycho(strings.NewReader(line), "tyc_main.dat")
	require.NoError(t, err)
	require.Len(t, stars, 1)

	assert.Equal(t, 1, stars[0].ID)
	assert.InDelta(t, 0.50745792, stars[0].RA, 1e-9)
	assert.InDelta(t, 12.146, stars[0].Mag, 1e-9)
}

// writeBSC5 builds a minimal valid BSC5 byte-format file.
func writeBSC5(t *testing.T, entries []bsc5Entry) *bytes.Reader {
	t.Helper()

	var buf bytes.Buffer
	hdr := bsc5Header{
		Star1: 1,
		StarN: int32(-len(entries)), // negative: J2000
		StNum: 1,
		MProp: 1,
		NMag:  1,
		NBEnt: bsc5EntryBytes,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &hdr))
	for i := range entries {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, &entries[i]))
	}
	return bytes.NewReader(buf.Bytes())
}

func TestParseBSC5(t *testing.T) {
	r := writeBSC5(t, []bsc5Entry{
		{XNO: 1, SRA0: 0.023, SDEC0: 0.789, IS: [2]byte{'A', '1'}, Mag: 646},
		{XNO: 0}, // placeholder record for a deleted star
		{XNO: 2491, SRA0: 1.768, SDEC0: -0.292, IS: [2]byte{'A', '1'}, Mag: -146},
	})

	stars, err := parseBSC5(r, "bsc5.dat")
	require.NoError(t, err)
	require.Len(t, stars, 2)

	assert.Equal(t, 1, stars[0].ID)
	assert.InDelta(t, 0.023*180/math.Pi, stars[0].RA, 1e-9)
	assert.InDelta(t, 6.46, stars[0].Mag, 1e-9)

	// Sirius: HR 2491, magnitude -1.46.
	assert.Equal(t, 2491, stars[1].ID)
	assert.InDelta(t, -1.46, stars[1].Mag, 1e-9)
	assert.InDelta(t, -0.292*180/math.Pi, stars[1].Dec, 1e-9)
}

func TestParseBSC5BadEntrySize(t *testing.T) {
	var buf bytes.Buffer
	hdr := bsc5Header{StarN: 10, NBEnt: 40}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &hdr))

	_, err := parseBSC5(bytes.NewReader(buf.Bytes()), "bsc5.dat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry size")
}

func TestParseName(t *testing.T) {
	for _, valid := range []string{"hip_main", "tyc_main", "bsc5"} {
		name, err := ParseName(valid)
		require.NoError(t, err)
		assert.Equal(t, Name(valid), name)
		assert.NotEmpty(t, name.Filename())
	}

	_, err := ParseName("gaia_dr3")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve(HipMain, t.TempDir())
	require.Error(t, err)

	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "hip_main.dat")
	assert.Contains(t, err.Error(), "cdsarc.cds.unistra.fr")
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hip_main.dat")
	require.NoError(t, os.WriteFile(path, []byte(hipSample), 0o644))

	stars, err := Load(HipMain, dir)
	require.NoError(t, err)
	assert.Len(t, stars, 3)
}
