// internal/pool/pool_test.go
package pool

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeLibrary(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeGzipLibrary(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

const library = "id,score\nalpha,1.0\nbeta,2.0\ngamma,3.0\n"

func TestOpenCountsRecords(t *testing.T) {
	p, err := Open(writeLibrary(t, "lib.csv", library))
	require.NoError(t, err)
	require.Equal(t, 3, p.Size())
}

func TestIDsInFileOrder(t *testing.T) {
	p, err := Open(writeLibrary(t, "lib.csv", library))
	require.NoError(t, err)

	got := slices.Collect(p.IDs())
	require.Equal(t, []string{"alpha", "beta", "gamma"}, got)
	require.NoError(t, p.Err())
}

func TestIDsReIterable(t *testing.T) {
	p, err := Open(writeLibrary(t, "lib.csv", library))
	require.NoError(t, err)

	first := slices.Collect(p.IDs())
	second := slices.Collect(p.IDs())
	require.Equal(t, first, second)
}

func TestGzippedLibrary(t *testing.T) {
	p, err := Open(writeGzipLibrary(t, "lib.csv.gz", library))
	require.NoError(t, err)
	require.Equal(t, 3, p.Size())
	require.Equal(t, []string{"alpha", "beta", "gamma"}, slices.Collect(p.IDs()))
}

func TestWithoutHeader(t *testing.T) {
	p, err := Open(writeLibrary(t, "lib.csv", "alpha,1\nbeta,2\n"), WithoutHeader())
	require.NoError(t, err)
	require.Equal(t, 2, p.Size())
}

func TestIDColumnAndDelimiter(t *testing.T) {
	p, err := Open(
		writeLibrary(t, "lib.tsv", "score\tid\n1.0\talpha\n2.0\tbeta\n"),
		WithDelimiter('\t'),
		WithIDColumn(1),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, slices.Collect(p.IDs()))
}

func TestFeaturesAligned(t *testing.T) {
	p, err := Open(writeLibrary(t, "lib.csv", library))
	require.NoError(t, err)

	lengthOf := func(id string) []float64 { return []float64{float64(len(id))} }
	var got []float64
	for f := range p.Features(lengthOf) {
		got = append(got, f[0])
	}
	require.Equal(t, []float64{5, 4, 5}, got)
}

func TestFeatureBatches(t *testing.T) {
	p, err := Open(writeLibrary(t, "lib.csv", library))
	require.NoError(t, err)

	unit := func(id string) []float64 { return []float64{1} }
	var sizes []int
	for b := range p.FeatureBatches(unit, 2) {
		sizes = append(sizes, len(b))
	}
	require.Equal(t, []int{2, 1}, sizes)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestOpenEmptyLibrary(t *testing.T) {
	_, err := Open(writeLibrary(t, "lib.csv", "id,score\n"))
	require.Error(t, err)
}

func TestOpenBadColumn(t *testing.T) {
	_, err := Open(writeLibrary(t, "lib.csv", library), WithIDColumn(5))
	require.Error(t, err)
}
