package cases

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCases = `{"id":"c1","age":34,"sex":"F","initial_evidence":"E_91","evidences":["E_91","E_53"],"differential":[{"disease":"Influenza","prob":0.55},{"disease":"Common cold","prob":0.3}]}

{"id":"c2","age":61,"sex":"M","initial_evidence":"E_53","evidences":["E_53","E_56_@_5"],"differential":[{"disease":"Bronchitis","prob":0.4}]}`

func writeCases(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeCases(t, sampleCases))
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	first := catalog.cases[0]
	assert.Equal(t, "c1", first.Id)
	assert.Equal(t, 34, first.Age)
	assert.Equal(t, "F", first.Sex)
	assert.Equal(t, "E_91", first.InitialEvidence)
	assert.Equal(t, []string{"E_91", "E_53"}, first.Evidences)
	require.Len(t, first.Differential, 2)
	assert.Equal(t, "Influenza", first.Differential[0].Disease)
	assert.InDelta(t, 0.55, first.Differential[0].Prob, 1e-9)
}

func TestLoadCatalogIdOptional(t *testing.T) {
	catalog, err := LoadCatalog(writeCases(t,
		`{"age":20,"sex":"M","initial_evidence":"E_91","evidences":["E_91"],"differential":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "", catalog.cases[0].Id)
}

func TestLoadCatalogEmpty(t *testing.T) {
	_, err := LoadCatalog(writeCases(t, "\n\n"))
	assert.Error(t, err)
}

func TestLoadCatalogBadLine(t *testing.T) {
	_, err := LoadCatalog(writeCases(t, `{"age":20`))
	assert.Error(t, err)
}

func TestRandomStaysInCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeCases(t, sampleCases))
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c := catalog.Random()
		require.NotNil(t, c)
		seen[c.Id] = true
		assert.Contains(t, []string{"c1", "c2"}, c.Id)
	}
	// 50 uniform draws over two cases miss one side with probability 2^-49.
	assert.Len(t, seen, 2)
}
