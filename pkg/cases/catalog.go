package cases

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// DifferentialEntry is one candidate diagnosis with its probability.
// Probabilities need not sum to 1; order carries the tie-break for
// diagnosis credit but is otherwise insignificant.
type DifferentialEntry struct {
	Disease string  `json:"disease"`
	Prob    float64 `json:"prob"`
}

// Case is a fixed clinical vignette. Immutable once loaded; sessions
// borrow pointers into the catalog and never mutate them.
type Case struct {
	Id              string              `json:"id,omitempty"`
	Age             int                 `json:"age"`
	Sex             string              `json:"sex"`
	InitialEvidence string              `json:"initial_evidence"`
	Evidences       []string            `json:"evidences"`
	Differential    []DifferentialEntry `json:"differential"`
}

// Catalog holds the loaded cases and hands out uniformly random picks.
type Catalog struct {
	cases []*Case
}

// LoadCatalog reads a newline-delimited JSON case file (one case object
// per line, blank lines skipped). An empty catalog is an error: the
// simulator cannot start a session without at least one case.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var loaded []*Case
	for i, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var c Case
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("cases: invalid JSON on line %d of %s: %w", i+1, path, err)
		}
		loaded = append(loaded, &c)
	}

	if len(loaded) == 0 {
		return nil, fmt.Errorf("cases: no cases found in %s", path)
	}

	return &Catalog{cases: loaded}, nil
}

// Random returns one case picked uniformly from the catalog.
func (c *Catalog) Random() *Case {
	return c.cases[rand.Intn(len(c.cases))]
}

// Len reports the number of loaded cases.
func (c *Catalog) Len() int {
	return len(c.cases)
}
