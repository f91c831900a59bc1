package memory

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-sim-be/pkg/cases"
)

func testCatalog(t *testing.T) *cases.Catalog {
	t.Helper()
	// Build through the loader so the catalog is a real one.
	path := t.TempDir() + "/cases.jsonl"
	content := `{"id":"c1","age":34,"sex":"F","initial_evidence":"E_91","evidences":["E_91","E_53"],"differential":[{"disease":"Influenza","prob":0.55}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	catalog, err := cases.LoadCatalog(path)
	require.NoError(t, err)
	return catalog
}

func newTestRepo(t *testing.T) *SessionRepository {
	return NewSessionRepository(testCatalog(t), time.Hour, 10*time.Minute)
}

func TestStartSeedsInitialEvidence(t *testing.T) {
	repo := newTestRepo(t)

	session := repo.Start("sid-1")
	require.NotNil(t, session.Case)
	assert.Equal(t, []string{"E_91"}, session.RevealedTokens())
	assert.Equal(t, 0, session.Turns())

	got, found := repo.Get("sid-1")
	require.True(t, found)
	assert.Same(t, session, got)
}

func TestGetUnknownSession(t *testing.T) {
	repo := newTestRepo(t)
	_, found := repo.Get("nope")
	assert.False(t, found)
}

func TestRestartDiscardsPriorState(t *testing.T) {
	repo := newTestRepo(t)

	first := repo.Start("sid-1")
	first.Reveal("E_53")
	first.IncrementTurn()
	first.IncrementTurn()

	second := repo.Start("sid-1")
	assert.NotSame(t, first, second)
	assert.Equal(t, 0, second.Turns())
	assert.Equal(t, []string{"E_91"}, second.RevealedTokens())
}

func TestRevealIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	session := repo.Start("sid-1")

	session.Reveal("E_53")
	session.Reveal("E_53")

	assert.Equal(t, []string{"E_53", "E_91"}, session.RevealedTokens())
}

func TestConcurrentMutationNoLostUpdates(t *testing.T) {
	repo := newTestRepo(t)
	session := repo.Start("sid-1")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.IncrementTurn()
			session.Reveal("E_53")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, session.Turns())
	assert.Equal(t, []string{"E_53", "E_91"}, session.RevealedTokens())
}

func TestSessionsExpire(t *testing.T) {
	repo := NewSessionRepository(testCatalog(t), 10*time.Millisecond, time.Millisecond)
	repo.Start("sid-1")

	assert.Eventually(t, func() bool {
		_, found := repo.Get("sid-1")
		return !found
	}, time.Second, 5*time.Millisecond)
}

func TestRevealedSetIsACopy(t *testing.T) {
	repo := newTestRepo(t)
	session := repo.Start("sid-1")

	set := session.RevealedSet()
	set["E_999"] = true

	assert.Equal(t, []string{"E_91"}, session.RevealedTokens())
}
