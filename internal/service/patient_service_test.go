package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patient-sim-be/internal/dto"
	"patient-sim-be/internal/repository/memory"
	"patient-sim-be/pkg/cases"
	"patient-sim-be/pkg/codebook"
	"patient-sim-be/pkg/events"
	"patient-sim-be/pkg/nlu"
)

// --- Stubs ---

type stubResolver struct {
	result *nlu.Result
}

func (s *stubResolver) Resolve(ctx context.Context, text string) *nlu.Result {
	return s.result
}

type stubGenerator struct {
	answer string

	// captured from the last Answer call
	lastHead    string
	lastPresent bool
}

func (s *stubGenerator) Answer(ctx context.Context, question, head string, present bool, caseEvidences []string, decode func(string) string) string {
	s.lastHead = head
	s.lastPresent = present
	return s.answer
}

type capturePublisher struct {
	published []events.Event
	err       error
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *capturePublisher) lastType() string {
	if len(p.published) == 0 {
		return ""
	}
	return p.published[len(p.published)-1].EventType()
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// --- Fixtures ---

const fixtureEvidences = `[
	{"code_evidence":"E_91","data_type":"B","question_en":"Do you have a fever?"},
	{"code_evidence":"E_53","data_type":"B","question_en":"Do you have a cough?"},
	{"code_evidence":"E_55","data_type":"C","question_en":"Where is the pain?","possible-values":[{"code_value":"V_167","value_en":"temple (L)"}]}
]`

// One case only, so the random pick is deterministic.
const fixtureCase = `{"id":"case-1","age":34,"sex":"F","initial_evidence":"E_91","evidences":["E_91","E_53","E_55_@_V_167"],"differential":[{"disease":"URTI","prob":0.7},{"disease":"Influenza","prob":0.3}]}`

func testFixtures(t *testing.T) (*codebook.Codebook, *memory.SessionRepository) {
	t.Helper()
	dir := t.TempDir()

	ePath := filepath.Join(dir, "evidences.json")
	require.NoError(t, os.WriteFile(ePath, []byte(fixtureEvidences), 0o644))
	cPath := filepath.Join(dir, "conditions.json")
	require.NoError(t, os.WriteFile(cPath, []byte(`[]`), 0o644))
	casePath := filepath.Join(dir, "cases.jsonl")
	require.NoError(t, os.WriteFile(casePath, []byte(fixtureCase), 0o644))

	cb, err := codebook.Load(ePath, cPath)
	require.NoError(t, err)

	catalog, err := cases.LoadCatalog(casePath)
	require.NoError(t, err)

	return cb, memory.NewSessionRepository(catalog, time.Hour, time.Hour)
}

func newPatientService(t *testing.T, resolver nlu.Resolver) (IPatientService, *memory.SessionRepository, *stubGenerator, *capturePublisher) {
	t.Helper()
	cb, repo := testFixtures(t)
	gen := &stubGenerator{answer: "Yes, I do."}
	pub := &capturePublisher{}
	svc := NewPatientService(cb, repo, resolver, gen, pub, nopLogger{})
	return svc, repo, gen, pub
}

// --- Tests ---

func TestStartSession(t *testing.T) {
	svc, _, _, pub := newPatientService(t, &stubResolver{})

	resp, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 34, resp.Age)
	assert.Equal(t, "F", resp.Sex)
	assert.Equal(t, "case-1", resp.CaseId)
	assert.Equal(t, "Do you have a fever?", resp.InitialEvidence)
	assert.Equal(t, events.TypeSessionStarted, pub.lastType())
}

func TestStartSessionRestartDiscardsState(t *testing.T) {
	svc, repo, _, _ := newPatientService(t, &stubResolver{result: &nlu.Result{Feature: "E_53"}})

	_, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)
	_, err = svc.Ask(context.Background(), &dto.AskRequest{SessionId: "s1", Text: "do you cough?"})
	require.NoError(t, err)

	_, err = svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	session, found := repo.Get("s1")
	require.True(t, found)
	assert.Equal(t, 0, session.Turns())
	assert.Equal(t, []string{"E_91"}, session.RevealedTokens())
}

func TestAskUnknownSession(t *testing.T) {
	svc, _, _, _ := newPatientService(t, &stubResolver{result: &nlu.Result{Feature: "E_53"}})

	_, err := svc.Ask(context.Background(), &dto.AskRequest{SessionId: "nope", Text: "hi"})
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestAskRevealsPresentEvidence(t *testing.T) {
	svc, _, gen, pub := newPatientService(t, &stubResolver{result: &nlu.Result{Feature: "E_53"}})

	_, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	resp, err := svc.Ask(context.Background(), &dto.AskRequest{SessionId: "s1", Text: "do you have a cough?"})
	require.NoError(t, err)

	assert.Equal(t, "Yes, I do.", resp.Answer)
	assert.Equal(t, []string{"E_53", "E_91"}, resp.Revealed)
	assert.Equal(t, []string{"Do you have a cough?", "Do you have a fever?"}, resp.Decoded)
	assert.True(t, gen.lastPresent)
	assert.Equal(t, events.TypeQuestionAsked, pub.lastType())
}

func TestAskAbsentEvidence(t *testing.T) {
	svc, _, gen, _ := newPatientService(t, &stubResolver{result: &nlu.Result{Feature: "E_201"}})

	_, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	resp, err := svc.Ask(context.Background(), &dto.AskRequest{SessionId: "s1", Text: "is your nose running?"})
	require.NoError(t, err)

	// Only the seeded initial evidence remains revealed.
	assert.Equal(t, []string{"E_91"}, resp.Revealed)
	assert.False(t, gen.lastPresent)
}

func TestAskCategoricalMatchesByHead(t *testing.T) {
	svc, _, gen, _ := newPatientService(t, &stubResolver{result: &nlu.Result{Feature: "E_55", Value: "V_167"}})

	_, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	resp, err := svc.Ask(context.Background(), &dto.AskRequest{SessionId: "s1", Text: "where does it hurt?"})
	require.NoError(t, err)

	assert.Contains(t, resp.Revealed, "E_55_@_V_167")
	assert.Contains(t, resp.Decoded, "Where is the pain? → temple (L)")
	assert.True(t, gen.lastPresent)
}

func TestAskPainAnyRevealsAllPainTokens(t *testing.T) {
	svc, repo, gen, _ := newPatientService(t, &stubResolver{result: &nlu.Result{Feature: nlu.FeaturePainAny}})

	_, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	resp, err := svc.Ask(context.Background(), &dto.AskRequest{SessionId: "s1", Text: "any pain?"})
	require.NoError(t, err)

	assert.Contains(t, resp.Revealed, "E_55_@_V_167")
	assert.True(t, gen.lastPresent)

	session, _ := repo.Get("s1")
	assert.Equal(t, 1, session.Turns())
}

func TestAskCountsTurnEvenWhenAbsent(t *testing.T) {
	svc, repo, _, _ := newPatientService(t, &stubResolver{result: &nlu.Result{Feature: nlu.FeatureUnknown}})

	_, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Ask(context.Background(), &dto.AskRequest{SessionId: "s1", Text: "what is the meaning of life?"})
		require.NoError(t, err)
	}

	session, _ := repo.Get("s1")
	assert.Equal(t, 3, session.Turns())
}

func TestAskPublishFailureDoesNotFailRequest(t *testing.T) {
	cb, repo := testFixtures(t)
	pub := &capturePublisher{err: errors.New("bus down")}
	svc := NewPatientService(cb, repo, &stubResolver{result: &nlu.Result{Feature: "E_53"}}, &stubGenerator{answer: "Yes."}, pub, nopLogger{})

	_, err := svc.StartSession(context.Background(), &dto.StartSessionRequest{SessionId: "s1"})
	require.NoError(t, err)

	resp, err := svc.Ask(context.Background(), &dto.AskRequest{SessionId: "s1", Text: "cough?"})
	require.NoError(t, err)
	assert.Equal(t, "Yes.", resp.Answer)
}
