package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/engine"
	"github.com/notaflow/notaflow/internal/model"
	"github.com/notaflow/notaflow/internal/service"
)

// memStore is an in-memory service.Storage for workflow tests.
type memStore struct {
	mappings        map[string]*model.MappingRecord
	runs            map[string]*model.Run
	failSaveMapping error
}

func newMemStore() *memStore {
	return &memStore{
		mappings: make(map[string]*model.MappingRecord),
		runs:     make(map[string]*model.Run),
	}
}

func key(cfop, regime string) string { return cfop + "|" + regime }

func (s *memStore) GetMapping(_ context.Context, cfop, regime string) (*model.MappingRecord, error) {
	if regime != "" && regime != model.RegimeWildcard {
		if rec, ok := s.mappings[key(cfop, regime)]; ok {
			return rec, nil
		}
	}
	if rec, ok := s.mappings[key(cfop, model.RegimeWildcard)]; ok {
		return rec, nil
	}
	return nil, common.ErrMappingNotFound
}

func (s *memStore) SaveMapping(_ context.Context, record *model.MappingRecord) error {
	if s.failSaveMapping != nil {
		return s.failSaveMapping
	}
	s.mappings[key(record.CFOP, record.Regime)] = record
	return nil
}

func (s *memStore) GetAllMappings(_ context.Context) ([]model.MappingRecord, error) {
	var out []model.MappingRecord
	for _, rec := range s.mappings {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *memStore) DeleteMapping(_ context.Context, cfop, regime string) error {
	delete(s.mappings, key(cfop, regime))
	return nil
}

func (s *memStore) SaveRun(_ context.Context, run *model.Run) error {
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *memStore) GetRun(_ context.Context, id string) (*model.Run, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, common.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (s *memStore) ListRuns(_ context.Context, status model.RunStatus) ([]model.Run, error) {
	var out []model.Run
	for _, run := range s.runs {
		if status == "" || run.Status == status {
			out = append(out, *run)
		}
	}
	return out, nil
}

func (s *memStore) Migrate(_ context.Context) error { return nil }
func (s *memStore) Close() error                    { return nil }

// stubExtractor returns a canned candidate or error regardless of path.
type stubExtractor struct {
	candidate *model.PayloadCandidate
	err       error
}

func (e *stubExtractor) Extract(_ context.Context, _ string) (*model.PayloadCandidate, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.candidate, nil
}

func newWorkflow(store *memStore, extractor service.Extractor) *Workflow {
	return New(store, map[model.DocumentKind]service.Extractor{
		model.KindXML: extractor,
	}, engine.New(store))
}

func saleCandidate(cfop string) *model.PayloadCandidate {
	return &model.PayloadCandidate{
		CFOP:          cfop,
		EmitterUF:     "SP",
		DestinationUF: "RJ",
		TotalValue:    1500.00,
		Items: []model.LineItemCandidate{
			{Description: "Notebook", NCM: "84713012", Value: 1500.00},
		},
	}
}

func TestRunAutoFinalize(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.SaveMapping(ctx, &model.MappingRecord{
		CFOP: "5102", Regime: model.RegimeWildcard,
		DebitAccount: "Clientes", CreditAccount: "Receita de Vendas",
		Rationale: "Venda de mercadoria.", Confidence: 0.90,
	}))

	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("5102")})
	run, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)

	assert.Equal(t, model.StatusFinalized, run.Status)
	assert.Equal(t, "Clientes", run.Result.DebitAccount)
	assert.False(t, run.Result.NeedsReview)

	artifact := ArtifactFor(run)
	assert.True(t, artifact.Success)
	assert.Equal(t, ExitSuccess, artifact.ExitCode())

	// Persisted state matches.
	stored, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinalized, stored.Status)
}

func TestRunSuspendsOnUnmappedCFOP(t *testing.T) {
	store := newMemStore()
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("6949")})

	run, err := wf.Run(context.Background(), "nota.xml", model.KindXML, "")
	require.NoError(t, err)

	assert.Equal(t, model.StatusAwaitingReview, run.Status)
	assert.InDelta(t, 0.50, run.Result.Confidence, 1e-9)
	assert.Equal(t, model.SourceFallback, run.Result.Source)
	assert.NotEmpty(t, run.ReviewReason)

	artifact := ArtifactFor(run)
	assert.False(t, artifact.Success)
	assert.True(t, artifact.NeedsReview)
	assert.Equal(t, ExitPendingReview, artifact.ExitCode())
}

func TestRunIsIdempotentWithoutStoreMutation(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.SaveMapping(ctx, &model.MappingRecord{
		CFOP: "5102", Regime: model.RegimeWildcard,
		DebitAccount: "Clientes", CreditAccount: "Receita de Vendas",
		Rationale: "Venda de mercadoria.", Confidence: 0.90,
	}))
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("5102")})

	first, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)
	second, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)

	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, first.Status, second.Status)
}

func TestResumeLearnsAndFinalizes(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("6949")})

	run, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusAwaitingReview, run.Status)

	resumed, err := wf.Resume(ctx, run.ID, &model.ReviewInput{
		Regime:        model.RegimeReal,
		DebitAccount:  "Clientes",
		CreditAccount: "Receita de Serviços",
		Rationale:     "Outra saída classificada como serviço.",
		Confidence:    0.95,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFinalized, resumed.Status)
	assert.Equal(t, model.SourceReview, resumed.Result.Source)
	assert.False(t, resumed.Result.NeedsReview)
	assert.Equal(t, 0.95, resumed.Result.Confidence)

	// The decision is now learned: an identical document auto-finalizes.
	run2, err := wf.Run(ctx, "nota2.xml", model.KindXML, model.RegimeReal)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinalized, run2.Status)
	assert.Equal(t, model.SourceMapping, run2.Result.Source)
	assert.Equal(t, "Receita de Serviços", run2.Result.CreditAccount)
}

func TestResumeSentinelRegimeStoredAsWildcard(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("6949")})

	run, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)

	_, err = wf.Resume(ctx, run.ID, &model.ReviewInput{
		Regime:        model.RegimeIndeterminate,
		DebitAccount:  "Clientes",
		CreditAccount: "Receita de Vendas",
		Rationale:     "Saída genérica.",
		Confidence:    0.85,
	})
	require.NoError(t, err)

	rec, err := store.GetMapping(ctx, "6949", "")
	require.NoError(t, err)
	assert.Equal(t, model.RegimeWildcard, rec.Regime)
}

func TestResumeMalformedInputKeepsRunSuspended(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("6949")})

	run, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)

	_, err = wf.Resume(ctx, run.ID, &model.ReviewInput{
		DebitAccount: "", CreditAccount: "", Rationale: "", Confidence: 1.5,
	})
	require.Error(t, err)

	var reviewErr *common.ReviewInputError
	require.ErrorAs(t, err, &reviewErr)
	assert.Len(t, reviewErr.Fields, 4)

	// The failed attempt must not consume the run.
	stored, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingReview, stored.Status)

	// A well-formed retry succeeds.
	resumed, err := wf.Resume(ctx, run.ID, &model.ReviewInput{
		DebitAccount:  "Clientes",
		CreditAccount: "Receita de Vendas",
		Rationale:     "Corrigido.",
		Confidence:    0.80,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinalized, resumed.Status)
}

func TestResumeStoreFailureDoesNotFinalize(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("6949")})

	run, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)

	store.failSaveMapping = errors.New("database is locked")
	_, err = wf.Resume(ctx, run.ID, &model.ReviewInput{
		DebitAccount:  "Clientes",
		CreditAccount: "Receita de Vendas",
		Rationale:     "Saída.",
		Confidence:    0.90,
	})
	require.Error(t, err)

	var storeErr *common.StoreError
	require.ErrorAs(t, err, &storeErr)

	stored, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingReview, stored.Status)
}

func TestResumeRejectsNonSuspendedRun(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.SaveMapping(ctx, &model.MappingRecord{
		CFOP: "5102", Regime: model.RegimeWildcard,
		DebitAccount: "Clientes", CreditAccount: "Receita de Vendas",
		Rationale: "Venda.", Confidence: 0.90,
	}))
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("5102")})

	run, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusFinalized, run.Status)

	_, err = wf.Resume(ctx, run.ID, &model.ReviewInput{
		DebitAccount: "Clientes", CreditAccount: "Receita de Vendas",
		Rationale: "Tarde demais.", Confidence: 0.9,
	})
	assert.ErrorIs(t, err, common.ErrRunNotResumable)
}

func TestResumeUnknownRun(t *testing.T) {
	wf := newWorkflow(newMemStore(), &stubExtractor{candidate: saleCandidate("6949")})

	_, err := wf.Resume(context.Background(), "no-such-run", &model.ReviewInput{
		DebitAccount: "a", CreditAccount: "b", Rationale: "c", Confidence: 0.5,
	})
	assert.ErrorIs(t, err, common.ErrRunNotFound)
}

func TestRunFailsOnValidationError(t *testing.T) {
	candidate := saleCandidate("5102")
	candidate.DestinationUF = "" // missing jurisdiction
	store := newMemStore()
	wf := newWorkflow(store, &stubExtractor{candidate: candidate})

	run, err := wf.Run(context.Background(), "nota.xml", model.KindXML, "")
	require.Error(t, err)

	var valErr *common.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "destination_uf: required")

	assert.Equal(t, model.StatusFailed, run.Status)
	artifact := ArtifactFor(run)
	assert.Equal(t, ExitFailure, artifact.ExitCode())
	assert.NotEmpty(t, artifact.Error)
}

func TestRunFailsOnExtractionError(t *testing.T) {
	store := newMemStore()
	wf := newWorkflow(store, &stubExtractor{
		err: common.NewExtractionError("nota.xml", errors.New("no infNFe node")),
	})

	run, err := wf.Run(context.Background(), "nota.xml", model.KindXML, "")
	require.Error(t, err)

	var extErr *common.ExtractionError
	assert.ErrorAs(t, err, &extErr)
	assert.Equal(t, model.StatusFailed, run.Status)
}

func TestAuditTrailIsForwardOnly(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	wf := newWorkflow(store, &stubExtractor{candidate: saleCandidate("6949")})

	run, err := wf.Run(ctx, "nota.xml", model.KindXML, "")
	require.NoError(t, err)
	resumed, err := wf.Resume(ctx, run.ID, &model.ReviewInput{
		DebitAccount: "Clientes", CreditAccount: "Receita de Vendas",
		Rationale: "Saída.", Confidence: 0.9,
	})
	require.NoError(t, err)

	seen := map[model.RunStatus]bool{}
	for _, tr := range resumed.Audit {
		assert.False(t, seen[tr.To], "state %s re-entered", tr.To)
		seen[tr.To] = true
	}
	last := resumed.Audit[len(resumed.Audit)-1]
	assert.Equal(t, model.StatusFinalized, last.To)
}
