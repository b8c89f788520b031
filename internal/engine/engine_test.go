package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/model"
)

// fakeStore implements service.Storage over in-memory maps. GetMapping
// mirrors the real store's exact-then-wildcard lookup.
type fakeStore struct {
	mappings map[string]*model.MappingRecord
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{mappings: make(map[string]*model.MappingRecord)}
}

func mappingKey(cfop, regime string) string { return cfop + "|" + regime }

func (s *fakeStore) GetMapping(_ context.Context, cfop, regime string) (*model.MappingRecord, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	if regime != "" && regime != model.RegimeWildcard {
		if rec, ok := s.mappings[mappingKey(cfop, regime)]; ok {
			return rec, nil
		}
	}
	if rec, ok := s.mappings[mappingKey(cfop, model.RegimeWildcard)]; ok {
		return rec, nil
	}
	return nil, common.ErrMappingNotFound
}

func (s *fakeStore) SaveMapping(_ context.Context, record *model.MappingRecord) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.mappings[mappingKey(record.CFOP, record.Regime)] = record
	return nil
}

func (s *fakeStore) GetAllMappings(_ context.Context) ([]model.MappingRecord, error) {
	var out []model.MappingRecord
	for _, rec := range s.mappings {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) DeleteMapping(_ context.Context, cfop, regime string) error {
	delete(s.mappings, mappingKey(cfop, regime))
	return nil
}

func (s *fakeStore) SaveRun(_ context.Context, _ *model.Run) error          { return nil }
func (s *fakeStore) GetRun(_ context.Context, _ string) (*model.Run, error) { return nil, common.ErrRunNotFound }
func (s *fakeStore) ListRuns(_ context.Context, _ model.RunStatus) ([]model.Run, error) {
	return nil, nil
}
func (s *fakeStore) Migrate(_ context.Context) error { return nil }
func (s *fakeStore) Close() error                    { return nil }

func salePayload(cfop string) *model.Payload {
	return &model.Payload{
		CFOP:          cfop,
		EmitterUF:     "SP",
		DestinationUF: "SP",
		TotalValue:    1500.00,
		Items: []model.LineItem{
			{Description: "Notebook", NCM: "84713012", Value: 1500.00},
		},
	}
}

func TestClassifyMappingHit(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SaveMapping(context.Background(), &model.MappingRecord{
		CFOP:          "5102",
		Regime:        model.RegimeWildcard,
		DebitAccount:  "Clientes",
		CreditAccount: "Receita de Vendas",
		Rationale:     "Venda de mercadoria adquirida de terceiros.",
		Confidence:    0.90,
	}))

	eng := New(store)
	result, err := eng.Classify(context.Background(), salePayload("5102"), "")
	require.NoError(t, err)

	assert.Equal(t, "Clientes", result.DebitAccount)
	assert.Equal(t, "Receita de Vendas", result.CreditAccount)
	assert.Equal(t, 0.90, result.Confidence)
	assert.Equal(t, model.SourceMapping, result.Source)
	assert.False(t, result.NeedsReview)
	assert.Equal(t, model.NatureInternal, result.Nature)
	assert.Contains(t, result.Rationale, "Venda de mercadoria")
	assert.Contains(t, result.Rationale, "1500.00")
}

func TestClassifyMappingHitLowConfidence(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.SaveMapping(context.Background(), &model.MappingRecord{
		CFOP:          "5405",
		Regime:        model.RegimeSimples,
		DebitAccount:  "Clientes",
		CreditAccount: "Receita de Vendas",
		Rationale:     "Venda com substituição tributária.",
		Confidence:    0.60,
	}))

	eng := New(store)
	result, err := eng.Classify(context.Background(), salePayload("5405"), model.RegimeSimples)
	require.NoError(t, err)

	assert.Equal(t, model.SourceMapping, result.Source)
	assert.True(t, result.NeedsReview)
	assert.Contains(t, result.ReviewReason, "below threshold")
}

func TestClassifyExactRegimePreferredOverWildcard(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()
	require.NoError(t, store.SaveMapping(ctx, &model.MappingRecord{
		CFOP: "1102", Regime: model.RegimeWildcard,
		DebitAccount: "Estoques de Mercadorias", CreditAccount: "Fornecedores",
		Rationale: "Compra para revenda.", Confidence: 0.80,
	}))
	require.NoError(t, store.SaveMapping(ctx, &model.MappingRecord{
		CFOP: "1102", Regime: model.RegimeReal,
		DebitAccount: "Estoques de Mercadorias", CreditAccount: "Fornecedores a Pagar",
		Rationale: "Compra para revenda, lucro real.", Confidence: 0.95,
	}))

	eng := New(store)
	result, err := eng.Classify(ctx, salePayload("1102"), model.RegimeReal)
	require.NoError(t, err)

	assert.Equal(t, "Fornecedores a Pagar", result.CreditAccount)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestClassifyFallbackUnknownSaleCFOP(t *testing.T) {
	eng := New(newFakeStore())

	payload := salePayload("6949")
	payload.DestinationUF = "RJ"
	result, err := eng.Classify(context.Background(), payload, "")
	require.NoError(t, err)

	assert.Equal(t, "Clientes", result.DebitAccount)
	assert.Equal(t, "Receita de Vendas", result.CreditAccount)
	assert.InDelta(t, 0.50, result.Confidence, 1e-9)
	assert.Equal(t, model.SourceFallback, result.Source)
	assert.True(t, result.NeedsReview)
	assert.Contains(t, result.ReviewReason, "6949")
	assert.Equal(t, model.NatureInterstate, result.Nature)
}

func TestClassifyFallbackPurchaseWithRegime(t *testing.T) {
	eng := New(newFakeStore())

	result, err := eng.Classify(context.Background(), salePayload("2551"), model.RegimePresumido)
	require.NoError(t, err)

	assert.Equal(t, "Estoques de Mercadorias", result.DebitAccount)
	assert.Equal(t, "Fornecedores", result.CreditAccount)
	assert.InDelta(t, 0.65, result.Confidence, 1e-9)
	assert.True(t, result.NeedsReview)
}

func TestClassifyFallbackUndirectedPrefix(t *testing.T) {
	eng := New(newFakeStore())

	result, err := eng.Classify(context.Background(), salePayload("3551"), "")
	require.NoError(t, err)

	assert.Equal(t, "Conta a Classificar (Débito)", result.DebitAccount)
	assert.Equal(t, "Conta a Classificar (Crédito)", result.CreditAccount)
	assert.InDelta(t, 0.35, result.Confidence, 1e-9)
	assert.True(t, result.NeedsReview)
}

func TestClassifyFallbackCeilingBelowThreshold(t *testing.T) {
	eng := New(newFakeStore())

	// Best possible fallback signals still force review.
	result, err := eng.Classify(context.Background(), salePayload("5102"), model.RegimeSimples)
	require.NoError(t, err)
	assert.Less(t, result.Confidence, DefaultConfidenceThreshold)
	assert.True(t, result.NeedsReview)
}

func TestClassifyStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("disk I/O error")

	eng := New(store)
	_, err := eng.Classify(context.Background(), salePayload("5102"), "")
	require.Error(t, err)

	var storeErr *common.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "lookup", storeErr.Op)
}

func TestFromReview(t *testing.T) {
	eng := New(newFakeStore())

	review := &model.ReviewInput{
		Regime:        model.RegimeReal,
		DebitAccount:  "Clientes",
		CreditAccount: "Receita de Serviços",
		Rationale:     "Prestação de serviço classificada manualmente.",
		Confidence:    0.95,
	}

	result := eng.FromReview(salePayload("6949"), review)

	assert.Equal(t, "Clientes", result.DebitAccount)
	assert.Equal(t, "Receita de Serviços", result.CreditAccount)
	assert.Equal(t, 0.95, result.Confidence)
	assert.False(t, result.NeedsReview)
	assert.Equal(t, model.SourceReview, result.Source)
}
