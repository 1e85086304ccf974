package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/geo"
	"github.com/spherical-ai/medicine-finder/internal/ranking"
)

type fakeRanker struct {
	got ranking.Request
	res *ranking.RankedResult
	err error
}

func (f *fakeRanker) RankAndRecord(_ context.Context, req ranking.Request) (*ranking.RankedResult, error) {
	f.got = req
	return f.res, f.err
}

func newTestClient(t *testing.T, ranker Ranker) *connect.Client[RankRequest, RankResponse] {
	t.Helper()
	path, handler := NewHandler(NewRankingService(nil, ranker))
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewRankingClient(srv.Client(), srv.URL)
}

func sampleResult() *ranking.RankedResult {
	price := 10.0
	return &ranking.RankedResult{
		RequestID: "req-1",
		Origin:    geo.Point{Lat: 12.9, Lon: 77.6},
		Stores: []ranking.StoreResult{{
			Store:          catalog.Store{ID: "S1", Name: "Apollo"},
			DistanceKm:     1.5,
			TotalRequested: 1,
			Counts:         ranking.Counts{Available: 1},
			TotalPrice:     10,
			Items: []ranking.ResolutionEntry{{
				Requested:   ranking.RequestedMedicine{Name: "Crocin"},
				Status:      ranking.StatusAvailable,
				MatchedItem: &catalog.Item{ID: "M1", Name: "Crocin", Price: 10, Available: true},
				PriceUsed:   &price,
			}},
		}},
	}
}

func TestRank_FullResult(t *testing.T) {
	ranker := &fakeRanker{res: sampleResult()}
	client := newTestClient(t, ranker)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&RankRequest{
		Origin:    geo.Point{Lat: 12.9, Lon: 77.6},
		Medicines: []ranking.RequestedMedicine{{Name: "Crocin"}},
		TopK:      3,
	}))
	require.NoError(t, err)

	assert.Equal(t, 3, ranker.got.TopK)
	assert.Equal(t, "Crocin", ranker.got.Medicines[0].Name)
	require.NotNil(t, resp.Msg.Result)
	assert.Nil(t, resp.Msg.Simplified)
	assert.Equal(t, "req-1", resp.Msg.Result.RequestID)
	assert.Equal(t, "Apollo", resp.Msg.Result.Stores[0].Name)
}

func TestRank_Simplified(t *testing.T) {
	client := newTestClient(t, &fakeRanker{res: sampleResult()})

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&RankRequest{
		Medicines: []ranking.RequestedMedicine{{Name: "Crocin"}},
		Simple:    true,
	}))
	require.NoError(t, err)

	require.NotNil(t, resp.Msg.Simplified)
	assert.Nil(t, resp.Msg.Result)
	assert.Equal(t, []string{"Crocin"}, resp.Msg.Simplified.Stores[0].MedicineStatus.Available)
}

func TestRank_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"invalid request", fmt.Errorf("%w: no medicines requested", ranking.ErrInvalidRequest), connect.CodeInvalidArgument},
		{"missing catalog", fmt.Errorf("open inventory.csv: %w", catalog.ErrNotFound), connect.CodeNotFound},
		{"other", fmt.Errorf("boom"), connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeRanker{err: tt.err})
			_, err := client.CallUnary(context.Background(), connect.NewRequest(&RankRequest{}))
			require.Error(t, err)
			assert.Equal(t, tt.want, connect.CodeOf(err))
		})
	}
}

func TestJSONCodec(t *testing.T) {
	c := JSONCodec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&RankRequest{TopK: 2})
	require.NoError(t, err)

	var back RankRequest
	require.NoError(t, c.Unmarshal(data, &back))
	assert.Equal(t, int32(2), back.TopK)
}
