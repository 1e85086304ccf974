// Package rpc provides the Connect service for store ranking.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/geo"
	"github.com/spherical-ai/medicine-finder/internal/observability"
	"github.com/spherical-ai/medicine-finder/internal/ranking"
)

const (
	// RankingServiceName is the fully-qualified service name.
	RankingServiceName = "medfinder.v1.RankingService"
	// RankProcedure is the full path of the Rank procedure.
	RankProcedure = "/" + RankingServiceName + "/Rank"
)

// Ranker is the part of ranking.Session the service needs.
type Ranker interface {
	RankAndRecord(ctx context.Context, req ranking.Request) (*ranking.RankedResult, error)
}

// RankRequest is the Rank request message.
type RankRequest struct {
	Origin    geo.Point                   `json:"origin"`
	Medicines []ranking.RequestedMedicine `json:"medicines"`
	TopK      int32                       `json:"top_k,omitempty"`
	// Simple asks for the simplified projection instead of the full result.
	Simple bool `json:"simple,omitempty"`
}

// RankResponse carries exactly one of Result or Simplified.
type RankResponse struct {
	Result     *ranking.RankedResult     `json:"result,omitempty"`
	Simplified *ranking.SimplifiedResult `json:"simplified,omitempty"`
}

// RankingService implements the Connect ranking service.
type RankingService struct {
	logger *observability.Logger
	ranker Ranker
}

// NewRankingService creates a new ranking service.
func NewRankingService(logger *observability.Logger, ranker Ranker) *RankingService {
	return &RankingService{
		logger: observability.OrNop(logger).WithOperation("rpc.rank"),
		ranker: ranker,
	}
}

// Rank handles Connect rank calls.
func (s *RankingService) Rank(ctx context.Context, req *connect.Request[RankRequest]) (*connect.Response[RankResponse], error) {
	msg := req.Msg

	res, err := s.ranker.RankAndRecord(ctx, ranking.Request{
		Origin:    msg.Origin,
		Medicines: msg.Medicines,
		TopK:      int(msg.TopK),
	})
	if err != nil {
		return nil, s.toConnectError(err)
	}

	out := &RankResponse{}
	if msg.Simple {
		out.Simplified = ranking.Simplify(res)
	} else {
		out.Result = res
	}
	return connect.NewResponse(out), nil
}

func (s *RankingService) toConnectError(err error) error {
	switch {
	case errors.Is(err, ranking.ErrInvalidRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, catalog.ErrNotFound):
		s.logger.Error().Err(err).Msg("catalog source missing")
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		s.logger.Error().Err(err).Msg("rank failed")
		return connect.NewError(connect.CodeInternal, err)
	}
}

// NewHandler returns the mount path and handler for the service. Messages
// are plain Go structs exchanged with the JSON codec.
func NewHandler(svc *RankingService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	rank := connect.NewUnaryHandler(RankProcedure, svc.Rank, opts...)

	mux := http.NewServeMux()
	mux.Handle(RankProcedure, rank)
	return "/" + RankingServiceName + "/", mux
}

// NewRankingClient returns a client for the Rank procedure served at baseURL.
func NewRankingClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *connect.Client[RankRequest, RankResponse] {
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return connect.NewClient[RankRequest, RankResponse](httpClient, baseURL+RankProcedure, opts...)
}

// JSONCodec marshals messages with encoding/json. It registers under the
// "json" name, replacing the protobuf JSON codec.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, msg any) error { return json.Unmarshal(data, msg) }

var _ connect.Codec = JSONCodec{}
