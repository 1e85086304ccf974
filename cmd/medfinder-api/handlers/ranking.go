// Package handlers provides HTTP handlers for the medicine finder API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spherical-ai/medicine-finder/internal/catalog"
	"github.com/spherical-ai/medicine-finder/internal/geo"
	"github.com/spherical-ai/medicine-finder/internal/observability"
	"github.com/spherical-ai/medicine-finder/internal/ranking"
)

// MaxRequestBytes caps the size of a ranking request body.
const MaxRequestBytes = 1 << 20

// Ranker ranks a request and records the result.
type Ranker interface {
	RankAndRecord(ctx context.Context, req ranking.Request) (*ranking.RankedResult, error)
}

// RankingHandler handles store ranking requests.
type RankingHandler struct {
	logger *observability.Logger
	ranker Ranker
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(logger *observability.Logger, ranker Ranker) *RankingHandler {
	return &RankingHandler{
		logger: observability.OrNop(logger),
		ranker: ranker,
	}
}

// RankRequestDTO is the API request for ranking. The snake_case fields
// accept the flat shape older clients send.
type RankRequestDTO struct {
	Origin    *LocationDTO  `json:"origin,omitempty"`
	Medicines []MedicineDTO `json:"medicines,omitempty"`
	TopK      int           `json:"topK,omitempty"`

	SourceLat     *float64 `json:"source_lat,omitempty"`
	SourceLon     *float64 `json:"source_lon,omitempty"`
	MedicineNames []string `json:"medicine_names,omitempty"`
	LegacyTopK    int      `json:"top_k,omitempty"`
}

// LocationDTO is a WGS-84 coordinate.
type LocationDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MedicineDTO is one requested medicine.
type MedicineDTO struct {
	Name          string   `json:"name"`
	MedicineID    string   `json:"medicineId,omitempty"`
	ExpectedPrice *float64 `json:"expectedPrice,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// ToRequest converts the DTO, preferring the structured fields over the
// flat ones when both are present.
func (d RankRequestDTO) ToRequest() (ranking.Request, error) {
	var req ranking.Request

	switch {
	case d.Origin != nil:
		req.Origin = geo.Point{Lat: d.Origin.Lat, Lon: d.Origin.Lon}
	case d.SourceLat != nil && d.SourceLon != nil:
		req.Origin = geo.Point{Lat: *d.SourceLat, Lon: *d.SourceLon}
	default:
		return req, errors.New("origin is required")
	}

	for _, m := range d.Medicines {
		req.Medicines = append(req.Medicines, ranking.RequestedMedicine{
			Name:          m.Name,
			MedicineID:    m.MedicineID,
			ExpectedPrice: m.ExpectedPrice,
			Description:   m.Description,
		})
	}
	if len(req.Medicines) == 0 {
		for _, name := range d.MedicineNames {
			req.Medicines = append(req.Medicines, ranking.RequestedMedicine{Name: name})
		}
	}

	req.TopK = d.TopK
	if req.TopK == 0 {
		req.TopK = d.LegacyTopK
	}
	return req, nil
}

// Rank handles POST /rank and returns the full result.
func (h *RankingHandler) Rank(w http.ResponseWriter, r *http.Request) {
	res, ok := h.rank(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, res)
}

// RankSimple handles POST /rank/simple and returns the simplified projection.
func (h *RankingHandler) RankSimple(w http.ResponseWriter, r *http.Request) {
	res, ok := h.rank(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, ranking.Simplify(res))
}

func (h *RankingHandler) rank(w http.ResponseWriter, r *http.Request) (*ranking.RankedResult, bool) {
	ctx := r.Context()
	logger := h.logger.WithContext(ctx)

	var dto RankRequestDTO
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(&dto); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large",
				fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
			return nil, false
		}
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, false
	}

	req, err := dto.ToRequest()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return nil, false
	}

	res, err := h.ranker.RankAndRecord(ctx, req)
	switch {
	case err == nil:
		return res, true
	case errors.Is(err, ranking.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		logger.Error().Err(err).Msg("catalog source missing")
		h.writeError(w, http.StatusNotFound, "catalog unavailable", err.Error())
	default:
		logger.Error().Err(err).Msg("rank failed")
		h.writeError(w, http.StatusInternalServerError, "ranking failed", err.Error())
	}
	return nil, false
}

func (h *RankingHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *RankingHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
