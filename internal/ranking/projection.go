package ranking

import "github.com/spherical-ai/medicine-finder/internal/geo"

// SimplifiedResult is the public, reduced view of a RankedResult.
type SimplifiedResult struct {
	Origin geo.Point         `json:"source_location"`
	Stores []SimplifiedStore `json:"ranked_stores"`
}

// SimplifiedStore is one store in a SimplifiedResult.
type SimplifiedStore struct {
	StoreName          string         `json:"store_name"`
	Latitude           float64        `json:"latitude"`
	Longitude          float64        `json:"longitude"`
	DistanceFromSource float64        `json:"distance_from_source"`
	TotalPrice         float64        `json:"total_price"`
	MedicineStatus     MedicineStatus `json:"medicine_status"`
}

// MedicineStatus groups requested medicine names by outcome.
type MedicineStatus struct {
	Available   []string           `json:"available"`
	Alternative []AlternativeFound `json:"alternative"`
	Missing     []string           `json:"missing"`
}

// AlternativeFound pairs a requested name with the substitute found.
type AlternativeFound struct {
	Requested string `json:"requested"`
	Found     string `json:"found"`
}

// Simplify projects a full result into its public form, keeping store order.
func Simplify(r *RankedResult) *SimplifiedResult {
	out := &SimplifiedResult{
		Origin: r.Origin,
		Stores: make([]SimplifiedStore, 0, len(r.Stores)),
	}
	for _, st := range r.Stores {
		ms := MedicineStatus{
			Available:   []string{},
			Alternative: []AlternativeFound{},
			Missing:     []string{},
		}
		for _, e := range st.Items {
			switch e.Status {
			case StatusAvailable:
				ms.Available = append(ms.Available, e.Requested.Name)
			case StatusAlternative:
				found := ""
				if e.MatchedItem != nil {
					found = e.MatchedItem.Name
				}
				ms.Alternative = append(ms.Alternative, AlternativeFound{Requested: e.Requested.Name, Found: found})
			default:
				ms.Missing = append(ms.Missing, e.Requested.Name)
			}
		}
		out.Stores = append(out.Stores, SimplifiedStore{
			StoreName:          st.Name,
			Latitude:           st.Latitude,
			Longitude:          st.Longitude,
			DistanceFromSource: st.DistanceKm,
			TotalPrice:         st.TotalPrice,
			MedicineStatus:     ms,
		})
	}
	return out
}
