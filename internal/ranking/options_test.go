package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spherical-ai/medicine-finder/internal/scoring"
)

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero top k", func(o *Options) { o.TopK = 0 }},
		{"zero candidates", func(o *Options) { o.AlternativeCandidates = 0 }},
		{"zero price ratio", func(o *Options) { o.PriceJumpRatio = 0 }},
		{"all-zero weights", func(o *Options) { o.Weights = scoring.Weights{} }},
		{"negative weight", func(o *Options) { o.Weights.Price = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}
}

func TestPrescriptionScan_Requests(t *testing.T) {
	scan := PrescriptionScan{Medicines: []string{"Crocin", "Dolo 650"}}
	assert.Equal(t, []RequestedMedicine{{Name: "Crocin"}, {Name: "Dolo 650"}}, scan.Requests())
	assert.Empty(t, PrescriptionScan{}.Requests())
}
