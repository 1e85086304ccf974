package ranking

// The types below describe data exchanged with collaborators that live
// outside this module: price scrapers, prescription OCR and notification
// delivery. Only their shapes are defined here.

// PriceQuote is a price observed on an external pharmacy site.
type PriceQuote struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Link  string  `json:"link"`
}

// PrescriptionScan is the medicine list extracted from a prescription image.
type PrescriptionScan struct {
	Medicines []string `json:"medicines"`
}

// Notification is a message to deliver to a recipient.
type Notification struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// DeliveryStatus reports the outcome of sending a Notification.
type DeliveryStatus struct {
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail,omitempty"`
}

// Requests converts scanned prescription lines into requested medicines.
func (p PrescriptionScan) Requests() []RequestedMedicine {
	out := make([]RequestedMedicine, 0, len(p.Medicines))
	for _, name := range p.Medicines {
		out = append(out, RequestedMedicine{Name: name})
	}
	return out
}
