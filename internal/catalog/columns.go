package catalog

// ColumnCandidates lists, per semantic field, the header names accepted for
// it. Matching is case-insensitive and the first candidate present wins.
type ColumnCandidates struct {
	StoreID      []string `json:"store_id" yaml:"store_id"`
	StoreName    []string `json:"store_name" yaml:"store_name"`
	Latitude     []string `json:"latitude" yaml:"latitude"`
	Longitude    []string `json:"longitude" yaml:"longitude"`
	MedicineID   []string `json:"medicine_id" yaml:"medicine_id"`
	MedicineName []string `json:"medicine_name" yaml:"medicine_name"`
	Description  []string `json:"description" yaml:"description"`
	Price        []string `json:"price" yaml:"price"`
	Availability []string `json:"availability" yaml:"availability"`
	Stock        []string `json:"stock" yaml:"stock"`
}

// DefaultColumnCandidates returns the built-in header synonyms.
func DefaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		StoreID:      []string{"store_id", "store", "store_name"},
		StoreName:    []string{"store_name", "name"},
		Latitude:     []string{"latitude", "lat", "store_latitude"},
		Longitude:    []string{"longitude", "lon", "lng", "store_longitude"},
		MedicineID:   []string{"medicine_id", "med_id", "medicine", "drug_name"},
		MedicineName: []string{"medicine_name", "drug_name"},
		Description:  []string{"medicine_desc", "description", "medical_condition_description"},
		Price:        []string{"price", "mrp", "cost"},
		Availability: []string{"availability", "available"},
		Stock:        []string{"stock", "quantity", "qty"},
	}
}

// WithOverrides replaces the candidate lists named in overrides, keyed by
// field name (store_id, store_name, latitude, ...). Unknown keys are ignored.
func (c ColumnCandidates) WithOverrides(overrides map[string][]string) ColumnCandidates {
	out := c
	for key, values := range overrides {
		if len(values) == 0 {
			continue
		}
		vals := append([]string(nil), values...)
		switch key {
		case "store_id":
			out.StoreID = vals
		case "store_name":
			out.StoreName = vals
		case "latitude":
			out.Latitude = vals
		case "longitude":
			out.Longitude = vals
		case "medicine_id":
			out.MedicineID = vals
		case "medicine_name":
			out.MedicineName = vals
		case "description":
			out.Description = vals
		case "price":
			out.Price = vals
		case "availability":
			out.Availability = vals
		case "stock":
			out.Stock = vals
		}
	}
	return out
}

// columnLayout holds the resolved header index per field; -1 means absent.
type columnLayout struct {
	storeID, storeName, lat, lon       int
	medID, medName, desc, price, avail int
	stock                              int
}

func resolveLayout(header []string, c ColumnCandidates) columnLayout {
	return columnLayout{
		storeID:   findColumn(header, c.StoreID),
		storeName: findColumn(header, c.StoreName),
		lat:       findColumn(header, c.Latitude),
		lon:       findColumn(header, c.Longitude),
		medID:     findColumn(header, c.MedicineID),
		medName:   findColumn(header, c.MedicineName),
		desc:      findColumn(header, c.Description),
		price:     findColumn(header, c.Price),
		avail:     findColumn(header, c.Availability),
		stock:     findColumn(header, c.Stock),
	}
}
