// Package catalog turns a flat inventory table into per-store inventories,
// store metadata and a medicine description index, and persists that
// normalized snapshot between runs.
package catalog

import (
	"errors"
	"strings"

	"github.com/spherical-ai/medicine-finder/internal/geo"
)

// DefaultStoreID is used for every row when the source has no store column.
const DefaultStoreID = "default_store"

var (
	// ErrNotFound is returned when the inventory source does not exist.
	ErrNotFound = errors.New("catalog source not found")
	// ErrSnapshotMissing is returned when one or more snapshot documents are absent.
	ErrSnapshotMissing = errors.New("catalog snapshot missing")
)

// Store is a physical pharmacy. A (0,0) location means the source had none.
type Store struct {
	ID        string  `json:"store_id"`
	Name      string  `json:"store_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location returns the store coordinates as a geo.Point.
func (s Store) Location() geo.Point {
	return geo.Point{Lat: s.Latitude, Lon: s.Longitude}
}

// Item is one medicine offered by one store.
type Item struct {
	ID          string  `json:"medicine_id"`
	Name        string  `json:"medicine_name"`
	Description string  `json:"medicine_desc"`
	Price       float64 `json:"price"`
	Available   bool    `json:"availability"`
}

// EmbeddingText is the text embedded for semantic matching of the item.
func (i Item) EmbeddingText() string {
	return strings.TrimSpace(i.Name + " " + i.Description)
}

// Catalog is the normalized inventory. Stores keep first-seen order so ties
// elsewhere break deterministically.
type Catalog struct {
	Stores       []Store           `json:"stores"`
	Inventory    map[string][]Item `json:"inventory"`
	Descriptions map[string]string `json:"medicine_descriptions"`
}

// New returns an empty catalog ready to be populated.
func New() *Catalog {
	return &Catalog{
		Inventory:    make(map[string][]Item),
		Descriptions: make(map[string]string),
	}
}

// Store looks up store metadata by id.
func (c *Catalog) Store(id string) (Store, bool) {
	for _, s := range c.Stores {
		if s.ID == id {
			return s, true
		}
	}
	return Store{}, false
}

// Items returns the inventory of a store, in source order.
func (c *Catalog) Items(storeID string) []Item {
	return c.Inventory[storeID]
}

// Description returns the first description seen for a medicine name.
func (c *Catalog) Description(name string) (string, bool) {
	d, ok := c.Descriptions[descriptionKey(name)]
	return d, ok
}

// ItemCount returns the number of inventory rows across all stores.
func (c *Catalog) ItemCount() int {
	n := 0
	for _, items := range c.Inventory {
		n += len(items)
	}
	return n
}

func descriptionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
