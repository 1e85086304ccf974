package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Load reads a CSV or TSV inventory file and normalizes it into a Catalog.
// A missing file yields an error wrapping ErrNotFound.
func Load(path string, columns ColumnCandidates) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	delim := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		delim = '\t'
	}

	cat, err := Parse(f, delim, columns)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cat, nil
}

// Parse normalizes delimited inventory rows read from r. The first record is
// the header.
func Parse(r io.Reader, delim rune, columns ColumnCandidates) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	layout := resolveLayout(header, columns)

	cat := New()
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+1, err)
		}
		if isBlankRecord(record) {
			continue
		}
		cat.addRow(row, record, layout)
		row++
	}
	return cat, nil
}

func (c *Catalog) addRow(row int, record []string, l columnLayout) {
	cell := func(idx int) (string, bool) {
		if idx < 0 || idx >= len(record) {
			return "", false
		}
		return NormalizeText(cleanCell(record[idx])), true
	}

	storeID := DefaultStoreID
	if v, ok := cell(l.storeID); ok && v != "" {
		storeID = v
	}

	if _, seen := c.Inventory[storeID]; !seen {
		store := Store{ID: storeID, Name: storeID}
		if v, ok := cell(l.storeName); ok && v != "" {
			store.Name = v
		}
		if v, ok := cell(l.lat); ok {
			store.Latitude, _ = parseFloat(v)
		}
		if v, ok := cell(l.lon); ok {
			store.Longitude, _ = parseFloat(v)
		}
		c.Stores = append(c.Stores, store)
		c.Inventory[storeID] = nil
	}

	item := Item{ID: strconv.Itoa(row)}
	if v, ok := cell(l.medID); ok && v != "" {
		item.ID = v
	}
	item.Name, _ = cell(l.medName)
	item.Description, _ = cell(l.desc)
	if v, ok := cell(l.price); ok {
		if p, ok := parseFloat(v); ok && p > 0 {
			item.Price = p
		}
	}
	item.Available = availability(cell, l)

	c.Inventory[storeID] = append(c.Inventory[storeID], item)

	if item.Name != "" && item.Description != "" {
		key := descriptionKey(item.Name)
		if _, ok := c.Descriptions[key]; !ok {
			c.Descriptions[key] = item.Description
		}
	}
}

func availability(cell func(int) (string, bool), l columnLayout) bool {
	if v, ok := cell(l.avail); ok {
		return ParseBool(v)
	}
	if v, ok := cell(l.stock); ok {
		if n, ok := parseFloat(v); ok {
			return n > 0
		}
		return ParseBool(v)
	}
	return false
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
