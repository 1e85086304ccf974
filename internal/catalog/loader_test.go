package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullHeader(t *testing.T) {
	csv := "store_id,store_name,latitude,longitude,medicine_id,medicine_name,medicine_desc,price,availability\n" +
		"S1,Apollo,0,1,M1,Paracetamol,fever relief,10,true\n" +
		"S1,Apollo Duplicate,5,5,M2,Ibuprofen,pain relief,20,no\n" +
		"S2,MedPlus,0,2,M3,Paracetamol,other text,12,Y\n"

	cat, err := Load(writeFile(t, "inv.csv", csv), DefaultColumnCandidates())
	require.NoError(t, err)

	require.Len(t, cat.Stores, 2)
	assert.Equal(t, Store{ID: "S1", Name: "Apollo", Latitude: 0, Longitude: 1}, cat.Stores[0])
	assert.Equal(t, "S2", cat.Stores[1].ID)

	items := cat.Items("S1")
	require.Len(t, items, 2)
	assert.Equal(t, Item{ID: "M1", Name: "Paracetamol", Description: "fever relief", Price: 10, Available: true}, items[0])
	assert.False(t, items[1].Available)
	assert.True(t, cat.Items("S2")[0].Available)

	desc, ok := cat.Description("  PARACETAMOL ")
	require.True(t, ok)
	assert.Equal(t, "fever relief", desc, "first description seen wins")
	assert.Equal(t, 3, cat.ItemCount())
}

func TestLoad_SynonymsAndDefaults(t *testing.T) {
	// no store id, no medicine id, price via cost, stock instead of availability
	csv := "\ufeffDrug_Name , Lat,LNG,cost,Qty\n" +
		"Aspirin,12.5,77.1,,3\n" +
		"Cetirizine,12.5,77.1,-4,0\n" +
		"Zinc,,,abc,yes\n"

	cat, err := Load(writeFile(t, "inv.csv", csv), DefaultColumnCandidates())
	require.NoError(t, err)

	require.Len(t, cat.Stores, 1)
	store := cat.Stores[0]
	assert.Equal(t, DefaultStoreID, store.ID)
	assert.Equal(t, DefaultStoreID, store.Name)
	assert.Equal(t, 12.5, store.Latitude)
	assert.Equal(t, 77.1, store.Longitude)

	items := cat.Items(DefaultStoreID)
	require.Len(t, items, 3)

	// drug_name serves as both id and name
	assert.Equal(t, "Aspirin", items[0].ID)
	assert.Equal(t, "Aspirin", items[0].Name)
	assert.Zero(t, items[0].Price)
	assert.True(t, items[0].Available)

	assert.Zero(t, items[1].Price, "negative price clamps to zero")
	assert.False(t, items[1].Available)

	assert.Zero(t, items[2].Price)
	assert.True(t, items[2].Available, "non-numeric stock falls back to truthy parsing")
}

func TestLoad_RowIndexAsMedicineID(t *testing.T) {
	csv := "store,medicine_name,price,available\n" +
		"A,X,1,1\n" +
		"B,Y,2,0\n"

	cat, err := Load(writeFile(t, "inv.csv", csv), DefaultColumnCandidates())
	require.NoError(t, err)

	assert.Equal(t, "0", cat.Items("A")[0].ID)
	assert.Equal(t, "1", cat.Items("B")[0].ID)
	assert.Equal(t, "A", cat.Stores[0].Name, "store name defaults to id")
}

func TestLoad_NoAvailabilityColumns(t *testing.T) {
	cat, err := Load(writeFile(t, "inv.csv", "store_id,medicine_name\nS,Z\n"), DefaultColumnCandidates())
	require.NoError(t, err)
	assert.False(t, cat.Items("S")[0].Available)
}

func TestLoad_TSV(t *testing.T) {
	tsv := "store_id\tmedicine_name\tprice\tavailability\nS1\tParacetamol, 500mg\t4.5\tTRUE\n"

	cat, err := Load(writeFile(t, "inv.tsv", tsv), DefaultColumnCandidates())
	require.NoError(t, err)

	item := cat.Items("S1")[0]
	assert.Equal(t, "Paracetamol, 500mg", item.Name)
	assert.Equal(t, 4.5, item.Price)
	assert.True(t, item.Available)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumnCandidates())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParse_EmptyInput(t *testing.T) {
	cat, err := Parse(strings.NewReader(""), ',', DefaultColumnCandidates())
	require.NoError(t, err)
	assert.Empty(t, cat.Stores)
}

func TestFindColumn_CandidateOrderWins(t *testing.T) {
	header := []string{"name", "store_name"}
	assert.Equal(t, 1, findColumn(header, []string{"store_name", "name"}))
	assert.Equal(t, -1, findColumn(header, []string{"shop"}))
}

func TestColumnCandidates_WithOverrides(t *testing.T) {
	cols := DefaultColumnCandidates().WithOverrides(map[string][]string{
		"price":   {"selling_price"},
		"unknown": {"x"},
		"stock":   nil,
	})
	assert.Equal(t, []string{"selling_price"}, cols.Price)
	assert.Equal(t, DefaultColumnCandidates().Stock, cols.Stock)

	cat, err := Parse(strings.NewReader("store_id,medicine_name,selling_price\nS,A,7\n"), ',', cols)
	require.NoError(t, err)
	assert.Equal(t, 7.0, cat.Items("S")[0].Price)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "T", "1", "Yes", " y "} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"", "false", "0", "no", "available", "2"} {
		assert.False(t, ParseBool(v), v)
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "ABC 1", NormalizeText("  ＡＢＣ\x00 １ "))
}
