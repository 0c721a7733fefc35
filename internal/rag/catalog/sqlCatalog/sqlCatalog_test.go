package sqlCatalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func seed(t *testing.T, c *Catalog, docs ...commonModels.DocumentEntity) []commonModels.DocumentEntity {
	t.Helper()
	out := make([]commonModels.DocumentEntity, 0, len(docs))
	for i, d := range docs {
		d.UploadedAt = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		created, err := c.Create(context.Background(), d)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func TestCreateAndGet(t *testing.T) {
	c := openTestCatalog(t)
	docs := seed(t, c, commonModels.DocumentEntity{Title: "Solar Dryers", Authors: "A. Cruz", Program: "BSME", Year: 2019})

	got, err := c.Get(context.Background(), docs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Solar Dryers", got.Title)
	assert.Equal(t, commonModels.StatusPending, got.Status)
	assert.Equal(t, docs[0].UploadedAt, got.UploadedAt)

	_, err = c.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ragErrors.ErrNotFound))
}

func TestCreate_RequiresTitle(t *testing.T) {
	c := openTestCatalog(t)
	_, err := c.Create(context.Background(), commonModels.DocumentEntity{Title: "  "})
	assert.Error(t, err)
}

func TestLookupByNormalizedTitle(t *testing.T) {
	c := openTestCatalog(t)
	seed(t, c, commonModels.DocumentEntity{Title: "Rice Yield: A Study (2nd Ed.)", Authors: "B. Santos"})

	doc, ok, err := c.LookupByNormalizedTitle(context.Background(), catalog.NormalizeQuery(`Who is the author of "rice yield a study 2nd ed"?`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B. Santos", doc.Authors)

	_, ok, err = c.LookupByNormalizedTitle(context.Background(), "riceyield")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchText(t *testing.T) {
	c := openTestCatalog(t)
	seed(t, c,
		commonModels.DocumentEntity{Title: "Solar Dryers for Copra", Year: 2018},
		commonModels.DocumentEntity{Title: "Wind Mapping", Abstract: "uses SOLAR irradiance data", Year: 2021},
		commonModels.DocumentEntity{Title: "Fish Cages", Year: 2020},
		commonModels.DocumentEntity{Title: "100% Recycled_Paper", Year: 2020},
	)

	got, err := c.SearchText(context.Background(), "solar", 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Wind Mapping", got[0].Title, "newest first")

	got, err = c.SearchText(context.Background(), "solar", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = c.SearchText(context.Background(), "0%", 30)
	require.NoError(t, err)
	require.Len(t, got, 1, "percent is literal")

	got, err = c.SearchText(context.Background(), "  ", 30)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchTitleAuthors(t *testing.T) {
	c := openTestCatalog(t)
	seed(t, c,
		commonModels.DocumentEntity{Title: "Mangrove Survey", Authors: "Dela Cruz, J."},
		commonModels.DocumentEntity{Title: "Cruz Ships", Authors: "Reyes, M."},
		commonModels.DocumentEntity{Title: "Other", Abstract: "cruz"},
	)
	got, err := c.SearchTitleAuthors(context.Background(), "CRUZ", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListPaginatesAndFilters(t *testing.T) {
	c := openTestCatalog(t)
	var docs []commonModels.DocumentEntity
	for i := 0; i < 25; i++ {
		program := "BSIT"
		if i%5 == 0 {
			program = "BSME"
		}
		docs = append(docs, commonModels.DocumentEntity{Title: fmt.Sprintf("Thesis %02d", i), Program: program})
	}
	seed(t, c, docs...)

	page, err := c.List(context.Background(), catalog.ListFilter{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Documents, 5)
	assert.Equal(t, "Thesis 04", page.Documents[0].Title)

	page, err = c.List(context.Background(), catalog.ListFilter{Program: "bsme"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
}

func TestSetStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	docs := seed(t, c, commonModels.DocumentEntity{Title: "Status Thesis"})

	require.NoError(t, c.SetStatus(ctx, docs[0].Id, commonModels.StatusDone))
	got, err := c.Get(ctx, docs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, commonModels.StatusDone, got.Status)

	page, err := c.List(ctx, catalog.ListFilter{Status: commonModels.StatusDone})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, c.Delete(ctx, docs[0].Id))
	assert.ErrorIs(t, c.Delete(ctx, docs[0].Id), ragErrors.ErrNotFound)
	assert.ErrorIs(t, c.SetStatus(ctx, docs[0].Id, commonModels.StatusFailed), ragErrors.ErrNotFound)
}

func TestRebind(t *testing.T) {
	c := &Catalog{driver: "pgx"}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", c.rebind("SELECT 1 WHERE a = ? AND b = ?"))
	c.driver = "sqlite"
	assert.Equal(t, "a = ?", c.rebind("a = ?"))
}
