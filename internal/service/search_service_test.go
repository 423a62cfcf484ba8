package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/sproutlingapp/sproutling-server/internal/search"
	"github.com/sproutlingapp/sproutling-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchEnv wires a real search index into the record service so indexed
// writes flow through to search results.
type searchEnv struct {
	*testEnv
	index  *search.SearchIndex
	search *SearchService
}

func setupSearchTest(t *testing.T) *searchEnv {
	t.Helper()
	env := setupTest(t)
	logger := slog.New(slog.DiscardHandler)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: t.TempDir(),
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = index.Close()
	})

	// Replace the noop indexer with the real one.
	env.records = NewRecordService(env.store, env.evaluator, store.NewNoopEmitter(), index, logger)

	return &searchEnv{
		testEnv: env,
		index:   index,
		search:  NewSearchService(index, env.store, env.evaluator, logger),
	}
}

func TestSearch_OwnerFindsOwnRecipe(t *testing.T) {
	env := setupSearchTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")

	recipe, err := env.records.CreateRecipe(ctx, owner.ID, newRecipe("Banana Oatmeal"))
	require.NoError(t, err)

	params := search.DefaultSearchParams()
	params.Query = "banana"

	result, err := env.search.Search(ctx, owner.ID, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, recipe.ID, result.Hits[0].ID)
	assert.Equal(t, search.DocTypeRecipe, result.Hits[0].Type)
}

func TestSearch_FiltersUnsharedHits(t *testing.T) {
	env := setupSearchTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")

	hidden, err := env.records.CreateRecipe(ctx, owner.ID, newRecipe("Banana Oatmeal"))
	require.NoError(t, err)

	visible, err := env.records.CreateRecipe(ctx, owner.ID, newRecipe("Banana Pancakes"))
	require.NoError(t, err)
	_, err = env.records.ShareRecipe(ctx, owner.ID, visible.ID, grandma.ID)
	require.NoError(t, err)

	params := search.DefaultSearchParams()
	params.Query = "banana"

	// The owner sees both, the collaborator only the shared one.
	result, err := env.search.Search(ctx, owner.ID, params)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 2)

	result, err = env.search.Search(ctx, grandma.ID, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, visible.ID, result.Hits[0].ID)
	assert.NotEqual(t, hidden.ID, result.Hits[0].ID)
}

func TestSearch_FoodIntroductionAccessViaChildShare(t *testing.T) {
	env := setupSearchTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	grandma := createTestAccount(t, env.store, "care@example.com", "Grandma Rose")
	stranger := createTestAccount(t, env.store, "stranger@example.com", "Pat")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.sharing.AddCollaborator(ctx, owner.ID, child.ID, grandma.ID)
	require.NoError(t, err)

	_, err = env.records.CreateFoodIntroduction(ctx, owner.ID, newFoodIntroduction(child.ID, "Avocado"))
	require.NoError(t, err)

	params := search.DefaultSearchParams()
	params.Query = "avocado"

	result, err := env.search.Search(ctx, grandma.ID, params)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)

	result, err = env.search.Search(ctx, stranger.ID, params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestSearch_DeletedRecordDropped(t *testing.T) {
	env := setupSearchTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")

	recipe, err := env.records.CreateRecipe(ctx, owner.ID, newRecipe("Banana Oatmeal"))
	require.NoError(t, err)

	// Remove the backing record directly, leaving the index stale.
	require.NoError(t, env.store.MarkEntityDeleted(ctx, "recipe", recipe.ID))

	params := search.DefaultSearchParams()
	params.Query = "banana"

	result, err := env.search.Search(ctx, owner.ID, params)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestReindex(t *testing.T) {
	env := setupSearchTest(t)
	ctx := context.Background()

	owner := createTestAccount(t, env.store, "owner@example.com", "Sarah")
	child := createTestChild(t, env.store, owner.ID, "Mia")

	_, err := env.records.CreateRecipe(ctx, owner.ID, newRecipe("Banana Oatmeal"))
	require.NoError(t, err)
	_, err = env.records.CreateFoodIntroduction(ctx, owner.ID, newFoodIntroduction(child.ID, "Avocado"))
	require.NoError(t, err)

	// Wipe the index, then rebuild it from the store.
	require.NoError(t, env.index.Rebuild())

	count, err := env.index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, env.search.Reindex(ctx))

	count, err = env.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
