package search

import (
	"context"
	"testing"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{
		DataPath: t.TempDir(),
		Logger:   nil,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = index.Close()
	})

	return index
}

func testRecipe(id, title string, ingredients, allergens []string, ageMonthsMin int) *domain.Recipe {
	r := &domain.Recipe{
		OwnerID:      "account_owner",
		Title:        title,
		Ingredients:  ingredients,
		Allergens:    allergens,
		AgeMonthsMin: ageMonthsMin,
		SharedWith:   []string{},
	}
	r.ID = id
	r.InitTimestamps()
	return r
}

func testFoodIntroduction(id, food string, reaction domain.FoodReaction, isAllergen bool) *domain.FoodIntroduction {
	f := &domain.FoodIntroduction{
		OwnerID:      "account_owner",
		ChildID:      "child_mia",
		FoodName:     food,
		FirstTriedAt: time.Now(),
		Reaction:     reaction,
		IsAllergen:   isAllergen,
	}
	f.ID = id
	f.InitTimestamps()
	return f
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndexRecipe(t *testing.T) {
	index := setupTestIndex(t)

	recipe := testRecipe("recipe_1", "Sweet Potato Mash", []string{"sweet potato", "butter"}, nil, 6)
	require.NoError(t, index.IndexRecipe(context.Background(), recipe))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndexDocuments_Batch(t *testing.T) {
	index := setupTestIndex(t)

	docs := []*SearchDocument{
		{ID: "recipe_1", Type: DocTypeRecipe, Name: "Oat Porridge"},
		{ID: "recipe_2", Type: DocTypeRecipe, Name: "Banana Pancakes"},
		{ID: "recipe_3", Type: DocTypeRecipe, Name: "Avocado Toast Fingers"},
	}

	require.NoError(t, index.IndexDocuments(docs))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestDeleteRecipe(t *testing.T) {
	index := setupTestIndex(t)

	recipe := testRecipe("recipe_1", "Pea Puree", []string{"peas"}, nil, 4)
	require.NoError(t, index.IndexRecipe(context.Background(), recipe))

	require.NoError(t, index.DeleteRecipe(context.Background(), "recipe_1"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearch_ByName(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_1", "Sweet Potato Mash", []string{"sweet potato"}, nil, 6)))
	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_2", "Banana Oat Bars", []string{"banana", "oats"}, nil, 9)))

	params := DefaultSearchParams()
	params.Query = "banana"

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "recipe_2", result.Hits[0].ID)
	assert.Equal(t, DocTypeRecipe, result.Hits[0].Type)
}

func TestSearch_ByIngredient(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_1", "Veggie Fritters", []string{"zucchini", "carrot", "egg"}, []string{"egg"}, 8)))

	params := DefaultSearchParams()
	params.Query = "zucchini"

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "recipe_1", result.Hits[0].ID)
}

func TestSearch_FuzzyMatchesTypo(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_1", "Broccoli Bites", []string{"broccoli"}, nil, 8)))

	params := DefaultSearchParams()
	params.Query = "brocoli"

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "recipe_1", result.Hits[0].ID)
}

func TestSearch_ExcludesAllergens(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_1", "Peanut Butter Toast", []string{"bread", "peanut butter"}, []string{"peanut"}, 12)))
	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_2", "Plain Toast Fingers", []string{"bread"}, nil, 9)))

	params := DefaultSearchParams()
	params.Query = "toast"
	params.ExcludeAllergens = []string{"peanut"}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "recipe_2", result.Hits[0].ID)
}

func TestSearch_ExcludesAllergenGroupForFoodIntroductions(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	// The flagged food indexes under its allergen group, so a "peanut"
	// exclusion drops "Peanut Butter" too.
	require.NoError(t, index.IndexFoodIntroduction(ctx, testFoodIntroduction("food_1", "Peanut Butter", domain.ReactionAllergic, true)))
	require.NoError(t, index.IndexFoodIntroduction(ctx, testFoodIntroduction("food_2", "Banana", domain.ReactionNone, false)))

	params := DefaultSearchParams()
	params.ExcludeAllergens = []string{"peanut"}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "food_2", result.Hits[0].ID)
}

func TestSearch_AgeFilter(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_1", "First Puree", []string{"apple"}, nil, 4)))
	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_2", "Chunky Stew", []string{"beef", "carrot"}, nil, 12)))

	params := DefaultSearchParams()
	params.MaxAgeMonths = 6

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "recipe_1", result.Hits[0].ID)
}

func TestSearch_FoodIntroductionsByReaction(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexFoodIntroduction(ctx, testFoodIntroduction("food_1", "Egg", domain.ReactionAllergic, true)))
	require.NoError(t, index.IndexFoodIntroduction(ctx, testFoodIntroduction("food_2", "Sweet Potato", domain.ReactionNone, false)))

	params := DefaultSearchParams()
	params.Types = []string{string(DocTypeFoodIntroduction)}
	params.Reactions = []string{string(domain.ReactionAllergic)}

	result, err := index.Search(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "food_1", result.Hits[0].ID)
	assert.Equal(t, "child_mia", result.Hits[0].ChildID)
}

func TestRebuild(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexRecipe(ctx, testRecipe("recipe_1", "Pea Puree", []string{"peas"}, nil, 4)))

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
