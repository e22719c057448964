package service

import (
	"sort"
	"strings"
)

// categoryKeywords scores recipe text against each category by keyword
// occurrences. Used when the LLM output is missing a category or to derive
// tags for discovery filtering.
var categoryKeywords = map[string][]string{
	"Breakfast":   {"breakfast", "pancake", "waffle", "omelette", "oatmeal", "granola", "toast", "egg", "brunch"},
	"Dessert":     {"dessert", "cake", "cookie", "brownie", "pudding", "ice cream", "tart", "pie", "chocolate", "sweet"},
	"Soup":        {"soup", "broth", "bisque", "chowder", "stew", "consomme"},
	"Salad":       {"salad", "vinaigrette", "slaw", "greens"},
	"Pasta":       {"pasta", "spaghetti", "lasagna", "penne", "noodle", "macaroni", "ravioli", "fettuccine"},
	"Seafood":     {"fish", "salmon", "shrimp", "prawn", "tuna", "crab", "lobster", "mussel", "scallop", "seafood"},
	"Meat":        {"beef", "steak", "pork", "lamb", "chicken", "turkey", "bacon", "sausage", "ribs"},
	"Bread":       {"bread", "loaf", "baguette", "focaccia", "sourdough", "roll", "bun"},
	"Beverage":    {"smoothie", "juice", "cocktail", "latte", "tea", "drink", "shake", "lemonade"},
	"Vegetarian":  {"vegetarian", "veggie", "meatless", "tofu", "halloumi", "paneer"},
	"Vegan":       {"vegan", "plant-based", "dairy-free"},
	"Gluten-Free": {"gluten-free", "gluten free"},
	"Snack":       {"snack", "dip", "chips", "popcorn", "bites", "bars"},
	"Appetizer":   {"appetizer", "starter", "bruschetta", "canape", "hors"},
	"Side Dish":   {"side", "mashed", "roasted vegetables", "fries", "pilaf"},
}

// CategorizeRecipe assigns the best-scoring category for the given recipe
// text, falling back to "Main Course" when nothing matches.
func CategorizeRecipe(name, description string, ingredients []string) string {
	text := strings.ToLower(name + " " + description + " " + strings.Join(ingredients, " "))

	best := "Main Course"
	bestScore := 0
	// Iterate in sorted order so ties resolve deterministically.
	names := make([]string, 0, len(categoryKeywords))
	for category := range categoryKeywords {
		names = append(names, category)
	}
	sort.Strings(names)

	for _, category := range names {
		score := 0
		for _, kw := range categoryKeywords[category] {
			score += strings.Count(text, kw)
		}
		if score > bestScore {
			best = category
			bestScore = score
		}
	}
	return best
}

// DeriveTags returns every category whose keywords appear in the recipe
// text, as lowercase tags for discovery filtering.
func DeriveTags(name, description string, ingredients []string) []string {
	text := strings.ToLower(name + " " + description + " " + strings.Join(ingredients, " "))

	var tags []string
	for category, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				tags = append(tags, strings.ToLower(category))
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}
