package domain

// FallbackCategory is the name of the category used when classification
// yields no usable match.
const FallbackCategory = "Other"

// Category is a spending category. Names are unique.
type Category struct {
	ID    string
	Name  string
	Color string
	Icon  string
}

// DefaultCategories is the seed set installed by a fresh database.
var DefaultCategories = []Category{
	{Name: "Food & Dining", Color: "#FF6B6B", Icon: "utensils"},
	{Name: "Groceries", Color: "#4ECDC4", Icon: "shopping-basket"},
	{Name: "Transportation", Color: "#45B7D1", Icon: "car"},
	{Name: "Shopping", Color: "#F7B731", Icon: "shopping-bag"},
	{Name: "Utilities", Color: "#5F27CD", Icon: "bolt"},
	{Name: "Entertainment", Color: "#EE5A24", Icon: "film"},
	{Name: "Healthcare", Color: "#10AC84", Icon: "heartbeat"},
	{Name: "Travel", Color: "#0ABDE3", Icon: "plane"},
	{Name: "Education", Color: "#8395A7", Icon: "book"},
	{Name: FallbackCategory, Color: "#A4B0BE", Icon: "tag"},
}
