package models

// Category is a classifieds browsing category (e.g. Furniture, Vehicles).
type Category struct {
	Base `bson:",inline"`
	Name string `bson:"name" json:"name"`
	Slug string `bson:"slug" json:"slug"`
}
