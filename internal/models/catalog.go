package models

import "strings"

// Fixed add-on costs, in roubles.
const (
	PrintingCost int64 = 500
	ShippingCost int64 = 300
)

// ProductType is one garment the shop prints on.
type ProductType struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Color is a garment color code with its display name.
type Color struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog is the server-side source of truth for prices, colors and sizes.
type Catalog struct {
	Products []ProductType `json:"products"`
	Colors   []Color       `json:"colors"`
	Sizes    []string      `json:"sizes"`
}

// DefaultCatalog returns the shop's fixed catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Products: []ProductType{
			{Key: "tshirt", Name: "Футболка", Price: 1299},
			{Key: "underwear", Name: "Нижнее белье", Price: 699},
			{Key: "hoodie", Name: "Худи", Price: 2599},
			{Key: "tank", Name: "Майка", Price: 999},
		},
		Colors: []Color{
			{Code: "white", Name: "Белый"},
			{Code: "black", Name: "Черный"},
			{Code: "navy", Name: "Темно-синий"},
			{Code: "gray", Name: "Серый"},
			{Code: "red", Name: "Красный"},
			{Code: "green", Name: "Зеленый"},
		},
		Sizes: []string{"XS", "S", "M", "L", "XL", "XXL"},
	}
}

// Product looks up a product type by key.
func (c Catalog) Product(key string) (ProductType, bool) {
	for _, p := range c.Products {
		if p.Key == key {
			return p, true
		}
	}
	return ProductType{}, false
}

// Color looks up a color by code.
func (c Catalog) Color(code string) (Color, bool) {
	for _, col := range c.Colors {
		if col.Code == code {
			return col, true
		}
	}
	return Color{}, false
}

// HasSize reports whether size is offered, ignoring case.
func (c Catalog) HasSize(size string) bool {
	for _, s := range c.Sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}
