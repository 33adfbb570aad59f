package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Product struct {
	Name        string   `yaml:"name" json:"name"`
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
}

type file struct {
	HotBeverages  []Product `yaml:"hot_beverages"`
	ColdBeverages []Product `yaml:"cold_beverages"`
	Pastries      []Product `yaml:"pastries"`
}

type ICatalog interface {
	All() []Product
	ByCategory(category string) []Product
	ProductList() string
	ProductContext(category string) string
}

type catalog struct {
	hot    []Product
	cold   []Product
	pastry []Product
}

// New loads the catalog from CATALOG_PATH and falls back to the built-in one
// when the variable is unset.
func New() (ICatalog, error) {
	path := os.Getenv("CATALOG_PATH")
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func Load(path string) (ICatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (ICatalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &catalog{hot: f.HotBeverages, cold: f.ColdBeverages, pastry: f.Pastries}, nil
}

func (c *catalog) All() []Product {
	all := make([]Product, 0, len(c.hot)+len(c.cold)+len(c.pastry))
	all = append(all, c.hot...)
	all = append(all, c.cold...)
	all = append(all, c.pastry...)
	return all
}

func (c *catalog) ByCategory(category string) []Product {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "hot", "hot beverage":
		return c.hot
	case "cold", "cold beverage":
		return c.cold
	case "pastry", "food":
		return c.pastry
	default:
		return c.All()
	}
}

func (c *catalog) ProductList() string {
	names := make([]string, 0, len(c.All()))
	for _, p := range c.All() {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func (c *catalog) ProductContext(category string) string {
	products := c.ByCategory(category)
	parts := make([]string, 0, len(products))
	for _, p := range products {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Name, p.Description))
	}
	return strings.Join(parts, "; ")
}

func Default() ICatalog {
	return &catalog{
		hot: []Product{
			{Name: "Orange Zest Mocha", Category: "Hot Beverage", Description: "Mocha with orange zest garnish", Keywords: []string{"mocha", "orange", "chocolate", "hot drink"}},
			{Name: "Sea Salt Mocha", Category: "Hot Beverage", Description: "Mocha topped with sea salt foam", Keywords: []string{"mocha", "sea salt", "chocolate", "hot drink"}},
			{Name: "Peppermint Hot Chocolate", Category: "Hot Beverage", Description: "Hot chocolate with peppermint flavor", Keywords: []string{"hot chocolate", "peppermint", "chocolate", "hot drink"}},
			{Name: "Cappuccino", Category: "Hot Beverage", Description: "Classic espresso with steamed milk and foam", Keywords: []string{"cappuccino", "espresso", "coffee", "hot drink"}},
			{Name: "Latte", Category: "Hot Beverage", Description: "Espresso with steamed milk", Keywords: []string{"latte", "espresso", "coffee", "hot drink"}},
			{Name: "Flat White", Category: "Hot Beverage", Description: "Espresso with microfoam milk", Keywords: []string{"flat white", "espresso", "coffee", "hot drink"}},
		},
		cold: []Product{
			{Name: "Tiramisu Frappe", Category: "Cold Beverage", Description: "Blended coffee frappe with tiramisu flavor", Keywords: []string{"frappe", "tiramisu", "iced", "blended", "cold drink"}},
			{Name: "Cold Brew", Category: "Cold Beverage", Description: "Slow-steeped cold brew coffee", Keywords: []string{"cold brew", "iced coffee", "cold drink"}},
			{Name: "Iced Latte", Category: "Cold Beverage", Description: "Espresso with cold milk over ice", Keywords: []string{"iced latte", "iced coffee", "cold drink"}},
			{Name: "Nitro Cold Brew", Category: "Cold Beverage", Description: "Cold brew infused with nitrogen", Keywords: []string{"nitro", "cold brew", "iced coffee", "cold drink"}},
		},
		pastry: []Product{
			{Name: "Croissant", Category: "Pastry", Description: "Buttery flaky croissant", Keywords: []string{"croissant", "pastry", "baked goods"}},
			{Name: "Muffin", Category: "Pastry", Description: "Fresh baked muffin", Keywords: []string{"muffin", "pastry", "baked goods"}},
		},
	}
}
