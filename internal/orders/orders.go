package orders

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// The orders screen is a static gallery until orders are sourced from the CRM.

//go:embed orders.yaml
var catalogYAML []byte

type Order struct {
	ID      int    `yaml:"id" json:"id"`
	Number  string `yaml:"number" json:"number"`
	Date    string `yaml:"date" json:"orderDate"`
	Status  string `yaml:"status" json:"status"`
	Service string `yaml:"service" json:"service"`
	Amount  string `yaml:"amount" json:"amount"`
	Details string `yaml:"-" json:"serviceDetails"`
}

type Document struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Image       string `yaml:"image" json:"image"`
	DownloadURL string `yaml:"downloadUrl" json:"downloadUrl"`
}

type Catalog struct {
	Orders         []Order    `yaml:"orders" json:"orders"`
	ServiceDetails string     `yaml:"serviceDetails" json:"-"`
	Documents      []Document `yaml:"documents" json:"documents"`
}

// Load parses the embedded gallery.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse orders catalog: %w", err)
	}

	for i := range c.Orders {
		c.Orders[i].Details = c.ServiceDetails
	}

	return &c, nil
}
