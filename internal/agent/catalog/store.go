// Package catalog holds the immutable persona and product tables.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vitachat-poc-v1/server/internal/agent/model"
)

//go:embed data/personas.yaml
var personasYAML []byte

//go:embed data/products.yaml
var productsYAML []byte

// Store is read-only after construction and safe for concurrent use.
type Store struct {
	personas    []model.Persona
	products    []model.Product
	personaByID map[string]*model.Persona
	productByID map[string]*model.Product
}

// Load parses the embedded tables.
func Load() (*Store, error) {
	return Parse(personasYAML, productsYAML)
}

// MustLoad is Load that panics, for wiring in main and tests.
func MustLoad() *Store {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

// Parse builds a Store from YAML documents holding a persona list and a product list.
func Parse(personasDoc, productsDoc []byte) (*Store, error) {
	s := &Store{
		personaByID: map[string]*model.Persona{},
		productByID: map[string]*model.Product{},
	}
	if err := decodeStrict(personasDoc, &s.personas); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}
	if err := decodeStrict(productsDoc, &s.products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	for i := range s.personas {
		p := &s.personas[i]
		if p.ID == "" {
			return nil, fmt.Errorf("persona at index %d has no id", i)
		}
		if _, dup := s.personaByID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		s.personaByID[p.ID] = p
	}
	for i := range s.products {
		p := &s.products[i]
		if p.ID == "" {
			return nil, fmt.Errorf("product at index %d has no id", i)
		}
		if _, dup := s.productByID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		s.productByID[p.ID] = p
	}
	return s, nil
}

func decodeStrict(doc []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(doc))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Persona returns a copy of the persona with the given id.
func (s *Store) Persona(id string) (*model.Persona, bool) {
	p, ok := s.personaByID[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Product returns a copy of the product with the given id.
func (s *Store) Product(id string) (*model.Product, bool) {
	p, ok := s.productByID[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Personas lists personas in table order.
func (s *Store) Personas() []model.Persona {
	return append([]model.Persona(nil), s.personas...)
}

// Products lists products in table order.
func (s *Store) Products() []model.Product {
	return append([]model.Product(nil), s.products...)
}
