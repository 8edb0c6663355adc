package graphstore

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/weldtech/sparky/internal/errors"
	"github.com/weldtech/sparky/pkg/domain"
)

// nodeToProduct maps a neo4j.Node's properties onto the domain Product.
func nodeToProduct(node dbtype.Node) domain.Product {
	props := node.Props

	p := domain.Product{
		GIN:         asString(props["gin"]),
		Name:        asString(props["name"]),
		Category:    domain.ParseCategory(asString(props["category"])),
		Subcategory: asString(props["subcategory"]),
		Description: asString(props["description"]),
		IsAvailable: asBool(props["is_available"]),
	}
	if sf, ok := props["sales_frequency"]; ok {
		p.SalesFrequency = int(asInt64(sf))
	}
	if price, ok := props["price"]; ok {
		f := asFloat64(price)
		p.Price = &f
	}
	return p
}

func rowsToProducts(rows []map[string]any, key string) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		raw, ok := row[key]
		if !ok {
			continue
		}
		node, ok := raw.(dbtype.Node)
		if !ok {
			return nil, errors.ParseError(key, "neo4j.Node", fmt.Errorf("unexpected type %T", raw))
		}
		out = append(out, nodeToProduct(node))
	}
	return out, nil
}

func rowsToScored(rows []map[string]any, nodeKey, scoreKey, source string) ([]domain.ScoredProduct, error) {
	out := make([]domain.ScoredProduct, 0, len(rows))
	for _, row := range rows {
		raw, ok := row[nodeKey]
		if !ok {
			continue
		}
		node, ok := raw.(dbtype.Node)
		if !ok {
			return nil, errors.ParseError(nodeKey, "neo4j.Node", fmt.Errorf("unexpected type %T", raw))
		}
		score := asFloat64(row[scoreKey])
		out = append(out, domain.ScoredProduct{Product: nodeToProduct(node), Score: score, Source: source})
	}
	return out, nil
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	if v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
