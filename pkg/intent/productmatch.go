package intent

import "strings"

// knownProductFamilies are the deterministic product-family tokens spec.md
// §4.5 step 4 and §4.6.3 name explicitly.
var knownProductFamilies = []string{
	"aristo 500 ix", "warrior 400i", "renegade 300", "renegade es 300i",
	"rebel emp 215ic", "flextec 450", "idealarc dc-600",
}

// equipmentTypeTokens are the equipment-type words paired with a named
// PowerSource to signal a compatibility query.
var equipmentTypeTokens = []string{"wire feeder", "feeder", "cooler", "torch", "regulator"}

// productMatch is the result of the deterministic product-specific
// detector.
type productMatch struct {
	product      string
	equipment    string
	application  string
	confidence   float64
	matched      bool
}

// matchKnownProduct runs the deterministic matcher for a known product
// family paired with an equipment-type token (spec.md §4.5 step 4).
func matchKnownProduct(query string) productMatch {
	lower := strings.ToLower(query)

	var product string
	for _, family := range knownProductFamilies {
		if strings.Contains(lower, family) {
			product = family
			break
		}
	}
	if product == "" {
		return productMatch{}
	}

	var equipment string
	for _, eq := range equipmentTypeTokens {
		if strings.Contains(lower, eq) {
			equipment = eq
			break
		}
	}

	if equipment != "" {
		return productMatch{product: product, equipment: equipment, application: "compatibility", confidence: 0.9, matched: true}
	}
	return productMatch{product: product, application: "product_inquiry", confidence: 0.7, matched: true}
}
