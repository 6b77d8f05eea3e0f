package catalog

import "testing"

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load embedded catalog: %v", err)
	}
	if len(c.ProductIDs()) == 0 {
		t.Fatalf("catalog has no products")
	}

	// Every recipe input and output must reference a known product, and
	// every recipe's build kind must exist among building types.
	for _, id := range c.ProductIDs() {
		for _, r := range c.RecipesForProduct(id) {
			if r.OutputID != id {
				t.Fatalf("recipe %d indexed under product %d but outputs %d", r.ID, id, r.OutputID)
			}
			if _, ok := c.BuildingIDByKind(r.BuildKind); !ok {
				t.Fatalf("recipe %d build kind %q has no building type", r.ID, r.BuildKind)
			}
			for _, in := range r.Inputs {
				if _, ok := c.Product(in.ProductID); !ok {
					t.Fatalf("recipe %d input references unknown product %d", r.ID, in.ProductID)
				}
			}
		}
	}

	// Consumer products must be producible and carry positive base demand.
	for _, id := range c.ProductIDs() {
		p, _ := c.Product(id)
		if p.Category != CategoryConsumer {
			continue
		}
		if p.BaseDemand <= 0 {
			t.Fatalf("consumer product %s has no base demand", p.Name)
		}
		if len(c.RecipesForProduct(id)) == 0 {
			t.Fatalf("consumer product %s has no recipe", p.Name)
		}
	}
}

func TestMissingLookupsUseDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, ok := c.Product(9999); ok {
		t.Fatalf("product 9999 should not exist")
	}
	p := c.ProductOrDefault(9999)
	if p.TechBase != DefaultTechLevel || p.BasePrice != DefaultBasePrice {
		t.Fatalf("default product = %+v, want documented defaults", p)
	}

	b := c.BuildingOrDefault(9999)
	if b.Kind != KindFactory || b.BaseUpkeep <= 0 {
		t.Fatalf("default building = %+v", b)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	bad := []byte(`
[[products]]
id = 1
name = "A"
category = "raw"

[[products]]
id = 1
name = "B"
category = "raw"
`)
	if _, err := Parse(bad); err == nil {
		t.Fatalf("expected duplicate product id to fail")
	}
}
