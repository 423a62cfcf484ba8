package allergen

// Canonical allergen group slugs, following the FDA major-allergen list.
const (
	Milk      = "milk"
	Egg       = "egg"
	Peanut    = "peanut"
	TreeNut   = "tree-nut"
	Soy       = "soy"
	Wheat     = "wheat"
	Fish      = "fish"
	Shellfish = "shellfish"
	Sesame    = "sesame"
)

// Groups is the set of canonical allergen group slugs.
var Groups = map[string]bool{
	Milk:      true,
	Egg:       true,
	Peanut:    true,
	TreeNut:   true,
	Soy:       true,
	Wheat:     true,
	Fish:      true,
	Shellfish: true,
	Sesame:    true,
}

// aliases maps food-name slugs to their canonical allergen group.
// This is built-in knowledge for the foods parents typically log during
// first introductions; a miss just means no automatic flag.
var aliases = map[string]string{
	// Milk
	"dairy":      Milk,
	"cow-s-milk": Milk,
	"cows-milk":  Milk,
	"whole-milk": Milk,
	"yogurt":     Milk,
	"yoghurt":    Milk,
	"cheese":     Milk,
	"butter":     Milk,
	"cream":      Milk,
	"kefir":      Milk,

	// Egg
	"eggs":           Egg,
	"egg-yolk":       Egg,
	"egg-white":      Egg,
	"scrambled-egg":  Egg,
	"scrambled-eggs": Egg,

	// Peanut
	"peanuts":       Peanut,
	"peanut-butter": Peanut,
	"groundnut":     Peanut,
	"peanut-puff":   Peanut,
	"peanut-puffs":  Peanut,

	// Tree nuts
	"tree-nuts":     TreeNut,
	"almond":        TreeNut,
	"almonds":       TreeNut,
	"almond-butter": TreeNut,
	"cashew":        TreeNut,
	"cashews":       TreeNut,
	"cashew-butter": TreeNut,
	"walnut":        TreeNut,
	"walnuts":       TreeNut,
	"pecan":         TreeNut,
	"pecans":        TreeNut,
	"pistachio":     TreeNut,
	"pistachios":    TreeNut,
	"hazelnut":      TreeNut,
	"hazelnuts":     TreeNut,
	"macadamia":     TreeNut,

	// Soy
	"soybean":   Soy,
	"soybeans":  Soy,
	"soy-milk":  Soy,
	"tofu":      Soy,
	"edamame":   Soy,
	"tempeh":    Soy,
	"soy-sauce": Soy,

	// Wheat
	"wheat-cereal": Wheat,
	"wheat-toast":  Wheat,
	"gluten":       Wheat,

	// Fish
	"cod":      Fish,
	"salmon":   Fish,
	"tuna":     Fish,
	"tilapia":  Fish,
	"sardine":  Fish,
	"sardines": Fish,
	"haddock":  Fish,

	// Shellfish
	"shrimp":   Shellfish,
	"prawn":    Shellfish,
	"prawns":   Shellfish,
	"crab":     Shellfish,
	"lobster":  Shellfish,
	"scallop":  Shellfish,
	"scallops": Shellfish,
	"clam":     Shellfish,
	"clams":    Shellfish,
	"mussel":   Shellfish,
	"mussels":  Shellfish,
	"oyster":   Shellfish,
	"oysters":  Shellfish,

	// Sesame
	"sesame-seed":  Sesame,
	"sesame-seeds": Sesame,
	"tahini":       Sesame,
	"hummus":       Sesame,
}

// Canonical resolves a food name to its allergen group.
// Matching runs on the slug: exact group, known alias, then a
// token-level scan so "Crunchy Peanut Butter" still resolves to peanut.
func Canonical(foodName string) (string, bool) {
	slug := Slugify(foodName)
	if slug == "" {
		return "", false
	}

	if Groups[slug] {
		return slug, true
	}
	if group, ok := aliases[slug]; ok {
		return group, true
	}

	// Scan tokens and adjacent token pairs for a known group or alias.
	tokens := splitSlug(slug)
	for i, tok := range tokens {
		if Groups[tok] {
			return tok, true
		}
		if group, ok := aliases[tok]; ok {
			return group, true
		}
		if i+1 < len(tokens) {
			pair := tokens[i] + "-" + tokens[i+1]
			if Groups[pair] {
				return pair, true
			}
			if group, ok := aliases[pair]; ok {
				return group, true
			}
		}
	}

	return "", false
}

// Normalize slugs each entry of a recipe or filter allergen list,
// resolving known aliases to their group and dropping duplicates.
// Order of first appearance is preserved.
func Normalize(names []string) []string {
	if names == nil {
		return nil
	}

	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		if group, ok := Canonical(name); ok {
			slug = group
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

func splitSlug(slug string) []string {
	var tokens []string
	start := 0
	for i := 0; i <= len(slug); i++ {
		if i == len(slug) || slug[i] == '-' {
			if i > start {
				tokens = append(tokens, slug[start:i])
			}
			start = i + 1
		}
	}
	return tokens
}
