package settings

// Snapshot is the resolved, always-complete view of the remote tunable
// configuration. Every resolution starts from Defaults() and overlays the
// remote document field by field, so downstream code never sees a missing
// section or a half-filled entry.
type Snapshot struct {
	// Sizes is keyed by material id, then size id.
	Sizes map[string]map[string]SizeOption `json:"sizes"`
	// FormFactors is keyed by form factor id.
	FormFactors map[string]FormFactor `json:"form_factors"`
	// Materials is keyed by material id.
	Materials map[string]Material `json:"materials"`
	// Decorations is the add-on catalog keyed by decoration type id.
	Decorations map[string]Decoration `json:"decorations"`
}

type SizeOption struct {
	Label      string  `json:"label"`
	MM         float64 `json:"mm"`
	PriceCents int64   `json:"price_cents"`
}

type FormFactor struct {
	Label          string `json:"label"`
	Icon           string `json:"icon"`
	PromptFragment string `json:"prompt_fragment"`
	// VisualizationGender picks the mannequin used for the preview render.
	VisualizationGender string `json:"visualization_gender"`
	// Engravable marks form factors that support the engraving step.
	Engravable bool `json:"engravable"`
}

type Material struct {
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

type Decoration struct {
	Label          string  `json:"label"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	MM             float64 `json:"mm"`
}

// DefaultMaterial is the bucket legacy flat-size documents are migrated
// into.
const DefaultMaterial = "silver"

// Defaults returns the hardcoded fallback snapshot. It must stay complete:
// the resolver relies on every section being populated here.
func Defaults() *Snapshot {
	return &Snapshot{
		Sizes: map[string]map[string]SizeOption{
			"silver": {
				"s": {Label: "S", MM: 16, PriceCents: 4900},
				"m": {Label: "M", MM: 20, PriceCents: 5900},
				"l": {Label: "L", MM: 25, PriceCents: 7400},
			},
			"gold": {
				"s": {Label: "S", MM: 16, PriceCents: 10900},
				"m": {Label: "M", MM: 20, PriceCents: 13900},
				"l": {Label: "L", MM: 25, PriceCents: 17900},
			},
		},
		FormFactors: map[string]FormFactor{
			"pendant": {
				Label:               "Pendant",
				Icon:                "pendant",
				PromptFragment:      "a pendant on a fine chain",
				VisualizationGender: "female",
				Engravable:          true,
			},
			"ring": {
				Label:               "Ring",
				Icon:                "ring",
				PromptFragment:      "a ring with a sculpted face",
				VisualizationGender: "female",
				Engravable:          true,
			},
			"earrings": {
				Label:               "Earrings",
				Icon:                "earrings",
				PromptFragment:      "a pair of stud earrings",
				VisualizationGender: "female",
			},
			"cufflinks": {
				Label:               "Cufflinks",
				Icon:                "cufflinks",
				PromptFragment:      "a pair of cufflinks",
				VisualizationGender: "male",
			},
		},
		Materials: map[string]Material{
			"silver": {Label: "Sterling Silver", Enabled: true},
			"gold":   {Label: "14k Gold", Enabled: true},
		},
		Decorations: map[string]Decoration{
			"zircon": {Label: "Zircon", UnitPriceCents: 900, MM: 1.5},
			"ruby":   {Label: "Ruby", UnitPriceCents: 2400, MM: 1.5},
		},
	}
}

// SizesForMaterial returns the size options for a material, falling back
// to the default material bucket for unknown materials.
func (s *Snapshot) SizesForMaterial(material string) map[string]SizeOption {
	if sizes, ok := s.Sizes[material]; ok {
		return sizes
	}
	return s.Sizes[DefaultMaterial]
}

// PriceFor resolves the base price for a material/size pair. The second
// return is false when the size is unknown for that material.
func (s *Snapshot) PriceFor(material, size string) (int64, bool) {
	opt, ok := s.SizesForMaterial(material)[size]
	if !ok {
		return 0, false
	}
	return opt.PriceCents, true
}

// SizeMM resolves the physical dimension for a material/size pair.
func (s *Snapshot) SizeMM(material, size string) (float64, bool) {
	opt, ok := s.SizesForMaterial(material)[size]
	if !ok {
		return 0, false
	}
	return opt.MM, true
}

func (s *Snapshot) FormFactor(id string) (FormFactor, bool) {
	ff, ok := s.FormFactors[id]
	return ff, ok
}

func (s *Snapshot) MaterialEnabled(id string) bool {
	m, ok := s.Materials[id]
	return ok && m.Enabled
}

func (s *Snapshot) DecorationType(id string) (Decoration, bool) {
	d, ok := s.Decorations[id]
	return d, ok
}

// Engravable reports whether the engraving step applies to a form
// factor/size combination. Small sizes have no surface for engraving.
func (s *Snapshot) Engravable(formFactor, size string) bool {
	ff, ok := s.FormFactors[formFactor]
	if !ok || !ff.Engravable {
		return false
	}
	return size != "s"
}
