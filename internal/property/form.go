package property

import "time"

// Choice describes a selector field
type Choice struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
	Default string   `json:"default"`
}

// Bound describes a bounded numeric field
type Bound struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`
	Slider  bool    `json:"slider"`
}

// DateField describes the sale date picker
type DateField struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Min     string `json:"min"`
	Max     string `json:"max"`
	Default string `json:"default"`
}

// FormSpec is everything the page needs to render the input form
type FormSpec struct {
	Choices []Choice  `json:"choices"`
	Bounds  []Bound   `json:"bounds"`
	Date    DateField `json:"date"`
}

// Form describes the input form. The sale date defaults to today, clamped
// into the accepted range.
func Form(today time.Time) FormSpec {
	def := CivilDate(today)
	if def.Before(MinSaleDate) {
		def = MinSaleDate
	}
	if def.After(MaxSaleDate) {
		def = MaxSaleDate
	}

	return FormSpec{
		Choices: []Choice{
			{Name: "suburb", Label: "Suburb", Options: Suburbs, Default: Suburbs[0]},
			{Name: "property_type", Label: "Property type", Options: PropertyTypes, Default: PropertyTypes[0]},
			{Name: "parking_area", Label: "Parking area", Options: ParkingAreas, Default: ParkingAreas[0]},
		},
		Bounds: []Bound{
			{Name: "building_area", Label: "Building area (m²)", Min: 10, Max: 1000, Step: 1, Default: 150},
			{Name: "landsize", Label: "Land size (m²)", Min: 10, Max: 2000, Step: 1, Default: 500},
			{Name: "year_built", Label: "Year built", Min: 1900, Max: 2025, Step: 1, Default: 1990, Slider: true},
			{Name: "bedroom", Label: "Number of bedrooms", Min: 1, Max: 6, Step: 1, Default: 3, Slider: true},
			{Name: "bathroom", Label: "Number of bathrooms", Min: 1, Max: 4, Step: 1, Default: 2, Slider: true},
			{Name: "latitude", Label: "Latitude", Min: -38.5, Max: -37.0, Step: 0.01, Default: -37.8},
			{Name: "longitude", Label: "Longitude", Min: 144.5, Max: 146.0, Step: 0.01, Default: 145.0},
		},
		Date: DateField{
			Name:    "sale_date",
			Label:   "Sale date",
			Min:     MinSaleDate.Format(DateLayout),
			Max:     MaxSaleDate.Format(DateLayout),
			Default: def.Format(DateLayout),
		},
	}
}
