package validateaddress

type Input struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

type Output struct {
	NormalizedAddress string  `json:"normalizedAddress"`
	ConfidenceScore   float64 `json:"confidenceScore"`
}

// SearchResponse is the GeoJSON feature collection returned by the
// geocoding search endpoint.
type SearchResponse struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Properties FeatureProperties `json:"properties"`
}

type FeatureProperties struct {
	Label    string   `json:"label"`
	Score    *float64 `json:"score"`
	Postcode string   `json:"postcode"`
	City     string   `json:"city"`
}
