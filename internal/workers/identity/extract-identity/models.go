package extractidentity

// FormField is one key/value pair read from the document.
type FormField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Output struct {
	Firstnames []string `json:"firstnames"`
	Lastname   string   `json:"lastname"`
	Birthdate  string   `json:"birthdate"`
}
