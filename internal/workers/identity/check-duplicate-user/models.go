package checkduplicateuser

type Input struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type Output struct {
	MatchCount int  `json:"matchCount"`
	Duplicate  bool `json:"duplicate"`
}
