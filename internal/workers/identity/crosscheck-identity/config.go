package crosscheckidentity

type Config struct {
	// CaseSensitiveNames compares names byte for byte when set.
	CaseSensitiveNames bool
}

func LoadConfig() *Config {
	return &Config{CaseSensitiveNames: false}
}
