package checkduplicateuser

type Config struct {
	Table string
}

func LoadConfig() *Config {
	return &Config{Table: "accounts"}
}
