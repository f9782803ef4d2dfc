package createaccount

type Config struct {
	Table        string
	AuditEnabled bool
}

func LoadConfig() *Config {
	return &Config{
		Table:        "accounts",
		AuditEnabled: true,
	}
}
