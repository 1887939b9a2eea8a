package global

import "time"

// Config gathers every setting the service reads from the environment
type Config struct {
	Env            string
	Port           string
	BackendURL     string
	BackendTimeout time.Duration
	StorageDriver  string
	SessionTTL     time.Duration
	ShippingFee    int64
	CORSOrigins    []string
	Location       *time.Location
}

const (
	DefaultShippingFee = 30000
	DefaultSessionTTL  = 30 * 24 * time.Hour
)

// LoadConfig assumes the .env file (if any) has already been loaded
func LoadConfig() Config {
	loc, err := time.LoadLocation(GetEnvOrDefault("TIMEZONE", "Asia/Ho_Chi_Minh"))
	if err != nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}

	return Config{
		Env:            GetEnvOrDefault("ENV", "development"),
		Port:           GetEnvOrDefault("PORT", "8000"),
		BackendURL:     GetEnvOrDefault("BACKEND_URL", "http://localhost:8080/api"),
		BackendTimeout: GetEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		StorageDriver:  GetEnvOrDefault("STORAGE_DRIVER", "memory"),
		SessionTTL:     GetEnvDuration("SESSION_TTL", DefaultSessionTTL),
		ShippingFee:    GetEnvInt("SHIPPING_FEE", DefaultShippingFee),
		CORSOrigins:    GetEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		Location:       loc,
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
