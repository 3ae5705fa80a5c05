package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	GoEnv  string
	Domain string

	MongoURI string
	MongoDB  string

	RedisAddress    string
	RedisPassword   string
	IssueLimitQueue string
	DailyIssueLimit int

	JWTSecret string
	TokenTTL  time.Duration

	AdminEmail      string
	AdminPassword   string
	AdminName       string
	AdminDepartment string

	GeocoderURL       string
	GeocoderUserAgent string
	ClassifierURL     string
	ExternalTimeout   time.Duration

	MediaBackend  string
	MediaDir      string
	PublicBaseURL string

	PipelineVariant string
	AllowedOrigins  []string
}

// Production reports whether GO_ENV is "production".
func (c Config) Production() bool {
	return c.GoEnv == "production"
}

// Load reads the environment, loading a .env file first when one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	port := getenv("PORT", "8080")
	return Config{
		Port:   port,
		GoEnv:  getenv("GO_ENV", "development"),
		Domain: os.Getenv("DOMAIN"),

		MongoURI: mustGetenv("MONGODB_URI"),
		MongoDB:  getenv("MONGODB_DB", "urbanconnect"),

		RedisAddress:    os.Getenv("REDIS_ADDRESS"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		IssueLimitQueue: getenv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue-limit"),
		DailyIssueLimit: getint("DAILY_ISSUE_LIMIT", 10),

		JWTSecret: mustGetenv("JWT_SECRET"),
		TokenTTL:  getduration("TOKEN_TTL", 72*time.Hour),

		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		AdminName:       getenv("ADMIN_NAME", "Administrator"),
		AdminDepartment: getenv("ADMIN_DEPARTMENT", "Public Works"),

		GeocoderURL:       getenv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getenv("GEOCODER_USER_AGENT", "urbanconnect-be/1.0"),
		ClassifierURL:     getenv("CLASSIFIER_URL", "http://localhost:8000"),
		ExternalTimeout:   getduration("EXTERNAL_TIMEOUT", 15*time.Second),

		MediaBackend:  getenv("MEDIA_BACKEND", "gridfs"),
		MediaDir:      getenv("MEDIA_DIR", "uploads"),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),

		PipelineVariant: getenv("PIPELINE_VARIANT", "pothole"),
		AllowedOrigins:  strings.Split(getenv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func mustGetenv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("Please define the %s environment variable", key)
	}
	return v
}

func getint(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}

func getduration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}
