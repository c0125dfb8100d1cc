package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	JwtKey []byte
	// Storage
	DatabasePath string
	DataDir      string
	GazetteerDir string
	// Ingestion
	SourcesPath      string
	DefaultCountry   string
	DefaultCountries []string
	CollectInterval  time.Duration
	// Nominatim
	NominatimURL       string
	NominatimUserAgent string
	// HTTP server
	ListenAddr string
	// Auth
	Username string
	Password string
	// Misc
	LogLevel string
	Timezone string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	username := os.Getenv("LOGIN_USERNAME")
	password := os.Getenv("LOGIN_PASSWORD")
	if username == "" || password == "" {
		return nil, fmt.Errorf("LOGIN_USERNAME or LOGIN_PASSWORD is not set in .env file")
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is not set in .env file")
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = filepath.Join(dataDir, "opsintel.db")
	}

	gazetteerDir := os.Getenv("GAZETTEER_DIR")
	if gazetteerDir == "" {
		gazetteerDir = filepath.Join(dataDir, "gazetteer")
	}

	nominatimURL := os.Getenv("NOMINATIM_URL")
	if nominatimURL == "" {
		nominatimURL = "https://nominatim.openstreetmap.org/search"
	}

	nominatimUA := os.Getenv("NOMINATIM_USER_AGENT")
	if nominatimUA == "" {
		nominatimUA = "opsintel/1.0"
	}

	defaultCountry := os.Getenv("DEFAULT_COUNTRY")
	if defaultCountry == "" {
		defaultCountry = "Libia"
	}

	var defaultCountries []string
	for _, c := range strings.Split(os.Getenv("DEFAULT_COUNTRIES"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			defaultCountries = append(defaultCountries, c)
		}
	}
	if len(defaultCountries) == 0 {
		defaultCountries = []string{defaultCountry}
	}

	collectInterval := 15 * time.Minute
	if raw := os.Getenv("COLLECT_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid COLLECT_INTERVAL %q: %w", raw, err)
		}
		collectInterval = parsed
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":3008"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	timezone := os.Getenv("TIMEZONE")
	if timezone == "" {
		timezone = "Africa/Tripoli"
	}

	config := &Config{
		JwtKey:             []byte(jwtSecret),
		DatabasePath:       databasePath,
		DataDir:            dataDir,
		GazetteerDir:       gazetteerDir,
		SourcesPath:        os.Getenv("SOURCES_CONFIG"),
		DefaultCountry:     defaultCountry,
		DefaultCountries:   defaultCountries,
		CollectInterval:    collectInterval,
		NominatimURL:       nominatimURL,
		NominatimUserAgent: nominatimUA,
		ListenAddr:         listenAddr,
		Username:           username,
		Password:           password,
		LogLevel:           logLevel,
		Timezone:           timezone,
	}

	return config, nil
}
