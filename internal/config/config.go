// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Wire formats understood by the recommendation service client.
const (
	FormatCriteria = "criteria"
	FormatBoundary = "boundary"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	ServerPort     string
	AllowedOrigins []string

	// Recommendation service
	RecommenderURL     string
	RecommenderFormat  string
	RecommenderTimeout time.Duration

	// Draft fields that must be filled before a search is submitted
	RequiredFields []string

	// Initial map viewport
	MapCenterLat float64
	MapCenterLng float64
	MapZoom      float64

	// Environment
	Environment string
}

// New creates a new Config with values from the environment, an optional .env
// file, or defaults.
func New() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		AllowedOrigins:     getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		RecommenderURL:     getEnv("RECOMMENDER_URL", "http://localhost:5000/get-optimal-locations"),
		RecommenderFormat:  getEnv("RECOMMENDER_FORMAT", FormatCriteria),
		RecommenderTimeout: time.Duration(getEnvInt("RECOMMENDER_TIMEOUT_SECONDS", 60)) * time.Second,
		RequiredFields:     getEnvSlice("REQUIRED_FIELDS", []string{"continent", "powerPlantType", "startDate", "endDate"}),
		MapCenterLat:       getEnvFloat("MAP_CENTER_LAT", 0),
		MapCenterLng:       getEnvFloat("MAP_CENTER_LNG", 0),
		MapZoom:            getEnvFloat("MAP_ZOOM", 2),
		Environment:        getEnv("ENVIRONMENT", "development"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsesBoundaryFormat reports whether searches are sent as a bounding box
// rather than as the raw criteria.
func (c *Config) UsesBoundaryFormat() bool {
	return c.RecommenderFormat == FormatBoundary
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvSlice splits a comma-separated value. An explicitly empty variable
// yields an empty slice, which is how REQUIRED_FIELDS is switched off.
func getEnvSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
