package config

import (
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Config collects everything read from the environment at boot. Services
// receive the pieces they need explicitly; nothing reads env vars later.
type Config struct {
	Port           string
	ScanBaseURL    string
	GeofenceBypass bool
}

func Load() Config {
	cfg := Config{
		Port:           os.Getenv("PORT"),
		ScanBaseURL:    os.Getenv("SCAN_BASE_URL"),
		GeofenceBypass: os.Getenv("GEOFENCE_BYPASS") == "true",
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ScanBaseURL == "" {
		cfg.ScanBaseURL = "http://localhost:" + cfg.Port
	}
	return cfg
}

// InitDB opens the mysql connection described by the DB_* variables.
func InitDB() (*gorm.DB, error) {
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")

	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3306"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, pass, host, port, name)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

// InitRedis builds the client for the session cache. An empty REDIS_ADDR
// means "no redis here"; the caller falls back to the in-memory cache.
func InitRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
}
