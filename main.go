package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/qrdine/table-order-app/cache"
	"github.com/qrdine/table-order-app/config"
	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/realtime"
	"github.com/qrdine/table-order-app/router"
	"github.com/qrdine/table-order-app/utils"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	utils.InitLogger()
	cfg := config.Load()

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	var sessionCache cache.SessionCache
	if redisClient := config.InitRedis(); redisClient != nil {
		sessionCache = cache.NewRedisSessionCache(redisClient)
		utils.InfoLogger.Println("Session cache: redis")
	} else {
		sessionCache = cache.NewMemorySessionCache()
		utils.InfoLogger.Println("Session cache: in-memory (set REDIS_ADDR for redis)")
	}

	if cfg.GeofenceBypass {
		utils.InfoLogger.Println("WARNING: geofence bypass is enabled, do not run this in production")
	}

	hub := realtime.NewHub(utils.ErrorLogger)

	r := router.SetupRouter(db, sessionCache, hub, cfg)

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.Table{},
		&models.TableSession{},
		&models.MenuCategory{},
		&models.Menu{},
		&models.Order{},
		&models.OrderItem{},
		&models.Treat{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
