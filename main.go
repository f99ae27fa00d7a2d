package main

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fiyin-bug/backend-lumii/cache"
	"github.com/fiyin-bug/backend-lumii/config"
	"github.com/fiyin-bug/backend-lumii/controller"
	"github.com/fiyin-bug/backend-lumii/kafka"
	"github.com/fiyin-bug/backend-lumii/mailer"
	"github.com/fiyin-bug/backend-lumii/model"
	"github.com/fiyin-bug/backend-lumii/paystack"
	"github.com/fiyin-bug/backend-lumii/routes"
	"github.com/fiyin-bug/backend-lumii/service"
	"github.com/fiyin-bug/backend-lumii/store"
)

func initDB(cfg *config.Config) *gorm.DB {
	dsn := "host=" + cfg.DBHost +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPass +
		" dbname=" + cfg.DBName +
		" port=" + cfg.DBPort +
		" sslmode=disable TimeZone=UTC"

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect orders db:", err)
	}

	if err := db.AutoMigrate(&model.Order{}, &model.Payment{}); err != nil {
		log.Fatal(err)
	}

	return db
}

func main() {
	cfg := config.Load()

	db := initDB(cfg)
	st, err := store.New(db)
	if err != nil {
		log.Fatal("failed to get sql.DB from gorm:", err)
	}

	if cfg.PaystackSecretKey == "" {
		log.Println("PAYSTACK_SECRET_KEY not set — payment initialization will refuse until configured")
	}
	gateway := paystack.NewClient(cfg.PaystackSecretKey)

	rdb := cache.Connect(cfg.RedisAddr)
	producer := kafka.NewProducer(cfg.KafkaBroker)

	m := mailer.New(cfg)
	m.Verify()

	dispatcher := service.NewDispatcher(m, producer)
	svc := service.New(st, gateway, dispatcher, rdb, cfg)
	pc := controller.NewPaymentController(svc, cfg.PaystackSecretKey)

	app := fiber.New()
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	routes.RegisterPaymentRoutes(app, pc)

	log.Printf("HTTP server running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("fiber error:", err)
	}
}
