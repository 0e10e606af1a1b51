package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Pipe Stock & Dispatch API
// @version         1.0
// @description     Inventory ledger for pipe manufacturing: production batches, stock transactions, dispatches and batch reversal.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Permission middleware needs a DB handle for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	unitRepo := repository.NewStockUnitRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	revertOpRepo := repository.NewRevertOperationRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	// Services
	recorder := service.NewAuditRecorder(auditRepo)
	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	ledgerService := service.NewLedgerService(batchRepo, unitRepo, txRepo, customerRepo, locationRepo, recorder, txManager, wsHub)
	revertService := service.NewRevertService(batchRepo, unitRepo, txRepo, dispatchRepo, revertOpRepo, recorder, txManager, wsHub)
	batchService := service.NewBatchService(batchRepo, unitRepo, txRepo, variantRepo, recorder, txManager, wsHub)
	dispatchService := service.NewDispatchService(dispatchRepo, unitRepo, customerRepo, ledgerService, recorder, txManager, wsHub)
	variantService := service.NewVariantService(variantRepo, recorder, txManager)
	customerService := service.NewCustomerService(customerRepo, locationRepo, recorder, txManager)
	auditService := service.NewAuditService(auditRepo)
	reportService := service.NewReportService(db, txRepo)

	// Seed default roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Println("WARNING: Failed to seed roles and permissions:", err)
	}

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	batchHandler := handler.NewBatchHandler(batchService)
	transactionHandler := handler.NewTransactionHandler(ledgerService, revertService)
	dispatchHandler := handler.NewDispatchHandler(dispatchService)
	variantHandler := handler.NewVariantHandler(variantService)
	customerHandler := handler.NewCustomerHandler(customerService)
	auditHandler := handler.NewAuditHandler(auditService)
	reportHandler := handler.NewReportHandler(reportService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	batchHandler.RegisterRoutes(root)
	transactionHandler.RegisterRoutes(root)
	dispatchHandler.RegisterRoutes(root)
	variantHandler.RegisterRoutes(root)
	customerHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	reportHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
