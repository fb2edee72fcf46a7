package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/asset-market/internal/adapter/handler"
	"github.com/rl1809/asset-market/internal/adapter/registry"
	"github.com/rl1809/asset-market/internal/adapter/storage"
	"github.com/rl1809/asset-market/internal/core/service"
)

const (
	operatorAccount = "market-operator"
	escrowAccount   = "market-escrow"

	demoSeller      = "seller-1"
	demoUniqueAsset = 1
	demoMultiAsset  = 100
	demoMultiSupply = 1000
	demoBuyerFunds  = 1_000_000
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpAddr := getenv("HTTP_ADDR", ":8080")
	mysqlDSN := getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/assetmarket?parseTime=true")
	redisAddr := getenv("REDIS_ADDR", "localhost:6379")
	adminAccount := getenv("MARKET_ADMIN", "market-admin")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize MySQL
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)

	// Asset collaborators. These stand in for the external registries; a
	// deployment against real registries swaps in clients implementing
	// the same ports.
	uniqueAssets := registry.NewUniqueAssets()
	quantityAssets := registry.NewQuantityAssets()
	valueAccounts := registry.NewValueAccounts()
	seedDemoAssets(uniqueAssets, quantityAssets, valueAccounts)

	market := service.NewMarketService(service.Config{
		Operator:           operatorAccount,
		Escrow:             escrowAccount,
		Admin:              adminAccount,
		UniqueRegistryID:   "unique-assets",
		QuantityRegistryID: "quantity-assets",
	}, uniqueAssets, quantityAssets, valueAccounts, mysqlAdapter, redisAdapter, redisAdapter, logger)

	// Rebuild the in-memory ledger from the durable copy.
	persisted, err := mysqlAdapter.ListSales(ctx)
	if err != nil {
		log.Fatalf("failed to load persisted sales: %v", err)
	}
	market.Hydrate(persisted)
	log.Printf("hydrated %d sales from mysql", len(persisted))

	// HTTP server
	router := gin.New()
	router.Use(gin.Recovery())
	httpHandler := handler.NewHTTPHandler(market, logger)
	httpHandler.Register(router)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}

// seedDemoAssets mints a demo asset set so the market is usable out of the
// box: one unique asset and a quantity balance for the demo seller, both
// pre-approved for the operator, plus funded buyer accounts.
func seedDemoAssets(unique *registry.UniqueAssets, quantity *registry.QuantityAssets, bank *registry.ValueAccounts) {
	if err := unique.Mint(demoUniqueAsset, demoSeller); err != nil {
		log.Fatalf("failed to mint demo asset: %v", err)
	}
	if err := unique.Approve(demoSeller, operatorAccount, demoUniqueAsset); err != nil {
		log.Fatalf("failed to approve demo asset: %v", err)
	}

	quantity.Mint(demoMultiAsset, demoSeller, demoMultiSupply)
	quantity.SetApprovalForAll(demoSeller, operatorAccount, true)

	for _, account := range []string{"buyer-1", "buyer-2", "buyer-3"} {
		bank.Credit(account, demoBuyerFunds)
	}
	log.Printf("seeded demo assets for %s", demoSeller)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
