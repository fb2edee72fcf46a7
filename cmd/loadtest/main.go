package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/asset-market/internal/adapter/registry"
	"github.com/rl1809/asset-market/internal/core/domain"
	"github.com/rl1809/asset-market/internal/core/service"
)

const (
	operatorAccount = "market-operator"
	escrowAccount   = "market-escrow"
	adminAccount    = "market-admin"

	seller        = "seller-1"
	assetID       = 100
	unitPrice     = 5
	saleQuantity  = 20
	totalRequests = 50
	buyerFunds    = 1_000
)

// Hammers a quantity sale with concurrent single-unit purchases and checks
// that exactly the listed quantity settles.
func main() {
	ctx := context.Background()

	uniqueAssets := registry.NewUniqueAssets()
	quantityAssets := registry.NewQuantityAssets()
	bank := registry.NewValueAccounts()

	quantityAssets.Mint(assetID, seller, saleQuantity)
	quantityAssets.SetApprovalForAll(seller, operatorAccount, true)

	market := service.NewMarketService(service.Config{
		Operator:           operatorAccount,
		Escrow:             escrowAccount,
		Admin:              adminAccount,
		UniqueRegistryID:   "unique-assets",
		QuantityRegistryID: "quantity-assets",
	}, uniqueAssets, quantityAssets, bank, nil, nil, nil, nil)

	saleID, err := market.Post(ctx, seller, domain.AssetQuantity, assetID, unitPrice, saleQuantity, 0, 0)
	if err != nil {
		log.Fatalf("failed to post sale: %v", err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(buyerID int) {
			defer wg.Done()

			buyer := fmt.Sprintf("buyer-%d", buyerID)
			bank.Credit(buyer, buyerFunds)

			_, err := market.Buy(ctx, buyer, saleID, 1, unitPrice, uuid.NewString())
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Listed Quantity:  %d\n", saleQuantity)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("========================================")

	if success == int32(saleQuantity) && fail == int32(totalRequests-saleQuantity) {
		fmt.Printf("PASS: Exactly %d purchases succeeded, %d failed\n", saleQuantity, totalRequests-saleQuantity)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			saleQuantity, totalRequests-saleQuantity, success, fail)
	}

	status, err := market.SaleStatus(saleID)
	if err != nil {
		log.Fatalf("failed to read sale status: %v", err)
	}
	fmt.Printf("Final Sale Status: %s\n", status)

	if status == domain.StatusComplete {
		fmt.Println("PASS: Sale fully settled")
	} else {
		fmt.Printf("FAIL: Expected status %s, got %s\n", domain.StatusComplete, status)
	}

	sellerBalance, _ := bank.BalanceOf(ctx, seller)
	fmt.Printf("Seller Proceeds:   %d\n", sellerBalance)
	if sellerBalance == unitPrice*saleQuantity {
		fmt.Println("PASS: Seller received exact proceeds")
	} else {
		fmt.Printf("FAIL: Expected proceeds %d, got %d\n", unitPrice*saleQuantity, sellerBalance)
	}
}
