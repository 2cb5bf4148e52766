package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/db"
	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/repository"
)

func main() {
	itemCount := flag.Int("items", 50, "number of catalog items to seed")
	seed := flag.Uint64("seed", 0, "deterministic faker seed (0 = random)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if *seed != 0 {
		if err := gofakeit.Seed(*seed); err != nil {
			log.Fatalf("Failed to seed faker: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := db.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := repository.NewPool(ctx, dbURL, "shop-seeder")
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	stores := repository.NewStores(pool)
	now := time.Now()

	log.Printf("Seeding %d items...", *itemCount)
	var onSale []domain.Item
	for i := 0; i < *itemCount; i++ {
		product := gofakeit.Product()
		item := domain.Item{
			ID:                uuid.New(),
			Title:             product.Name,
			Description:       product.Description,
			Price:             decimal.NewFromFloat(product.Price).Round(2),
			QuantityAvailable: gofakeit.Number(0, 500),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := stores.Items.CreateItem(ctx, item); err != nil {
			log.Printf("Failed to seed item %q: %v", item.Title, err)
			continue
		}
		if i%10 == 0 && item.Price.IsPositive() {
			onSale = append(onSale, item)
		}
	}

	log.Printf("Seeding %d sales...", len(onSale))
	saleEnd := now.AddDate(0, 1, 0)
	for _, item := range onSale {
		sale := domain.Sale{
			ID:        uuid.New(),
			ItemID:    item.ID,
			SalePrice: item.Price.Mul(decimal.NewFromFloat(0.75)).Round(2),
			EndsAt:    &saleEnd,
			Active:    true,
			CreatedAt: now,
		}
		if err := stores.Sales.CreateSale(ctx, sale); err != nil {
			log.Printf("Failed to seed sale for %q: %v", item.Title, err)
		}
	}

	expiry := now.AddDate(1, 0, 0)
	pastExpiry := now.AddDate(0, -1, 0)
	codes := []domain.DiscountCode{
		{ID: uuid.New(), Code: "SAVE20", Percentage: decimal.NewFromInt(20), Active: true, CreatedAt: now},
		{ID: uuid.New(), Code: "SAVE10", Percentage: decimal.NewFromInt(10), ExpiresAt: &expiry, Active: true, CreatedAt: now},
		{ID: uuid.New(), Code: "EXPIRED15", Percentage: decimal.NewFromInt(15), ExpiresAt: &pastExpiry, Active: true, CreatedAt: now},
		{ID: uuid.New(), Code: "DISABLED50", Percentage: decimal.NewFromInt(50), Active: false, CreatedAt: now},
	}
	log.Printf("Seeding %d discount codes...", len(codes))
	for _, code := range codes {
		if err := stores.Discounts.CreateCode(ctx, code); err != nil {
			log.Printf("Failed to seed code %s: %v", code.Code, err)
		}
	}

	log.Println("Seeding completed successfully!")
}
