// seed-demo loads a demo business with products, ninety days of sales and a
// posting history, so the analytics and recommendation endpoints have data to
// work with out of the box.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
//
// Flags:
//
//	-business-id <uuid>  seed into an existing business instead of creating one
//	-clear               delete the business's products and sales first
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizlens/analytics_backend/config"
	"github.com/bizlens/analytics_backend/models"
	"github.com/bizlens/analytics_backend/utils"
)

const (
	demoEmail    = "demo@bizlens.local"
	demoPassword = "demo-password"
)

type demoProduct struct {
	name         string
	costPrice    string
	sellingPrice string
	category     string
}

var demoProducts = []demoProduct{
	{"Organic Coffee Beans", "8.50", "15.99", "Beverages"},
	{"Green Tea Premium", "4.00", "9.99", "Beverages"},
	{"Artisan Bread", "2.50", "6.99", "Bakery"},
	{"Chocolate Croissant", "1.80", "4.50", "Bakery"},
	{"Fresh Muffins (6pk)", "3.00", "8.99", "Bakery"},
	{"Organic Honey", "6.00", "14.99", "Pantry"},
	{"Almond Butter", "5.50", "12.99", "Pantry"},
	{"Granola Mix", "3.50", "9.49", "Breakfast"},
	{"Fresh Juice", "2.00", "5.99", "Beverages"},
	{"Protein Bars (4pk)", "4.00", "10.99", "Snacks"},
	{"Fruit Smoothie", "2.50", "6.49", "Beverages"},
	{"Bagel Pack", "2.00", "5.99", "Bakery"},
}

var demoPostTypes = []string{"reel", "story", "image"}

func main() {
	businessIdFlag := flag.String("business-id", "", "seed into this business instead of creating the demo business")
	clearFlag := flag.Bool("clear", false, "delete the business's products and sales before seeding")
	seedDays := flag.Int("days", 90, "days of sales history to generate")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	businessId := *businessIdFlag
	if businessId == "" {
		business, err := models.RegisterBusiness(ctx, models.NewBusiness{
			Name:      "BizLens Demo Cafe",
			OwnerName: "Demo Owner",
			Email:     demoEmail,
			Password:  demoPassword,
			Category:  "Food & Beverage",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create demo business (already seeded?): %v\n", err)
			os.Exit(1)
		}
		businessId = business.ID.String()
		fmt.Printf("Created demo business %s (email=%q password=%q)\n", businessId, demoEmail, demoPassword)
	}

	if *clearFlag {
		if err := clearBusinessData(ctx, businessId); err != nil {
			fmt.Fprintf(os.Stderr, "failed to clear existing data: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cleared existing products, sales and posts")
	}

	existing, err := models.GetProducts(ctx, businessId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to check existing products: %v\n", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		fmt.Fprintln(os.Stderr, "business already has products; rerun with -clear to reseed")
		os.Exit(2)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	products := make([]*models.Product, 0, len(demoProducts))
	for _, dp := range demoProducts {
		product, err := models.CreateProduct(ctx, businessId, models.NewProduct{
			Name:         dp.name,
			CostPrice:    decimal.RequireFromString(dp.costPrice),
			SellingPrice: decimal.RequireFromString(dp.sellingPrice),
			Category:     dp.category,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create product %q: %v\n", dp.name, err)
			os.Exit(1)
		}
		products = append(products, product)
	}

	endDate := utils.DateOnly(time.Now())
	startDate := endDate.AddDate(0, 0, -*seedDays)

	var saleCount int
	for _, product := range products {
		baseDemand := 0.5 + rng.Float64()*1.5

		for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
			// Roughly 70% of days see a sale for each product.
			if rng.Float64() >= 0.7 {
				continue
			}
			weekendBoost := 1.0
			if utils.WeekdayIndex(d) >= 5 {
				weekendBoost = 1.5
			}
			quantity := int(rng.NormFloat64()*2 + 5*baseDemand*weekendBoost)
			if quantity < 1 {
				quantity = 1
			}

			_, err := models.RecordSale(ctx, businessId, models.NewSale{
				ProductId: product.ID,
				Quantity:  quantity,
				SaleDate:  d.Format("2006-01-02"),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to record sale: %v\n", err)
				os.Exit(1)
			}
			saleCount++
		}
	}

	// A couple of posts per week, biased toward evenings.
	var postCount int
	postTimes := []string{"09:30", "13:00", "19:00", "19:30", "20:00"}
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		if rng.Float64() >= 0.3 {
			continue
		}
		postTime := postTimes[rng.Intn(len(postTimes))]
		_, err := models.CreateMediaPost(ctx, businessId, models.NewMediaPost{
			PostType:    demoPostTypes[rng.Intn(len(demoPostTypes))],
			Caption:     "Demo post",
			PostedAt:    d.Format("2006-01-02"),
			PostTime:    &postTime,
			Impressions: 200 + rng.Intn(2000),
			Likes:       10 + rng.Intn(150),
			Comments:    rng.Intn(25),
			Shares:      rng.Intn(15),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create media post: %v\n", err)
			os.Exit(1)
		}
		postCount++
	}

	fmt.Printf("Seeded %d products, %d sales, %d media posts for business %s\n",
		len(products), saleCount, postCount, businessId)
}

func clearBusinessData(ctx context.Context, businessId string) error {
	db := config.GetDB()

	productIds, err := models.GetProductIds(ctx, businessId)
	if err != nil {
		return err
	}
	if len(productIds) > 0 {
		if err := db.WithContext(ctx).Where("product_id IN ?", productIds).Delete(&models.Sale{}).Error; err != nil {
			return err
		}
	}
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Delete(&models.Product{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Where("business_id = ?", businessId).Delete(&models.MediaPost{}).Error
}
