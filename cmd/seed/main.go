package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/config"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Seeds demo branches, products and coupons. An optional xlsx path
// argument imports the product catalog from a spreadsheet instead:
//
//	go run cmd/seed/main.go [catalog.xlsx]
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	branch, err := seedBranch()
	if err != nil {
		log.Fatal("Failed to seed branch:", err)
	}

	var products []model.Product
	if len(os.Args) > 1 {
		products, err = readProductsFromXLSX(os.Args[1], branch.ID)
		if err != nil {
			log.Fatal("Failed to read XLSX:", err)
		}
	} else {
		products = demoProducts(branch.ID)
	}

	imported := 0
	for i := range products {
		var count int64
		db.GetDB().Model(&model.Product{}).Where("sku = ?", products[i].SKU).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.GetDB().Create(&products[i]).Error; err != nil {
			log.Fatal("Failed to create product:", err)
		}
		imported++
	}
	fmt.Printf("Seeded %d products (%d skipped as existing)\n", imported, len(products)-imported)

	if err := seedCoupons(); err != nil {
		log.Fatal("Failed to seed coupons:", err)
	}

	fmt.Println("Seeding completed successfully")
}

func seedBranch() (*model.Branch, error) {
	var branch model.Branch
	err := db.GetDB().Where("name = ?", "Nairobi Main").First(&branch).Error
	if err == nil {
		return &branch, nil
	}

	branch = model.Branch{
		Name:     "Nairobi Main",
		City:     "Nairobi",
		Address:  "Moi Avenue, Nairobi",
		IsActive: true,
	}
	if err := db.GetDB().Create(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func demoProducts(branchID uint) []model.Product {
	oil := decimal.NewFromInt(295)
	return []model.Product{
		{
			Name:          "Maize Flour 2kg",
			SKU:           "MF-2KG",
			SellingPrice:  decimal.NewFromInt(185),
			TaxAmount:     decimal.NewFromInt(0),
			StockQuantity: 500,
			BranchID:      &branchID,
			IsActive:      true,
		},
		{
			Name:          "Cooking Oil 1L",
			SKU:           "CO-1L",
			SellingPrice:  decimal.NewFromInt(320),
			DiscountPrice: &oil,
			TaxAmount:     decimal.NewFromInt(25),
			StockQuantity: 200,
			BranchID:      &branchID,
			IsActive:      true,
		},
		{
			Name:          "Rice 5kg",
			SKU:           "RC-5KG",
			SellingPrice:  decimal.NewFromInt(780),
			TaxAmount:     decimal.NewFromInt(0),
			StockQuantity: 150,
			BranchID:      &branchID,
			IsActive:      true,
		},
		{
			Name:          "Sugar 1kg",
			SKU:           "SG-1KG",
			SellingPrice:  decimal.NewFromInt(150),
			TaxAmount:     decimal.NewFromInt(0),
			StockQuantity: 400,
			BranchID:      &branchID,
			IsActive:      true,
		},
	}
}

func seedCoupons() error {
	endOfYear := time.Date(time.Now().Year(), 12, 31, 23, 59, 59, 0, time.UTC)
	coupons := []model.Coupon{
		{
			Code:           "SAVE10",
			Kind:           model.CouponPercentage,
			Value:          decimal.NewFromInt(10),
			MinOrderAmount: decimal.NewFromInt(100),
			StartDate:      time.Now(),
			EndDate:        &endOfYear,
			IsActive:       true,
			Description:    "10% off orders of KSh 100 or more",
		},
		{
			Code:             "KARIBU50",
			Kind:             model.CouponFixed,
			Value:            decimal.NewFromInt(50),
			MinOrderAmount:   decimal.NewFromInt(500),
			StartDate:        time.Now(),
			IsActive:         true,
			MaxUses:          1000,
			SingleUsePerUser: true,
			Description:      "KSh 50 off your first order above KSh 500",
		},
		{
			Code:        "FREESHIP",
			Kind:        model.CouponFreeShipping,
			Value:       decimal.Zero,
			StartDate:   time.Now(),
			IsActive:    true,
			Description: "Free delivery on any order",
		},
	}

	for i := range coupons {
		var count int64
		db.GetDB().Model(&model.Coupon{}).Where("code = ?", coupons[i].Code).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.GetDB().Create(&coupons[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// readProductsFromXLSX imports a catalog spreadsheet with the columns:
// Name | SKU | Selling Price | Discount Price | Tax | Stock
func readProductsFromXLSX(filePath string, branchID uint) ([]model.Product, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}

	var products []model.Product
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue // header or short row
		}

		sellingPrice, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid selling price %q", i+1, row[2])
		}

		product := model.Product{
			Name:         row[0],
			SKU:          row[1],
			SellingPrice: sellingPrice,
			BranchID:     &branchID,
			IsActive:     true,
		}

		if len(row) > 3 && row[3] != "" {
			discount, err := decimal.NewFromString(row[3])
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid discount price %q", i+1, row[3])
			}
			product.DiscountPrice = &discount
		}
		if len(row) > 4 && row[4] != "" {
			if product.TaxAmount, err = decimal.NewFromString(row[4]); err != nil {
				return nil, fmt.Errorf("row %d: invalid tax %q", i+1, row[4])
			}
		}
		if len(row) > 5 && row[5] != "" {
			stock, err := strconv.Atoi(row[5])
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid stock %q", i+1, row[5])
			}
			product.StockQuantity = stock
		}

		products = append(products, product)
	}

	return products, nil
}
