package controller

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/errors"
	"github.com/sokocart/sokocart-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type ProductRequest struct {
	Name          string           `json:"name" binding:"required"`
	SKU           string           `json:"sku" binding:"required"`
	Description   string           `json:"description"`
	SellingPrice  decimal.Decimal  `json:"selling_price" binding:"required"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	TaxAmount     decimal.Decimal  `json:"tax_amount"`
	StockQuantity int              `json:"stock_quantity"`
	BranchID      *uint            `json:"branch_id"`
	IsActive      *bool            `json:"is_active"`
}

// GetProducts lists products
// GET /api/v1/products
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	activeOnly := c.DefaultQuery("active", "true") == "true"
	products, err := ctrl.productService.GetProducts(activeOnly)
	if err != nil {
		log.Error("Failed to fetch products", err, nil)
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProductByID returns a single product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		if stderrors.Is(err, service.ErrProductNotFound) {
			errors.NotFound(c, errors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct creates a product (admin)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	product := productFromRequest(&req)
	if err := ctrl.productService.CreateProduct(product); err != nil {
		if stderrors.Is(err, service.ErrSKUAlreadyExists) {
			errors.Conflict(c, errors.ProductSKUExists, "A product with this SKU already exists")
			return
		}
		log.Error("Failed to create product", err, map[string]interface{}{
			"sku": req.SKU,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct updates a product (admin)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	product := productFromRequest(&req)
	product.ID = id

	if err := ctrl.productService.UpdateProduct(product); err != nil {
		if stderrors.Is(err, service.ErrProductNotFound) {
			errors.NotFound(c, errors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct soft-deletes a product (admin)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(id); err != nil {
		if stderrors.Is(err, service.ErrProductNotFound) {
			errors.NotFound(c, errors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func productFromRequest(req *ProductRequest) *model.Product {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	return &model.Product{
		Name:          req.Name,
		SKU:           req.SKU,
		Description:   req.Description,
		SellingPrice:  req.SellingPrice,
		DiscountPrice: req.DiscountPrice,
		TaxAmount:     req.TaxAmount,
		StockQuantity: req.StockQuantity,
		BranchID:      req.BranchID,
		IsActive:      isActive,
	}
}
