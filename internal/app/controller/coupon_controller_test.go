package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type couponControllerEnv struct {
	controller  *CouponController
	router      *gin.Engine
	cartService service.CartService
	user        *model.User
	product     *model.Product
	db          *gorm.DB
}

func setupCouponControllerTest(t *testing.T) *couponControllerEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	couponRepo := repository.NewCouponRepository(testDB)

	cartService := service.NewCartService(cartRepo, productRepo, couponRepo, testDB, 30)
	couponService := service.NewCouponService(couponRepo, cartRepo, testDB)
	couponController := NewCouponController(couponService, cartService)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:          "Sugar 1kg",
		SKU:           "SG-1KG",
		SellingPrice:  decimal.NewFromInt(150),
		StockQuantity: 50,
		IsActive:      true,
	}
	testDB.Create(product)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return &couponControllerEnv{
		controller:  couponController,
		router:      router,
		cartService: cartService,
		user:        user,
		product:     product,
		db:          testDB,
	}
}

func (env *couponControllerEnv) seedCoupon(t *testing.T, coupon *model.Coupon) *model.Coupon {
	if coupon.StartDate.IsZero() {
		coupon.StartDate = time.Now().Add(-time.Hour)
	}
	require.NoError(t, env.db.Create(coupon).Error)
	return coupon
}

func (env *couponControllerEnv) cartWithItem(t *testing.T, units int) *model.Cart {
	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, units)
	require.NoError(t, err)
	return cart
}

func TestCouponController_Apply_Success(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.seedCoupon(t, &model.Coupon{
		Code:     "SAVE10",
		Kind:     model.CouponPercentage,
		Value:    decimal.NewFromInt(10),
		IsActive: true,
	})
	env.cartWithItem(t, 1)

	env.router.POST("/cart/coupon", func(c *gin.Context) {
		setUserIDInContext(c, env.user.ID)
		env.controller.Apply(c)
	})

	jsonBody, _ := json.Marshal(ApplyCouponRequest{Code: "SAVE10"})
	req := httptest.NewRequest(http.MethodPost, "/cart/coupon", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	applied := response["applied_coupon"].(map[string]interface{})
	assert.Equal(t, "15", applied["discount_amount"]) // 10% of 150
}

func TestCouponController_Apply_UnknownCode(t *testing.T) {
	env := setupCouponControllerTest(t)
	env.cartWithItem(t, 1)

	env.router.POST("/cart/coupon", func(c *gin.Context) {
		setUserIDInContext(c, env.user.ID)
		env.controller.Apply(c)
	})

	jsonBody, _ := json.Marshal(ApplyCouponRequest{Code: "NOPE"})
	req := httptest.NewRequest(http.MethodPost, "/cart/coupon", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "COUPON_NOT_FOUND", response["error"])
}

func TestCouponController_Apply_Expired(t *testing.T) {
	env := setupCouponControllerTest(t)

	ended := time.Now().Add(-time.Hour)
	env.seedCoupon(t, &model.Coupon{
		Code:      "EXPIRED",
		Kind:      model.CouponFixed,
		Value:     decimal.NewFromInt(50),
		IsActive:  true,
		StartDate: time.Now().Add(-48 * time.Hour),
		EndDate:   &ended,
	})
	env.cartWithItem(t, 1)

	env.router.POST("/cart/coupon", func(c *gin.Context) {
		setUserIDInContext(c, env.user.ID)
		env.controller.Apply(c)
	})

	jsonBody, _ := json.Marshal(ApplyCouponRequest{Code: "EXPIRED"})
	req := httptest.NewRequest(http.MethodPost, "/cart/coupon", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "COUPON_EXPIRED", response["error"])
}

func TestCouponController_Apply_BelowMinimum(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.seedCoupon(t, &model.Coupon{
		Code:           "BIG50",
		Kind:           model.CouponFixed,
		Value:          decimal.NewFromInt(50),
		MinOrderAmount: decimal.NewFromInt(500),
		IsActive:       true,
	})
	env.cartWithItem(t, 1) // subtotal 150

	env.router.POST("/cart/coupon", func(c *gin.Context) {
		setUserIDInContext(c, env.user.ID)
		env.controller.Apply(c)
	})

	jsonBody, _ := json.Marshal(ApplyCouponRequest{Code: "BIG50"})
	req := httptest.NewRequest(http.MethodPost, "/cart/coupon", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "COUPON_BELOW_MINIMUM", response["error"])
	assert.Contains(t, response["message"], "500.00")
}

func TestCouponController_Remove_Idempotent(t *testing.T) {
	env := setupCouponControllerTest(t)
	env.cartWithItem(t, 1)

	env.router.DELETE("/cart/coupon", func(c *gin.Context) {
		setUserIDInContext(c, env.user.ID)
		env.controller.Remove(c)
	})

	// Removing when nothing is applied still succeeds
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/cart/coupon", nil)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCouponController_Preview(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.seedCoupon(t, &model.Coupon{
		Code:     "SAVE10",
		Kind:     model.CouponPercentage,
		Value:    decimal.NewFromInt(10),
		IsActive: true,
	})
	cart := env.cartWithItem(t, 1)

	env.router.GET("/cart/coupon/preview", func(c *gin.Context) {
		setUserIDInContext(c, env.user.ID)
		env.controller.Preview(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/cart/coupon/preview?code=SAVE10", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "15", response["discount"])

	// Preview never binds the coupon
	var bindings int64
	env.db.Model(&model.CartCoupon{}).Where("cart_id = ?", cart.ID).Count(&bindings)
	assert.Equal(t, int64(0), bindings)
}

func TestCouponController_Preview_MissingCode(t *testing.T) {
	env := setupCouponControllerTest(t)
	env.cartWithItem(t, 1)

	env.router.GET("/cart/coupon/preview", func(c *gin.Context) {
		setUserIDInContext(c, env.user.ID)
		env.controller.Preview(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/cart/coupon/preview", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "VALIDATION_REQUIRED", response["error"])
}

func TestCouponController_CreateCoupon(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.router.POST("/admin/coupons", env.controller.CreateCoupon)

	jsonBody, _ := json.Marshal(CouponRequest{
		Code:  "NEW10",
		Kind:  "percentage",
		Value: decimal.NewFromInt(10),
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/coupons", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	env.db.Model(&model.Coupon{}).Where("code = ?", "NEW10").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCouponController_CreateCoupon_DuplicateCode(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.seedCoupon(t, &model.Coupon{
		Code:     "SAVE10",
		Kind:     model.CouponPercentage,
		Value:    decimal.NewFromInt(10),
		IsActive: true,
	})

	env.router.POST("/admin/coupons", env.controller.CreateCoupon)

	jsonBody, _ := json.Marshal(CouponRequest{
		Code:  "save10", // codes are case-insensitive
		Kind:  "percentage",
		Value: decimal.NewFromInt(10),
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/coupons", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "COUPON_CODE_EXISTS", response["error"])
}

func TestCouponController_CreateCoupon_InvalidKind(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.router.POST("/admin/coupons", env.controller.CreateCoupon)

	jsonBody, _ := json.Marshal(CouponRequest{
		Code:  "BOGUS",
		Kind:  "buy_one_get_one",
		Value: decimal.NewFromInt(10),
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/coupons", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "COUPON_INVALID_KIND", response["error"])
}

func TestCouponController_ListCoupons_ActiveFilter(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.seedCoupon(t, &model.Coupon{
		Code: "ACTIVE", Kind: model.CouponFixed, Value: decimal.NewFromInt(5), IsActive: true,
	})
	env.seedCoupon(t, &model.Coupon{
		Code: "DISABLED", Kind: model.CouponFixed, Value: decimal.NewFromInt(5), IsActive: false,
	})

	env.router.GET("/admin/coupons", env.controller.ListCoupons)

	req := httptest.NewRequest(http.MethodGet, "/admin/coupons?active=true", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, float64(1), response["count"])
}

func TestCouponController_DeactivateCoupon_NotFound(t *testing.T) {
	env := setupCouponControllerTest(t)

	env.router.DELETE("/admin/coupons/:id", env.controller.DeactivateCoupon)

	req := httptest.NewRequest(http.MethodDelete, "/admin/coupons/9999", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "COUPON_NOT_FOUND", response["error"])
}
