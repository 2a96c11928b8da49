package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderTestEnv struct {
	orderService  OrderService
	cartService   CartService
	couponService CouponService
	user          *model.User
	product       *model.Product
	db            *gorm.DB
}

func setupOrderServiceTest(t *testing.T) *orderTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	couponRepo := repository.NewCouponRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	user := &model.User{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Name:         "Buyer",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:          "Rice 5kg",
		SKU:           "RC-5KG",
		SellingPrice:  decimal.NewFromInt(780),
		TaxAmount:     decimal.NewFromInt(20),
		StockQuantity: 10,
		IsActive:      true,
	}
	testDB.Create(product)

	return &orderTestEnv{
		orderService:  NewOrderService(orderRepo, testDB),
		cartService:   NewCartService(cartRepo, productRepo, couponRepo, testDB, 30),
		couponService: NewCouponService(couponRepo, cartRepo, testDB),
		user:          user,
		product:       product,
		db:            testDB,
	}
}

func TestOrderService_CheckoutCart(t *testing.T) {
	env := setupOrderServiceTest(t)

	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, 2)
	require.NoError(t, err)

	order, err := env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	require.NoError(t, err)

	// subtotal 1560 plus the line tax of 20
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(1560)))
	assert.True(t, order.TaxAmount.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1580)))
	assert.Equal(t, model.OrderStatusPending, order.Status)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, 2, order.OrderItems[0].Quantity)

	// Stock decremented
	var product model.Product
	require.NoError(t, env.db.First(&product, env.product.ID).Error)
	assert.Equal(t, 8, product.StockQuantity)

	// Cart emptied, deactivated and linked to the order
	var converted model.Cart
	require.NoError(t, env.db.First(&converted, cart.ID).Error)
	assert.False(t, converted.IsActive)
	require.NotNil(t, converted.ConvertedOrderID)
	assert.Equal(t, order.ID, *converted.ConvertedOrderID)

	var items int64
	env.db.Model(&model.CartItem{}).Where("cart_id = ?", cart.ID).Count(&items)
	assert.Equal(t, int64(0), items)
}

func TestOrderService_CheckoutCart_CarriesCouponDiscount(t *testing.T) {
	env := setupOrderServiceTest(t)

	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, 1)
	require.NoError(t, err)

	coupon := &model.Coupon{
		Code:      "SAVE10",
		Kind:      model.CouponPercentage,
		Value:     decimal.NewFromInt(10),
		IsActive:  true,
		StartDate: time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.db.Create(coupon).Error)
	_, err = env.couponService.ApplyToCart(cart.ID, "SAVE10", &env.user.ID, decimal.Zero)
	require.NoError(t, err)

	order, err := env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	require.NoError(t, err)

	// subtotal 780, discount 10% of subtotal = 78, tax 20
	assert.True(t, order.DiscountAmount.Equal(decimal.NewFromInt(78)))
	assert.Equal(t, "SAVE10", order.CouponCode)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(722)))
}

func TestOrderService_CheckoutCart_EmptyCart(t *testing.T) {
	env := setupOrderServiceTest(t)

	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)

	_, err = env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_CheckoutCart_Terminal(t *testing.T) {
	env := setupOrderServiceTest(t)

	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, 1)
	require.NoError(t, err)

	_, err = env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	require.NoError(t, err)

	// The converted cart rejects everything
	_, err = env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	assert.ErrorIs(t, err, ErrCartNotActive)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, 1)
	assert.ErrorIs(t, err, ErrCartNotActive)
}

func TestOrderService_CheckoutCart_InsufficientStock(t *testing.T) {
	env := setupOrderServiceTest(t)

	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, 5)
	require.NoError(t, err)

	// Stock drops after the item was added
	env.db.Model(&model.Product{}).Where("id = ?", env.product.ID).
		Update("stock_quantity", 3)

	_, err = env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing was committed
	var cartRow model.Cart
	require.NoError(t, env.db.First(&cartRow, cart.ID).Error)
	assert.True(t, cartRow.IsActive)

	var orders int64
	env.db.Model(&model.Order{}).Count(&orders)
	assert.Equal(t, int64(0), orders)
}

func TestOrderService_GetUserOrders(t *testing.T) {
	env := setupOrderServiceTest(t)

	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, 1)
	require.NoError(t, err)
	_, err = env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	require.NoError(t, err)

	orders, err := env.orderService.GetUserOrders(env.user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = env.orderService.GetUserOrders(env.user.ID + 1)
	require.NoError(t, err)
	assert.Len(t, orders, 0)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	env := setupOrderServiceTest(t)

	cart, err := env.cartService.GetOrCreateCart(&env.user.ID, "")
	require.NoError(t, err)
	_, err = env.cartService.AddItem(cart.ID, env.product.ID, 1)
	require.NoError(t, err)
	order, err := env.orderService.CheckoutCart(cart.ID, &env.user.ID)
	require.NoError(t, err)

	require.NoError(t, env.orderService.UpdateOrderStatus(order.ID, model.OrderStatusConfirmed))

	refreshed, err := env.orderService.GetOrderByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, refreshed.Status)

	err = env.orderService.UpdateOrderStatus(9999, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
