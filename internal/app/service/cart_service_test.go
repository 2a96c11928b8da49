package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (CartService, *model.User, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	couponRepo := repository.NewCouponRepository(testDB)
	cartService := NewCartService(cartRepo, productRepo, couponRepo, testDB, 30)

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:          "Maize Flour 2kg",
		SKU:           "MF-2KG",
		SellingPrice:  decimal.NewFromInt(185),
		StockQuantity: 10,
		IsActive:      true,
	}
	testDB.Create(product)

	return cartService, user, product, testDB
}

func TestCartService_GetOrCreateCart_Guest(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "guest-session-1")
	require.NoError(t, err)
	assert.Equal(t, "guest-session-1", cart.SessionKey)
	assert.Nil(t, cart.UserID)
	assert.True(t, cart.IsActive)

	// Same session key resolves to the same cart
	again, err := cartService.GetOrCreateCart(nil, "guest-session-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestCartService_GetOrCreateCart_GeneratesSessionKey(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(&user.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, cart.SessionKey)
	require.NotNil(t, cart.UserID)
	assert.Equal(t, user.ID, *cart.UserID)
}

func TestCartService_GetOrCreateCart_UserIdempotent(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	first, err := cartService.GetOrCreateCart(&user.ID, "")
	require.NoError(t, err)
	second, err := cartService.GetOrCreateCart(&user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCartService_GetOrCreateCart_GuestAfterConversion(t *testing.T) {
	cartService, _, _, testDB := setupCartServiceTest(t)

	first, err := cartService.GetOrCreateCart(nil, "guest-session-1")
	require.NoError(t, err)

	// Checkout and the expiry sweeper both leave the cart inactive
	testDB.Model(&model.Cart{}).Where("id = ?", first.ID).
		Update("is_active", false)

	// Returning with the same key starts a fresh session
	replacement, err := cartService.GetOrCreateCart(nil, "guest-session-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, replacement.ID)
	assert.NotEqual(t, first.SessionKey, replacement.SessionKey)
	assert.True(t, replacement.IsActive)
	assert.Nil(t, replacement.UserID)
}

func TestCartService_GetOrCreateCart_UserAfterConversion(t *testing.T) {
	cartService, user, _, testDB := setupCartServiceTest(t)

	first, err := cartService.GetOrCreateCart(&user.ID, "")
	require.NoError(t, err)

	testDB.Model(&model.Cart{}).Where("id = ?", first.ID).
		Update("is_active", false)

	// The client may still present the converted cart's session key
	replacement, err := cartService.GetOrCreateCart(&user.ID, first.SessionKey)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, replacement.ID)
	assert.NotEqual(t, first.SessionKey, replacement.SessionKey)
	assert.True(t, replacement.IsActive)
	require.NotNil(t, replacement.UserID)
	assert.Equal(t, user.ID, *replacement.UserID)
}

func TestCartService_FindBySessionKey(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	_, err := cartService.FindBySessionKey("missing")
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart, err := cartService.GetOrCreateCart(nil, "guest-session-1")
	require.NoError(t, err)

	found, err := cartService.FindBySessionKey("guest-session-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, found.ID)
}

func TestCartService_GetOrCreateCart_ClaimsGuestCart(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	guest, err := cartService.GetOrCreateCart(nil, "guest-key")
	require.NoError(t, err)
	require.Nil(t, guest.UserID)

	claimed, err := cartService.GetOrCreateCart(&user.ID, "guest-key")
	require.NoError(t, err)
	assert.Equal(t, guest.ID, claimed.ID)
	require.NotNil(t, claimed.UserID)
	assert.Equal(t, user.ID, *claimed.UserID)
}

func TestCartService_AddItem(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)

	item, err := cartService.AddItem(cart.ID, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(185)))
	assert.True(t, item.Subtotal.Equal(decimal.NewFromInt(370)))
	assert.True(t, item.Total.Equal(decimal.NewFromInt(370)))
}

func TestCartService_AddItem_UsesDiscountPrice(t *testing.T) {
	cartService, _, _, testDB := setupCartServiceTest(t)

	discount := decimal.NewFromInt(295)
	product := &model.Product{
		Name:          "Cooking Oil 1L",
		SKU:           "CO-1L",
		SellingPrice:  decimal.NewFromInt(320),
		DiscountPrice: &discount,
		StockQuantity: 10,
		IsActive:      true,
	}
	testDB.Create(product)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)

	item, err := cartService.AddItem(cart.ID, product.ID, 1)
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(discount))
}

func TestCartService_AddItem_DedupMergesQuantity(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)

	first, err := cartService.AddItem(cart.ID, product.ID, 2)
	require.NoError(t, err)
	second, err := cartService.AddItem(cart.ID, product.ID, 3)
	require.NoError(t, err)

	// Same row, summed quantity
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.True(t, second.Subtotal.Equal(decimal.NewFromInt(925)))

	var count int64
	testDB.Model(&model.CartItem{}).Where("cart_id = ?", cart.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)

	_, err = cartService.AddItem(cart.ID, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = cartService.AddItem(cart.ID, product.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)

	_, err = cartService.AddItem(cart.ID, 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_InsufficientStock(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)

	_, err = cartService.AddItem(cart.ID, product.ID, 11)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// The stock check covers the summed quantity, not just the delta
	_, err = cartService.AddItem(cart.ID, product.ID, 6)
	require.NoError(t, err)
	_, err = cartService.AddItem(cart.ID, product.ID, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_AddItem_InactiveCart(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)
	testDB.Model(&model.Cart{}).Where("id = ?", cart.ID).Update("is_active", false)

	_, err = cartService.AddItem(cart.ID, product.ID, 1)
	assert.ErrorIs(t, err, ErrCartNotActive)
}

func TestCartService_UpdateItem(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)
	item, err := cartService.AddItem(cart.ID, product.ID, 2)
	require.NoError(t, err)

	updated, err := cartService.UpdateItem(cart.ID, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.True(t, updated.Subtotal.Equal(decimal.NewFromInt(740)))
}

func TestCartService_UpdateItem_OwnershipMismatch(t *testing.T) {
	cartService, _, product, _ := setupCartServiceTest(t)

	cartA, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)
	cartB, err := cartService.GetOrCreateCart(nil, "s2")
	require.NoError(t, err)

	item, err := cartService.AddItem(cartA.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = cartService.UpdateItem(cartB.ID, item.ID, 2)
	assert.ErrorIs(t, err, ErrItemNotInCart)
}

func TestCartService_RemoveItem(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)
	item, err := cartService.AddItem(cart.ID, product.ID, 2)
	require.NoError(t, err)

	err = cartService.RemoveItem(cart.ID, item.ID)
	require.NoError(t, err)

	var count int64
	testDB.Model(&model.CartItem{}).Where("cart_id = ?", cart.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	err = cartService.RemoveItem(cart.ID, item.ID)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_Clear_KeepsCouponBinding(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)
	_, err = cartService.AddItem(cart.ID, product.ID, 2)
	require.NoError(t, err)

	coupon := &model.Coupon{
		Code:     "SAVE10",
		Kind:     model.CouponPercentage,
		Value:    decimal.NewFromInt(10),
		IsActive: true,
	}
	testDB.Create(coupon)
	testDB.Create(&model.CartCoupon{
		CartID:         cart.ID,
		CouponID:       coupon.ID,
		DiscountAmount: decimal.NewFromInt(37),
	})

	err = cartService.Clear(cart.ID)
	require.NoError(t, err)

	var itemCount, bindingCount int64
	testDB.Model(&model.CartItem{}).Where("cart_id = ?", cart.ID).Count(&itemCount)
	testDB.Model(&model.CartCoupon{}).Where("cart_id = ?", cart.ID).Count(&bindingCount)
	assert.Equal(t, int64(0), itemCount)
	assert.Equal(t, int64(1), bindingCount)
}

func TestCartService_GetSummary(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)
	_, err = cartService.AddItem(cart.ID, product.ID, 2)
	require.NoError(t, err)

	summary, err := cartService.GetSummary(cart.ID)
	require.NoError(t, err)
	assert.True(t, summary.Totals.Subtotal.Equal(decimal.NewFromInt(370)))
	assert.True(t, summary.Discount.IsZero())
	assert.True(t, summary.TotalAfterCoupon.Equal(decimal.NewFromInt(370)))
	assert.Nil(t, summary.AppliedCoupon)

	coupon := &model.Coupon{
		Code:     "SAVE10",
		Kind:     model.CouponPercentage,
		Value:    decimal.NewFromInt(10),
		IsActive: true,
	}
	testDB.Create(coupon)
	testDB.Create(&model.CartCoupon{
		CartID:         cart.ID,
		CouponID:       coupon.ID,
		DiscountAmount: decimal.NewFromInt(37),
	})

	summary, err = cartService.GetSummary(cart.ID)
	require.NoError(t, err)
	assert.True(t, summary.Discount.Equal(decimal.NewFromInt(37)))
	assert.True(t, summary.TotalAfterCoupon.Equal(decimal.NewFromInt(333)))
	require.NotNil(t, summary.AppliedCoupon)
	assert.Equal(t, "SAVE10", summary.AppliedCoupon.Code)
}

func TestCartService_Merge(t *testing.T) {
	cartService, _, product, testDB := setupCartServiceTest(t)

	other := &model.Product{
		Name:          "Rice 5kg",
		SKU:           "RC-5KG",
		SellingPrice:  decimal.NewFromInt(780),
		StockQuantity: 10,
		IsActive:      true,
	}
	testDB.Create(other)

	dst, err := cartService.GetOrCreateCart(nil, "dst")
	require.NoError(t, err)
	src, err := cartService.GetOrCreateCart(nil, "src")
	require.NoError(t, err)

	_, err = cartService.AddItem(dst.ID, product.ID, 2)
	require.NoError(t, err)
	_, err = cartService.AddItem(src.ID, product.ID, 3)
	require.NoError(t, err)
	_, err = cartService.AddItem(src.ID, other.ID, 1)
	require.NoError(t, err)

	merged, err := cartService.Merge(dst.ID, src.ID)
	require.NoError(t, err)
	require.Len(t, merged.Items, 2)

	byProduct := map[uint]int{}
	for _, item := range merged.Items {
		byProduct[item.ProductID] = item.Quantity
	}
	assert.Equal(t, 5, byProduct[product.ID])
	assert.Equal(t, 1, byProduct[other.ID])

	// Source is emptied and deactivated
	var srcCart model.Cart
	require.NoError(t, testDB.First(&srcCart, src.ID).Error)
	assert.False(t, srcCart.IsActive)

	var srcItems int64
	testDB.Model(&model.CartItem{}).Where("cart_id = ?", src.ID).Count(&srcItems)
	assert.Equal(t, int64(0), srcItems)
}

func TestCartService_Merge_SameCart(t *testing.T) {
	cartService, _, _, _ := setupCartServiceTest(t)

	cart, err := cartService.GetOrCreateCart(nil, "s1")
	require.NoError(t, err)

	_, err = cartService.Merge(cart.ID, cart.ID)
	assert.ErrorIs(t, err, ErrMergeSameCart)
}

func TestCartService_Merge_InactiveDestination(t *testing.T) {
	cartService, _, _, testDB := setupCartServiceTest(t)

	dst, err := cartService.GetOrCreateCart(nil, "dst")
	require.NoError(t, err)
	src, err := cartService.GetOrCreateCart(nil, "src")
	require.NoError(t, err)

	testDB.Model(&model.Cart{}).Where("id = ?", dst.ID).Update("is_active", false)

	_, err = cartService.Merge(dst.ID, src.ID)
	assert.ErrorIs(t, err, ErrCartNotActive)
}
