package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/app/pricing"
	"github.com/sokocart/sokocart-backend/internal/app/repository"
	"github.com/sokocart/sokocart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartNotActive     = errors.New("cart is no longer active")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrItemNotInCart     = errors.New("cart item does not belong to this cart")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrMergeSameCart     = errors.New("cannot merge a cart into itself")
)

// CartSummary is a cart together with its derived totals and the
// currently applied coupon discount, if any.
type CartSummary struct {
	Cart             *model.Cart      `json:"cart"`
	Totals           pricing.Totals   `json:"totals"`
	Discount         decimal.Decimal  `json:"discount"`
	TotalAfterCoupon decimal.Decimal  `json:"total_after_coupon"`
	AppliedCoupon    *model.Coupon    `json:"applied_coupon,omitempty"`
}

type CartService interface {
	GetOrCreateCart(userID *uint, sessionKey string) (*model.Cart, error)
	FindBySessionKey(sessionKey string) (*model.Cart, error)
	GetSummary(cartID uint) (*CartSummary, error)
	AddItem(cartID, productID uint, quantity int) (*model.CartItem, error)
	UpdateItem(cartID, itemID uint, quantity int) (*model.CartItem, error)
	RemoveItem(cartID, itemID uint) error
	Clear(cartID uint) error
	Merge(dstCartID, srcCartID uint) (*model.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	couponRepo  repository.CouponRepository
	db          *gorm.DB
	expiryDays  int
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	db *gorm.DB,
	expiryDays int,
) CartService {
	if expiryDays <= 0 {
		expiryDays = 30
	}
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		couponRepo:  couponRepo,
		db:          db,
		expiryDays:  expiryDays,
	}
}

// GetOrCreateCart resolves the caller's active cart, creating one when
// none exists. Idempotent by (user, active) for authenticated callers
// and by session key for guests. A guest cart found under the session
// key of a now-authenticated caller is claimed for that user.
func (s *cartService) GetOrCreateCart(userID *uint, sessionKey string) (*model.Cart, error) {
	logger.Debug("Resolving cart", map[string]interface{}{
		"user_id":     userID,
		"session_key": sessionKey,
	})

	if userID != nil {
		cart, err := s.cartRepo.FindActiveCartByUser(*userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to look up active cart", err, map[string]interface{}{
				"user_id": *userID,
			})
			return nil, err
		}

		// No active cart yet. If the session key points at an unclaimed
		// guest cart, claim it instead of creating a duplicate.
		if sessionKey != "" {
			guest, err := s.cartRepo.FindCartBySessionKey(sessionKey)
			if err == nil {
				if guest.IsActive && guest.UserID == nil {
					guest.UserID = userID
					if err := s.cartRepo.SaveCart(guest); err != nil {
						return nil, err
					}
					logger.Info("Guest cart claimed by user", map[string]interface{}{
						"cart_id": guest.ID,
						"user_id": *userID,
					})
					return guest, nil
				}
				// The key is tied to a converted, expired or foreign
				// cart; the new cart needs a key of its own.
				sessionKey = ""
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	} else if sessionKey != "" {
		cart, err := s.cartRepo.FindCartBySessionKey(sessionKey)
		if err == nil {
			if cart.IsActive {
				return cart, nil
			}
			// Converted and swept carts keep their key for the order
			// audit trail, so the replacement starts a fresh session.
			sessionKey = ""
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to look up cart by session key", err, map[string]interface{}{
				"session_key": sessionKey,
			})
			return nil, err
		}
	}

	cart := &model.Cart{
		SessionKey: sessionKey,
		UserID:     userID,
		IsActive:   true,
		ExpiresAt:  time.Now().AddDate(0, 0, s.expiryDays),
	}
	if cart.SessionKey == "" {
		cart.SessionKey = uuid.New().String()
	}

	if err := s.cartRepo.CreateCart(cart); err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		// The partial unique index on (user_id) WHERE is_active closes
		// the get-or-create race; on a lost race, return the winner.
		if userID != nil {
			winner, ferr := s.cartRepo.FindActiveCartByUser(*userID)
			if ferr == nil {
				logger.Warn("Lost cart creation race, returning existing cart", map[string]interface{}{
					"user_id": *userID,
				})
				return winner, nil
			}
			if !errors.Is(ferr, gorm.ErrRecordNotFound) {
				return nil, ferr
			}
		}
		// The collision was on the session key; retry under a fresh one.
		cart.SessionKey = uuid.New().String()
		if err := s.cartRepo.CreateCart(cart); err != nil {
			return nil, err
		}
	}

	logger.Info("Cart created", map[string]interface{}{
		"cart_id":     cart.ID,
		"user_id":     userID,
		"session_key": cart.SessionKey,
	})
	return cart, nil
}

// FindBySessionKey looks a cart up without creating one. Callers that
// only want to know whether a guest cart exists use this instead of
// GetOrCreateCart.
func (s *cartService) FindBySessionKey(sessionKey string) (*model.Cart, error) {
	cart, err := s.cartRepo.FindCartBySessionKey(sessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetSummary(cartID uint) (*CartSummary, error) {
	cart, err := s.cartRepo.FindCartByID(cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	totals := pricing.CartTotals(cart.Items)
	summary := &CartSummary{
		Cart:             cart,
		Totals:           totals,
		Discount:         decimal.Zero,
		TotalAfterCoupon: totals.Total,
	}

	cartCoupon, err := s.couponRepo.FindCartCoupon(cartID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to look up applied coupon", err, map[string]interface{}{
				"cart_id": cartID,
			})
			return nil, err
		}
		return summary, nil
	}

	summary.Discount = cartCoupon.DiscountAmount
	summary.TotalAfterCoupon = pricing.TotalAfterDiscount(totals.Total, cartCoupon.DiscountAmount)
	summary.AppliedCoupon = &cartCoupon.Coupon
	return summary, nil
}

func (s *cartService) AddItem(cartID, productID uint, quantity int) (*model.CartItem, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.activeCart(cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"cart_id":    cartID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	existing, err := s.cartRepo.FindItemByCartAndProduct(cart.ID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return nil, err
	}

	requestedQuantity := quantity
	if existing != nil {
		requestedQuantity = existing.Quantity + quantity
	}

	if product.StockQuantity < requestedQuantity {
		logger.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
			"requested":  requestedQuantity,
			"available":  product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	// Dedup contract: same product merges into one row with summed
	// quantity, keeping the original price snapshot.
	if existing != nil {
		existing.Quantity = requestedQuantity
		if err := s.cartRepo.SaveItem(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	item := &model.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.EffectivePrice(),
		TaxAmount: product.TaxAmount,
	}
	if err := s.cartRepo.CreateItem(item); err != nil {
		return nil, err
	}

	logger.Info("Cart item added", map[string]interface{}{
		"cart_item_id": item.ID,
		"cart_id":      cart.ID,
	})
	return item, nil
}

func (s *cartService) UpdateItem(cartID, itemID uint, quantity int) (*model.CartItem, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"cart_id":      cartID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.activeCart(cartID); err != nil {
		return nil, err
	}

	item, err := s.ownedItem(cartID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if product.StockQuantity < quantity {
		logger.Warn("Cannot update cart item: insufficient stock", map[string]interface{}{
			"cart_item_id": itemID,
			"requested":    quantity,
			"available":    product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	item.Quantity = quantity
	if err := s.cartRepo.SaveItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *cartService) RemoveItem(cartID, itemID uint) error {
	logger.Info("Removing cart item", map[string]interface{}{
		"cart_id":      cartID,
		"cart_item_id": itemID,
	})

	if _, err := s.activeCart(cartID); err != nil {
		return err
	}

	if _, err := s.ownedItem(cartID, itemID); err != nil {
		return err
	}

	return s.cartRepo.DeleteItem(itemID)
}

// Clear removes every item from the cart. An applied coupon binding is
// intentionally left in place; removing it is a separate operation.
func (s *cartService) Clear(cartID uint) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"cart_id": cartID,
	})

	if _, err := s.activeCart(cartID); err != nil {
		return err
	}

	return s.cartRepo.DeleteItemsByCart(cartID)
}

// Merge folds srcCart into dstCart: matching products add quantities,
// everything else is copied across at the source's price snapshot. The
// source is then emptied and deactivated. The whole merge runs inside
// one transaction so a partial merge cannot leak inconsistent rows.
func (s *cartService) Merge(dstCartID, srcCartID uint) (*model.Cart, error) {
	logger.Info("Merging carts", map[string]interface{}{
		"dst_cart_id": dstCartID,
		"src_cart_id": srcCartID,
	})

	if dstCartID == srcCartID {
		return nil, ErrMergeSameCart
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var dst, src model.Cart
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&dst, dstCartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}
		if !dst.IsActive {
			return ErrCartNotActive
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&src, srcCartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}

		var srcItems []model.CartItem
		if err := tx.Where("cart_id = ?", src.ID).Find(&srcItems).Error; err != nil {
			return err
		}

		for _, srcItem := range srcItems {
			var dstItem model.CartItem
			err := tx.Where("cart_id = ? AND product_id = ?", dst.ID, srcItem.ProductID).
				First(&dstItem).Error
			switch {
			case err == nil:
				dstItem.Quantity += srcItem.Quantity
				if err := tx.Save(&dstItem).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				copied := model.CartItem{
					CartID:         dst.ID,
					ProductID:      srcItem.ProductID,
					Quantity:       srcItem.Quantity,
					UnitPrice:      srcItem.UnitPrice,
					TaxAmount:      srcItem.TaxAmount,
					DiscountAmount: srcItem.DiscountAmount,
				}
				if err := tx.Create(&copied).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}

		if err := tx.Where("cart_id = ?", src.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Cart{}).Where("id = ?", src.ID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.Cart{}).Where("id = ?", dst.ID).
			UpdateColumn("updated_at", time.Now()).Error
	})
	if err != nil {
		logger.Error("Cart merge failed", err, map[string]interface{}{
			"dst_cart_id": dstCartID,
			"src_cart_id": srcCartID,
		})
		return nil, err
	}

	logger.Info("Carts merged", map[string]interface{}{
		"dst_cart_id": dstCartID,
		"src_cart_id": srcCartID,
	})
	return s.cartRepo.FindCartByID(dstCartID)
}

func (s *cartService) activeCart(cartID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.FindCartByID(cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	if !cart.IsActive {
		logger.Warn("Rejected mutation of inactive cart", map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, ErrCartNotActive
	}
	return cart, nil
}

func (s *cartService) ownedItem(cartID, itemID uint) (*model.CartItem, error) {
	item, err := s.cartRepo.FindItemByID(itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	if item.CartID != cartID {
		logger.Warn("Cart item access denied: ownership mismatch", map[string]interface{}{
			"cart_id":      cartID,
			"cart_item_id": itemID,
			"owner_cart":   item.CartID,
		})
		return nil, ErrItemNotInCart
	}
	return item, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
