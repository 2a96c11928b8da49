package errors

// Error code constants, format: CATEGORY_SPECIFIC_DETAIL.
// Frontends map these codes to localized messages.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput    = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID       = "VALIDATION_INVALID_ID"
	ValidationInvalidQuantity = "VALIDATION_INVALID_QUANTITY"
	ValidationRequired        = "VALIDATION_REQUIRED"

	// ==================== Cart (CART_) ====================
	CartNotFound     = "CART_NOT_FOUND"
	CartNotActive    = "CART_NOT_ACTIVE"
	CartItemNotFound = "CART_ITEM_NOT_FOUND"
	CartItemConflict = "CART_ITEM_CONFLICT"
	CartEmpty        = "CART_EMPTY"

	// ==================== Coupon (COUPON_) ====================
	CouponNotFound       = "COUPON_NOT_FOUND"
	CouponInactive       = "COUPON_INACTIVE"
	CouponNotStarted     = "COUPON_NOT_STARTED"
	CouponExpired        = "COUPON_EXPIRED"
	CouponUsageExhausted = "COUPON_USAGE_EXHAUSTED"
	CouponBelowMinimum   = "COUPON_BELOW_MINIMUM"
	CouponAlreadyUsed    = "COUPON_ALREADY_USED"
	CouponCodeExists     = "COUPON_CODE_EXISTS"
	CouponInvalidKind    = "COUPON_INVALID_KIND"

	// ==================== Catalog (PRODUCT_) ====================
	ProductNotFound      = "PRODUCT_NOT_FOUND"
	ProductSKUExists     = "PRODUCT_SKU_EXISTS"
	ProductOutOfStock    = "PRODUCT_OUT_OF_STOCK"

	// ==================== Order (ORDER_) ====================
	OrderNotFound = "ORDER_NOT_FOUND"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalStorageError  = "INTERNAL_STORAGE_ERROR"
)
