package shopify

import "github.com/homula/shop-multipass/internal/validation"

// ValidShopDomain reports whether shop is a canonical <name>.myshopify.com domain.
func ValidShopDomain(shop string) bool {
	return validation.IsShopDomain(shop)
}
