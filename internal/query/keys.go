package query

import (
	"fmt"
	"strings"
)

// Key is a hierarchical cache key. Invalidating a key drops every key it
// prefixes.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix matches k segment by segment.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Root is the first segment, used as a low-cardinality label.
func (k Key) Root() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

func page(page, limit int) string {
	return fmt.Sprintf("page=%d&limit=%d", max(page, 1), limitOrDefault(limit))
}

func limitOrDefault(limit int) int {
	if limit < 1 {
		return 10
	}
	return limit
}

var (
	ProductsKey     = Key{"products"}
	ProductListsKey = Key{"products", "list"}
	ProductAdminKey = Key{"products", "admin"}

	OrdersKey     = Key{"orders"}
	MyOrdersKey   = Key{"orders", "my"}
	AdminOrderKey = Key{"orders", "admin"}
	StatsKey      = Key{"orders", "stats"}

	UsersKey     = Key{"users"}
	AdminUserKey = Key{"users", "admin"}

	AuthUserKey  = Key{"auth", "user"}
	StripeKeyKey = Key{"stripe", "key"}
)

func ProductList(filter string) Key  { return Key{"products", "list", filter} }
func ProductDetail(id string) Key    { return Key{"products", "detail", id} }
func AdminProducts(p, limit int) Key { return Key{"products", "admin", page(p, limit)} }
func OrderDetail(id string) Key      { return Key{"orders", "detail", id} }
func MyOrders(p, limit int) Key      { return Key{"orders", "my", page(p, limit)} }
func AdminOrders(p, limit int) Key   { return Key{"orders", "admin", page(p, limit)} }
func AdminOrderDetail(id string) Key { return Key{"orders", "admin", "detail", id} }
func AdminUsers(p, limit int) Key    { return Key{"users", "admin", page(p, limit)} }
func AdminUserDetail(id string) Key  { return Key{"users", "admin", "detail", id} }
