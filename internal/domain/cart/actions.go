package cart

const (
	ActionAddItem           = "cart/addToCart"
	ActionRemoveItem        = "cart/removeFromCart"
	ActionSetQuantity       = "cart/updateQuantity"
	ActionClear             = "cart/clearCart"
	ActionSetShippingInfo   = "cart/setShippingInfo"
	ActionClearShippingInfo = "cart/clearShippingInfo"
)

// Action is a cart mutation understood by Reduce.
type Action interface {
	Type() string
	cartAction()
}

// AddItem adds Quantity units of Item. A zero Quantity means one unit.
type AddItem struct {
	Item     CartItem `json:"item"`
	Quantity int      `json:"quantity"`
}

type RemoveItem struct {
	ProductID string `json:"product_id"`
}

type SetQuantity struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Clear struct{}

type SetShippingInfo struct {
	Info ShippingInfo `json:"info"`
}

type ClearShippingInfo struct{}

func (AddItem) Type() string           { return ActionAddItem }
func (RemoveItem) Type() string        { return ActionRemoveItem }
func (SetQuantity) Type() string       { return ActionSetQuantity }
func (Clear) Type() string             { return ActionClear }
func (SetShippingInfo) Type() string   { return ActionSetShippingInfo }
func (ClearShippingInfo) Type() string { return ActionClearShippingInfo }

func (AddItem) cartAction()           {}
func (RemoveItem) cartAction()        {}
func (SetQuantity) cartAction()       {}
func (Clear) cartAction()             {}
func (SetShippingInfo) cartAction()   {}
func (ClearShippingInfo) cartAction() {}

// Change describes what a successful Reduce did to the state.
type Change int

const (
	ChangeNone Change = iota
	ChangeAdded
	ChangeUpdated
	ChangeRemoved
	ChangeCleared
	ChangeShippingSet
	ChangeShippingCleared
)

func (c Change) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	case ChangeCleared:
		return "cleared"
	case ChangeShippingSet:
		return "shipping_set"
	case ChangeShippingCleared:
		return "shipping_cleared"
	default:
		return "none"
	}
}
