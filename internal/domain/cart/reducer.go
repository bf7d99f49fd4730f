package cart

import "fmt"

// Reduce applies action to state and returns the next state. It never mutates
// state. On error the returned state equals the input.
func Reduce(state State, action Action) (State, Change, error) {
	switch a := action.(type) {
	case AddItem:
		return addItem(state, a)
	case RemoveItem:
		return removeItem(state, a.ProductID)
	case SetQuantity:
		return setQuantity(state, a)
	case Clear:
		next := state.clone()
		next.Items = []CartItem{}
		return next, ChangeCleared, nil
	case SetShippingInfo:
		next := state.clone()
		info := a.Info
		next.ShippingInfo = &info
		return next, ChangeShippingSet, nil
	case ClearShippingInfo:
		next := state.clone()
		next.ShippingInfo = nil
		return next, ChangeShippingCleared, nil
	default:
		return state, ChangeNone, fmt.Errorf("unknown cart action %T", action)
	}
}

func addItem(state State, a AddItem) (State, Change, error) {
	item := a.Item
	if item.ProductID == "" {
		return state, ChangeNone, ErrInvalidProduct
	}
	if item.Price.IsNegative() {
		return state, ChangeNone, ErrInvalidPrice
	}
	requested := a.Quantity
	if requested == 0 {
		requested = 1
	}
	if requested < 0 {
		return state, ChangeNone, ErrInvalidQuantity
	}

	if i := state.index(item.ProductID); i >= 0 {
		quantity := state.Items[i].Quantity + requested
		if quantity > item.Stock {
			return state, ChangeNone, ErrStockLimitExceeded
		}
		next := state.clone()
		item.Quantity = quantity
		next.Items[i] = item
		return next, ChangeUpdated, nil
	}

	if item.Stock < 1 {
		return state, ChangeNone, ErrStockLimitExceeded
	}
	item.Quantity = min(requested, item.Stock)
	next := state.clone()
	next.Items = append(next.Items, item)
	return next, ChangeAdded, nil
}

func removeItem(state State, productID string) (State, Change, error) {
	i := state.index(productID)
	if i < 0 {
		return state, ChangeNone, nil
	}
	next := state.clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return next, ChangeRemoved, nil
}

func setQuantity(state State, a SetQuantity) (State, Change, error) {
	i := state.index(a.ProductID)
	if i < 0 {
		return state, ChangeNone, nil
	}
	if a.Quantity > state.Items[i].Stock {
		return state, ChangeNone, ErrStockLimitExceeded
	}
	if a.Quantity < 1 {
		return removeItem(state, a.ProductID)
	}
	next := state.clone()
	next.Items[i].Quantity = a.Quantity
	return next, ChangeUpdated, nil
}
