package checkout

import (
	"fmt"
	"strings"
	"unicode"
)

type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type SessionRequest struct {
	Currency string `json:"currency"`
	OrderID  string `json:"orderId"`
	Items    []Item `json:"items"`
}

func (r SessionRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if !isCurrencyCode(r.Currency) {
		errs["currency"] = "must be a three letter ISO currency code"
	}
	if strings.TrimSpace(r.OrderID) == "" {
		errs["orderId"] = "is required"
	}
	if len(r.Items) == 0 {
		errs["items"] = "at least one item is required"
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			errs[fmt.Sprintf("items[%d].name", i)] = "is required"
		}
		if item.Price <= 0 {
			errs[fmt.Sprintf("items[%d].price", i)] = "must be greater than zero"
		}
		if item.Quantity < 1 {
			errs[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		}
	}

	return errs
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
