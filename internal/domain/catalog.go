package domain

import "sort"

// SortOrderUnset marks a catalog entry without an explicit display position.
// Unset entries list after every explicitly ordered entry.
const SortOrderUnset = -1

// Country is a reference catalog entry keyed by its two-letter ISO code.
type Country struct {
	ISO        string
	Name       string
	CurrencyID int64 // numeric id of the country's currency row
	Enabled    bool
	SortOrder  int
}

// Currency is a reference catalog entry keyed by its three-letter ISO code.
type Currency struct {
	ID        int64
	ISO       string
	Name      string
	Symbol    string
	Enabled   bool
	SortOrder int
}

// PaymentMethod is a reference catalog entry keyed by its one-byte type.
type PaymentMethod struct {
	Type        byte
	Name        string
	Description string
	SortOrder   int
}

// sortOrderLess orders explicit sort positions ascending and places the
// unset sentinel last. Ties keep their relative order; callers use a stable
// sort.
func sortOrderLess(a, b int) bool {
	if a == SortOrderUnset {
		return false
	}
	if b == SortOrderUnset {
		return true
	}
	return a < b
}

// SortCountries orders a country list for display.
func SortCountries(list []Country) {
	sort.SliceStable(list, func(i, j int) bool {
		return sortOrderLess(list[i].SortOrder, list[j].SortOrder)
	})
}

// SortCurrencies orders a currency list for display.
func SortCurrencies(list []Currency) {
	sort.SliceStable(list, func(i, j int) bool {
		return sortOrderLess(list[i].SortOrder, list[j].SortOrder)
	})
}

// SortPaymentMethods orders a payment method list for display.
func SortPaymentMethods(list []PaymentMethod) {
	sort.SliceStable(list, func(i, j int) bool {
		return sortOrderLess(list[i].SortOrder, list[j].SortOrder)
	})
}
