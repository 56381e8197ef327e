package domain

import "strings"

// DefaultCustomer is used when a row carries no customer column.
const DefaultCustomer = "Unknown"

// Row is one data row keyed by canonical header name.
type Row map[string]string

// Alias lists are ordered by preference; the first non-blank match wins.
var (
	OriginAliases = []string{
		"origin", "originzip", "originzipcode", "fromzip", "pickupzip", "shipperzip",
		"orig", "origzip", "from", "pickup", "shipper",
	}
	DestinationAliases = []string{
		"destination", "destinationzip", "destinationzipcode", "destzip", "tozip", "deliveryzip",
		"consigneezip", "dest", "to", "delivery", "consignee",
	}
	CustomerAliases = []string{
		"companyname", "customer", "customername", "name", "account", "company", "client", "business",
	}
)

// LaneFields are the raw values pulled out of a row.
type LaneFields struct {
	Origin      string
	Destination string
	Customer    string
}

// CanonicalizeHeader trims, lowercases and strips everything outside [a-z0-9].
func CanonicalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	b.Grow(len(h))
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PickFirst returns the first value under any alias that is not blank.
// The value is returned as found, untrimmed.
func PickFirst(row Row, aliases []string) (string, bool) {
	for _, k := range aliases {
		if v, ok := row[k]; ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// ExtractFields pulls origin, destination and customer out of a row.
func ExtractFields(row Row) LaneFields {
	origin, _ := PickFirst(row, OriginAliases)
	destination, _ := PickFirst(row, DestinationAliases)

	customer := DefaultCustomer
	if v, ok := PickFirst(row, CustomerAliases); ok {
		customer = strings.TrimSpace(v)
	}

	return LaneFields{Origin: origin, Destination: destination, Customer: customer}
}
