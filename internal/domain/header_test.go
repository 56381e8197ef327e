package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeHeader(t *testing.T) {
	assert.Equal(t, "originzip", CanonicalizeHeader("Origin Zip"))
	assert.Equal(t, "originzip", CanonicalizeHeader("  origin_zip "))
	assert.Equal(t, "companyname", CanonicalizeHeader("Company Name"))
	assert.Equal(t, "destzip", CanonicalizeHeader("DEST-ZIP"))
	assert.Equal(t, "name", CanonicalizeHeader("\ufeffName"))
}

func TestCanonicalHeaderMatchesOriginAlias(t *testing.T) {
	assert.Contains(t, OriginAliases, CanonicalizeHeader("Origin Zip"))
}

func TestPickFirst_SkipsBlankValues(t *testing.T) {
	row := Row{"origin": "  ", "originzip": "60035", "from": "77479"}
	v, ok := PickFirst(row, OriginAliases)
	assert.True(t, ok)
	assert.Equal(t, "60035", v)

	_, ok = PickFirst(Row{"other": "1"}, OriginAliases)
	assert.False(t, ok)
}

func TestExtractFields(t *testing.T) {
	f := ExtractFields(Row{
		"shipperzip":   "60035",
		"consigneezip": "77479-1234",
		"customer":     "  Acme Corp ",
	})
	assert.Equal(t, "60035", f.Origin)
	assert.Equal(t, "77479-1234", f.Destination)
	assert.Equal(t, "Acme Corp", f.Customer)
}

func TestExtractFields_DefaultCustomer(t *testing.T) {
	f := ExtractFields(Row{"origin": "60035", "destination": "77479", "name": " "})
	assert.Equal(t, DefaultCustomer, f.Customer)
}

func TestExtractFields_AliasPreference(t *testing.T) {
	// "companyname" outranks "name" regardless of column order.
	f := ExtractFields(Row{"name": "Contact Person", "companyname": "Acme"})
	assert.Equal(t, "Acme", f.Customer)
}
