package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeList(t *testing.T) {
	assert.Equal(t, []string{"Summer", "Winter"}, NormalizeList(NativeList{"Summer", "Winter"}))
	assert.Equal(t, []string{}, NormalizeList(NativeList(nil)))
	assert.Equal(t, []string{"Summer", "Fall"}, NormalizeList(EncodedString(`["Summer","Fall"]`)))
	assert.Equal(t, []string{}, NormalizeList(EncodedString("")))
	assert.Equal(t, []string{}, NormalizeList(EncodedString("{bad json")))
	assert.Equal(t, []string{}, NormalizeList(EncodedString(`{"a": 1}`)))
	assert.Equal(t, []string{}, NormalizeList(EncodedString("null")))
	assert.Equal(t, []string{}, NormalizeList(nil))
}

func TestRawListDecoding(t *testing.T) {
	values, err := RawList(`["casual daily wear"]`).Strict()
	require.NoError(t, err)
	assert.Equal(t, []string{"casual daily wear"}, values)

	values, err = RawList(`"[\"Summer\"]"`).Strict()
	require.NoError(t, err)
	assert.Equal(t, []string{"Summer"}, values)

	_, err = RawList(`"{bad json"`).Strict()
	assert.ErrorIs(t, err, ErrMalformedList)
	assert.Equal(t, []string{}, RawList(`"{bad json"`).Values())

	_, err = RawList(`42`).Strict()
	assert.ErrorIs(t, err, ErrMalformedList)

	values, err = RawList(`null`).Strict()
	require.NoError(t, err)
	assert.Empty(t, values)

	assert.False(t, RawList(nil).Present())
	assert.True(t, RawList(`[]`).Present())
}

func TestRawListFromForm(t *testing.T) {
	assert.Nil(t, RawListFromForm(nil))
	assert.Equal(t, []string{"Fall", "Winter"}, RawListFromForm([]string{`["Fall","Winter"]`}).Values())
	assert.Equal(t, []string{"travel", "brunch"}, RawListFromForm([]string{"travel", "brunch"}).Values())

	_, err := RawListFromForm([]string{"travel"}).Strict()
	assert.ErrorIs(t, err, ErrMalformedList)
}

func TestCanonicalValue(t *testing.T) {
	value, ok := CanonicalValue(Categories, " t-shirt ")
	assert.True(t, ok)
	assert.Equal(t, "T-Shirt", value)

	value, ok = CanonicalValue(Occasions, "Date Night")
	assert.True(t, ok)
	assert.Equal(t, "date night", value)

	_, ok = CanonicalValue(Colors, "Teal")
	assert.False(t, ok)

	assert.Equal(t, []string{"Spring", "All-Season"}, CanonicalValues(Seasons, []string{"spring", "monsoon", "all-season"}))
}
