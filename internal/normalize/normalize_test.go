package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		address  string
		area     string
		district string
		houses   string
	}{
		{
			name:    "area only, no comma",
			address: "Yerevan",
			area:    "Yerevan",
		},
		{
			name:     "area district house",
			address:  "Yerevan, Kentron 5",
			area:     "Yerevan",
			district: "Kentron",
			houses:   "5",
		},
		{
			name:    "area and bare house number",
			address: "Yerevan, 12",
			area:    "Yerevan",
			houses:  "12",
		},
		{
			name:    "comma joined house list",
			address: "Yerevan, Kentron 6,8,10",
			area:    "Yerevan",

			district: "Kentron",
			houses:   "6,8,10",
		},
		{
			name:     "slash and hyphen houses",
			address:  "Gyumri, Ani 4/1-6",
			area:     "Gyumri",
			district: "Ani",
			houses:   "4/1-6",
		},
		{
			name:    "digits plus single armenian letter is a house number",
			address: "Yerevan, 5 Ա",
			area:    "Yerevan",
			houses:  "5 Ա",
		},
		{
			name:     "district then digits plus armenian letter",
			address:  "Yerevan, Kentron 5 Ա",
			area:     "Yerevan",
			district: "Kentron",
			houses:   "5 Ա",
		},
		{
			name:     "district only",
			address:  "Yerevan, Nork Marash",
			area:     "Yerevan",
			district: "Nork Marash",
		},
		{
			name:     "single word district",
			address:  "Yerevan, Kentron",
			area:     "Yerevan",
			district: "Kentron",
		},
		{
			name:     "multi comma remainder",
			address:  "Yerevan, Kentron, 1",
			area:     "Yerevan",
			district: "Kentron,",
			houses:   "1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			area, district, houses := SplitAddress(tt.address)
			assert.Equal(t, tt.area, area)
			assert.Equal(t, tt.district, district)
			assert.Equal(t, tt.houses, houses)
		})
	}
}

func TestSplitAddressTrailingHouseAfterLastSpace(t *testing.T) {
	t.Parallel()

	area, district, houses := SplitAddress("Yerevan, Davit Bek 97/26")
	assert.Equal(t, "Yerevan", area)
	assert.Equal(t, "Davit Bek", district)
	assert.Equal(t, "97/26", houses)
}

func TestFieldIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"  Yerevan   Kentron ",
		"Yerevan Kentron",
		"already clean",
		"",
	}
	for _, in := range inputs {
		once := Field(in)
		assert.Equal(t, once, Field(once), "Field must be idempotent for %q", in)
	}
}

func TestCleanAreaName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"г. Ереван", "Ереван"},
		{"город Ереван", "Ереван"},
		{"ք. Երևան", "Երևան"},
		{"city of Vanadzor", "Vanadzor"},
		{"YEREVAN", "Yerevan"},
		{"Yerevan (Kentron)", "Yerevan"},
		{"Vanadzor", "Vanadzor"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanAreaName(tt.raw), "raw=%q", tt.raw)
	}
}

func TestCleanAreaNameIdempotent(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"г. Ереван", "city of Vanadzor", "Yerevan (Kentron)", "Gyumri"} {
		once := CleanAreaName(raw)
		assert.Equal(t, once, CleanAreaName(once))
	}
}

func TestMergeHouseNumbersNaturalOrder(t *testing.T) {
	t.Parallel()

	merged := MergeHouseNumbers([]string{"10", "2"}, []string{"1", "2", "3/1"})
	assert.Equal(t, []string{"1", "2", "3/1", "10"}, merged)
}

func TestMergeHouseNumbersCommutative(t *testing.T) {
	t.Parallel()

	a := []string{"4", "12", "5 Ա"}
	b := []string{"12", "1", "3"}
	ab := MergeHouseNumbers(a, b)
	ba := MergeHouseNumbers(b, a)
	require.Equal(t, ab, ba)

	// Merging the result with either input must not change it.
	assert.Equal(t, ab, MergeHouseNumbers(ab, a))
	assert.Equal(t, ab, MergeHouseNumbers(ab, b))
}

func TestNaturalLess(t *testing.T) {
	t.Parallel()

	assert.True(t, NaturalLess("2", "10"))
	assert.False(t, NaturalLess("10", "2"))
	assert.True(t, NaturalLess("2a", "2b"))
	assert.True(t, NaturalLess("2", "2a"))
	assert.True(t, NaturalLess("02", "3"))
	assert.False(t, NaturalLess("5", "5"))
}

func TestSplitHouseNumbers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"6", "8", "10"}, SplitHouseNumbers("6, 8, 10"))
	assert.Equal(t, []string{"6", "8"}, SplitHouseNumbers("6,,8, "))
	assert.Nil(t, SplitHouseNumbers(""))
}

func TestEscapeMarkdown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `Kentron\-5`, EscapeMarkdown("Kentron-5"))
	assert.Equal(t, `\*bold\*`, EscapeMarkdown("*bold*"))
	// Dash variants collapse to an escaped hyphen.
	assert.Equal(t, `a\-b`, EscapeMarkdown("a—b"))
	assert.Equal(t, `10:00\.`, EscapeMarkdown("10:00."))
}
