package invcode

import (
	"errors"
	"testing"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	cases := []struct {
		name    string
		org     string
		room    string
		ordinal int
		want    string
	}{
		{"basic", "Hospital", "ICU", 1, "HOS-ICU-0001"},
		{"short room name is not padded", "Hospital", "ER", 1, "HOS-ER-0001"},
		{"lower case is upper-cased", "school", "library", 12, "SCH-LIB-0012"},
		{"single rune names", "A", "b", 7, "A-B-0007"},
		{"ordinal wider than four digits", "Hospital", "ICU", 12345, "HOS-ICU-12345"},
		{"surrounding spaces trimmed", "  Hospital", " ICU ", 3, "HOS-ICU-0003"},
		{"multibyte names", "Toshkent", "Xona", 2, "TOS-XON-0002"},
		{"separator in names", "A-B Clinic", "X-Ray", 1, "A_B-X_R-0001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Generate(tc.org, tc.room, tc.ordinal)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGenerate_Unicode(t *testing.T) {
	got, err := Generate("Шифохона", "Зал", 1)
	require.NoError(t, err)
	assert.Equal(t, "ШИФ-ЗАЛ-0001", got)
}

func TestGenerate_Invalid(t *testing.T) {
	_, err := Generate("", "ICU", 1)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = Generate("Hospital", "   ", 1)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = Generate("Hospital", "ICU", 0)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestParse(t *testing.T) {
	c, err := Parse("HOS-ER-0001")
	require.NoError(t, err)
	assert.Equal(t, Code{OrgPrefix: "HOS", RoomPrefix: "ER", Ordinal: 1}, c)
	assert.Equal(t, "HOS-ER-0001", c.String())

	for _, bad := range []string{"", "HOS-ICU", "HOS-ICU-01", "HOSP-ICU-0001", "hos-ICU-0001", "HOS--0001", "HOS-ICU-00a1", "HOS-ICU-0000"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestGenerate_ParsesBack(t *testing.T) {
	for _, tc := range []struct{ org, room string }{
		{"A-B Clinic", "ICU"},
		{"Hospital", "-ER-"},
		{"A-", "b-c"},
		{"Шифохона", "Зал"},
	} {
		code, err := Generate(tc.org, tc.room, 9)
		require.NoError(t, err, tc.org)

		c, err := Parse(code)
		require.NoError(t, err, code)
		assert.Equal(t, Prefix(tc.org), c.OrgPrefix)
		assert.Equal(t, Prefix(tc.room), c.RoomPrefix)
		assert.Equal(t, 9, c.Ordinal)
		assert.Equal(t, code, c.String())
		assert.True(t, Matches(code, tc.org, tc.room), code)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("HOS-ICU-0004", "Hospital", "ICU"))
	assert.True(t, Matches("HOS-ER-0001", "hospital", "er"))
	assert.False(t, Matches("HOS-ICU-0004", "Hospital", "ER"))
	assert.False(t, Matches("SCH-ICU-0004", "Hospital", "ICU"))
	assert.False(t, Matches("garbage", "Hospital", "ICU"))
}
