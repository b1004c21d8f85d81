package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	t.Run("expands abbreviations and strips punctuation", func(t *testing.T) {
		got := NormalizeAddress("1200 N. Lamar Blvd., Ste 310", "Austin", "TX", "78703")
		assert.Equal(t, "1200 north lamar boulevard suite 310 austin tx 78703", got)
	})

	t.Run("hash becomes a unit designator", func(t *testing.T) {
		got := NormalizeAddress("77 Elm St #4", "Austin", "TX", "78701-4402")
		assert.Equal(t, "77 elm street unit 4 austin tx 78701", got)
	})

	t.Run("expansion is case-insensitive", func(t *testing.T) {
		upper := NormalizeAddress("500 W MAIN ST", "ROUND ROCK", "TX", "78664")
		lower := NormalizeAddress("500 w main st", "round rock", "tx", "78664")
		assert.Equal(t, lower, upper)
		assert.Equal(t, "500 west main street round rock tx 78664", upper)
	})

	t.Run("is idempotent", func(t *testing.T) {
		inputs := [][4]string{
			{"1200 N. Lamar Blvd., Ste #310", "Austin", "TX", "78703"},
			{"9 E Pkwy Bldg 2 Fl 3", "Dallas", "TX", "75201-1234"},
			{"77 s. congress ave", "", "", ""},
		}
		for _, in := range inputs {
			once := NormalizeAddress(in[0], in[1], in[2], in[3])
			twice := NormalizeAddress(once, "", "", "")
			assert.Equal(t, once, twice, "input %v", in)
		}
	})

	t.Run("empty street line yields empty", func(t *testing.T) {
		assert.Equal(t, "", NormalizeAddress("  ", "Austin", "TX", "78701"))
	})

	t.Run("skips empty components", func(t *testing.T) {
		assert.Equal(t, "10 elm street 78701", NormalizeAddress("10 Elm St", "", "", "78701"))
	})
}

func TestAddressesMatch(t *testing.T) {
	norm := func(line1, zip string) string {
		return NormalizeAddress(line1, "Austin", "TX", zip)
	}

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{
			name: "identical",
			a:    norm("100 Congress Ave", "78701"),
			b:    norm("100 Congress Avenue", "78701"),
			want: true,
		},
		{
			name: "differs only by suite",
			a:    norm("100 Congress Ave Ste 200", "78701"),
			b:    norm("100 Congress Avenue Suite 450", "78701"),
			want: true,
		},
		{
			name: "suite on one side only",
			a:    norm("100 Congress Ave, Suite 200", "78701"),
			b:    norm("100 Congress Ave", "78701"),
			want: true,
		},
		{
			name: "differs by unit and floor",
			a:    norm("100 Congress Ave Unit B", "78701"),
			b:    norm("100 Congress Ave Fl 3", "78701"),
			want: true,
		},
		{
			name: "hash unit",
			a:    norm("100 Congress Ave #12", "78701"),
			b:    norm("100 Congress Ave Room 4", "78701"),
			want: true,
		},
		{
			name: "ordinal floor before the designator",
			a:    NormalizeAddress("500 N Lamar Blvd, 2nd Floor", "Austin", "TX", "78703"),
			b:    NormalizeAddress("500 North Lamar Boulevard", "Austin", "TX", "78703"),
			want: true,
		},
		{
			name: "spelled ordinal floor",
			a:    NormalizeAddress("500 N Lamar Blvd Second Floor", "Austin", "TX", "78703"),
			b:    NormalizeAddress("500 N Lamar Blvd Ste 3", "Austin", "TX", "78703"),
			want: true,
		},
		{
			name: "hyphenated suite",
			a:    NormalizeAddress("500 N Lamar Blvd Suite 200-B", "Austin", "TX", "78703"),
			b:    NormalizeAddress("500 N Lamar Blvd", "Austin", "TX", "78703"),
			want: true,
		},
		{
			name: "hyphenated hash unit",
			a:    NormalizeAddress("500 N Lamar Blvd #200-B", "Austin", "TX", "78703"),
			b:    NormalizeAddress("500 N Lamar Blvd, 2nd Fl", "Austin", "TX", "78703"),
			want: true,
		},
		{
			name: "zip mismatch rejects identical street",
			a:    norm("100 Congress Ave", "78701"),
			b:    norm("100 Congress Ave", "78702"),
			want: false,
		},
		{
			name: "zip mismatch rejects even with suite difference",
			a:    norm("100 Congress Ave Ste 1", "78701"),
			b:    norm("100 Congress Ave Ste 1", "73301"),
			want: false,
		},
		{
			name: "different street same zip",
			a:    norm("100 Congress Ave", "78701"),
			b:    norm("200 Congress Ave", "78701"),
			want: false,
		},
		{
			name: "empty side never matches",
			a:    "",
			b:    norm("100 Congress Ave", "78701"),
			want: false,
		},
		{
			name: "zip plus four compares on zip5",
			a:    NormalizeAddress("100 Congress Ave", "Austin", "TX", "78701-4402"),
			b:    norm("100 Congress Ave", "78701"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddressesMatch(tt.a, tt.b))
			assert.Equal(t, tt.want, AddressesMatch(tt.b, tt.a), "symmetric")
		})
	}
}

func TestAnyAddressMatches(t *testing.T) {
	site := NormalizeAddress("45 Oak Rd Ste 5", "Austin", "TX", "78704")
	primary := NormalizeAddress("1 Main St", "Austin", "TX", "78701")
	secondary := NormalizeAddress("45 Oak Road", "Austin", "TX", "78704")

	assert.True(t, AnyAddressMatches(site, primary, secondary))
	assert.False(t, AnyAddressMatches(site, primary))
	assert.False(t, AnyAddressMatches(site))
}
