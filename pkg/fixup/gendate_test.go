package fixup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGenDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    GenDate
		wantErr bool
	}{
		{name: "unset", in: "0", want: GenDate{}},
		{name: "exact", in: "201302281", want: GenDate{Year: 2013, Month: 2, Day: 28, Precision: PrecisionExact}},
		{name: "year only", in: "190000002", want: GenDate{Year: 1900, Precision: PrecisionApproximate}},
		{name: "bc", in: "-004400003", want: GenDate{BC: true, Year: 44, Precision: PrecisionAfter}},
		{name: "leap day", in: "200002291", want: GenDate{Year: 2000, Month: 2, Day: 29, Precision: PrecisionExact}},
		{name: "not leap", in: "190002291", wantErr: true},
		{name: "day overflow", in: "201302301", wantErr: true},
		{name: "month overflow", in: "201313011", wantErr: true},
		{name: "day without month", in: "201300051", wantErr: true},
		{name: "year zero", in: "000001011", wantErr: true},
		{name: "precision", in: "201301014", wantErr: true},
		{name: "short", in: "2013", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "letters", in: "2013o1011", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGenDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenDate_String(t *testing.T) {
	assert.Equal(t, GenDateUnset, GenDate{}.String())
	assert.Equal(t, "201302281", GenDate{Year: 2013, Month: 2, Day: 28, Precision: PrecisionExact}.String())
	assert.Equal(t, "-004400003", GenDate{BC: true, Year: 44, Precision: PrecisionAfter}.String())
}
