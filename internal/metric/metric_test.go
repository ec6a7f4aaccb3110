package metric

import (
	"testing"

	"github.com/dharaneesh71/Financeflow-ai/internal/tester"
)

func TestValidateAcceptsWellFormedSet(t *testing.T) {
	s := Set{
		{Name: "total_assets", Type: TypeFloat},
		{Name: "fiscal_year", Type: TypeInt},
		{Name: "company_name", Type: TypeString},
		{Name: "is_audited", Type: TypeBool},
	}
	tester.NoErr(t, s.Validate())
}

func TestValidateRejectsBadSets(t *testing.T) {
	cases := []struct {
		name string
		set  Set
	}{
		{"empty name", Set{{Name: "  ", Type: TypeFloat}}},
		{"bad identifier", Set{{Name: "total-assets", Type: TypeFloat}}},
		{"leading digit", Set{{Name: "4q_revenue", Type: TypeFloat}}},
		{"duplicate", Set{{Name: "revenue", Type: TypeFloat}, {Name: "Revenue", Type: TypeInt}}},
		{"unknown type", Set{{Name: "revenue", Type: "decimal"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tester.Err(t, tc.set.Validate())
		})
	}
}

func TestSetEqualDetectsReorderAndNarrowing(t *testing.T) {
	base := Set{
		{Name: "revenue", Type: TypeFloat},
		{Name: "net_income", Type: TypeFloat},
	}
	tester.True(t, base.Equal(Set{
		{Name: "revenue", Type: TypeFloat},
		{Name: "net_income", Type: TypeFloat},
	}))
	tester.False(t, base.Equal(Set{
		{Name: "net_income", Type: TypeFloat},
		{Name: "revenue", Type: TypeFloat},
	}), "reorder")
	tester.False(t, base.Equal(base[:1]), "narrowing")
	tester.False(t, base.Equal(Set{
		{Name: "revenue", Type: TypeInt},
		{Name: "net_income", Type: TypeFloat},
	}), "type change")
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	v := Values{"Total_Assets": 100.0}
	got, ok := v.Lookup("total_assets")
	tester.True(t, ok)
	tester.Eq(t, got, any(100.0))

	_, ok = v.Lookup("net_income")
	tester.False(t, ok)
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		name string
		def  Definition
		raw  any
		want any
		ok   bool
	}{
		{"float passthrough", Definition{Name: "a", Type: TypeFloat}, 100.5, 100.5, true},
		{"float from formatted string", Definition{Name: "a", Type: TypeFloat}, "$1,234.56", 1234.56, true},
		{"float from junk", Definition{Name: "a", Type: TypeFloat}, "n/a", nil, false},
		{"int from whole float", Definition{Name: "a", Type: TypeInt}, 2023.0, int64(2023), true},
		{"int rejects fraction", Definition{Name: "a", Type: TypeInt}, 2023.5, nil, false},
		{"int from string", Definition{Name: "a", Type: TypeInt}, "1,200", int64(1200), true},
		{"string passthrough", Definition{Name: "a", Type: TypeString}, "Acme Corp", "Acme Corp", true},
		{"string from number", Definition{Name: "a", Type: TypeString}, 7.0, "7", true},
		{"bool passthrough", Definition{Name: "a", Type: TypeBool}, true, true, true},
		{"bool from string", Definition{Name: "a", Type: TypeBool}, "True", true, true},
		{"nil", Definition{Name: "a", Type: TypeFloat}, nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.def.Coerce(tc.raw)
			tester.Eq(t, ok, tc.ok)
			if tc.ok {
				tester.Eq(t, got, tc.want)
			}
		})
	}
}
