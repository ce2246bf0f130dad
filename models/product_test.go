package models

import "testing"

func TestProductDisplayName(t *testing.T) {
	cases := []struct {
		name    string
		product Product
		want    string
	}{
		{
			name:    "all parts",
			product: Product{Name: "Almonds", Variety: "Nonpareil", Grade: "Supreme"},
			want:    "Almonds - Nonpareil - Supreme",
		},
		{
			name:    "no grade",
			product: Product{Name: "Walnuts", Variety: "Chandler"},
			want:    "Walnuts - Chandler",
		},
		{
			name:    "name only",
			product: Product{Name: "Pistachios"},
			want:    "Pistachios",
		},
		{
			name:    "blank variety skipped",
			product: Product{Name: "Pecans", Variety: "  ", Grade: "Fancy"},
			want:    "Pecans - Fancy",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.product.DisplayName(); got != tc.want {
				t.Errorf("DisplayName() = %q, want %q", got, tc.want)
			}
		})
	}
}
