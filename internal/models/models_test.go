package models

import "testing"

func TestProductRefImage(t *testing.T) {
	p := ProductRef{Variants: []ProductVariant{
		{Color: "black", Images: []string{"black-front.jpg", "black-back.jpg"}},
		{Color: "grey", Images: []string{"grey-front.jpg"}},
		{Color: "white"},
	}}

	tests := []struct {
		variant string
		want    string
	}{
		{"", "black-front.jpg"},
		{"grey", "grey-front.jpg"},
		{"white", ""},
		{"red", ""},
	}

	for _, tt := range tests {
		if got := p.Image(tt.variant); got != tt.want {
			t.Errorf("Image(%q) = %q, expected %q", tt.variant, got, tt.want)
		}
	}

	if got := (ProductRef{}).Image(""); got != "" {
		t.Errorf("Expected no image without variants, got %q", got)
	}
}

func TestCartIsEmpty(t *testing.T) {
	var missing *Cart
	if !missing.IsEmpty() {
		t.Error("Expected nil cart to be empty")
	}
	if !(&Cart{}).IsEmpty() {
		t.Error("Expected cart without items to be empty")
	}
	if (&Cart{Items: []CartItem{{Quantity: 1}}}).IsEmpty() {
		t.Error("Expected cart with an item to be non-empty")
	}
}
