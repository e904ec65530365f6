package catalog

import "testing"

func TestCategorizeExactMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"mouse", "Electronics"},
		{"키보드", "Electronics"},
		{"kettle", "Home & Kitchen"},
		{"sunscreen", "Beauty"},
		{"hoodie", "Fashion"},
		{"yoga mat", "Sports & Outdoors"},
		{"기저귀", "Baby & Toys"},
		{"dog food", "Pet Supplies"},
		{"라면", "Food"},
		{"stapler", "Office"},
		{"dashcam", "Automotive"},
	}
	for _, tt := range tests {
		if got := Categorize(tt.input); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCategorizeKeywordMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"wireless gaming mouse", "Electronics"},
		{"extended mouse pad", "Office"},
		{"fast car charger 45w", "Automotive"},
		{"memory foam dog bed", "Pet Supplies"},
		{"ceramic coffee mug", "Home & Kitchen"},
		{"desk lamp", "Home & Kitchen"},
		{"블루투스 스피커", "Electronics"},
		{"캠핑 의자", "Sports & Outdoors"},
		{"hydrating face cream", "Beauty"},
	}
	for _, tt := range tests {
		if got := Categorize(tt.input); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCategorizeCaseAndWhitespace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"MOUSE", "Electronics"},
		{"  Yoga Mat  ", "Sports & Outdoors"},
		{"Wireless Earbuds", "Electronics"},
	}
	for _, tt := range tests {
		if got := Categorize(tt.input); got != tt.want {
			t.Errorf("Categorize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCategorizeFallback(t *testing.T) {
	for _, input := range []string{"", "   ", "xyz123"} {
		if got := Categorize(input); got != Other {
			t.Errorf("Categorize(%q) = %q, want %q", input, got, Other)
		}
	}
}
