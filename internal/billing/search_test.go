package billing

import "testing"

func TestFoldStripsVietnameseDiacritics(t *testing.T) {
	cases := map[string]string{
		"Hường":       "huong",
		"Nguyễn Văn":  "nguyen van",
		"Trần Đức":    "tran duc",
		"Đặng":        "dang",
		"plain ascii": "plain ascii",
		"":            "",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Cô Hường":      "co-huong",
		"Chú Ba Đen":    "chu-ba-den",
		"  lots   of  ": "lots-of",
		"số 7":          "so-7",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
