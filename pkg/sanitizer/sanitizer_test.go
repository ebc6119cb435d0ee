package sanitizer

import "testing"

func TestNormalizeEventName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  Birthday Party  ", "Birthday Party"},
		{"collapses internal runs", "Pool\t\tParty", "Pool Party"},
		{"folds newlines", "Movie\nNight", "Movie Night"},
		{"empty stays empty", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"preserves unicode", "Fiesta de Cumpleaños", "Fiesta de Cumpleaños"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeEventName(tc.input); got != tc.want {
				t.Errorf("NormalizeEventName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeFreeText_StripsControlCharacters(t *testing.T) {
	input := "tables\x00 and \x1bchairs"
	want := "tables and chairs"

	if got := NormalizeFreeText(input); got != want {
		t.Errorf("NormalizeFreeText(%q) = %q, want %q", input, got, want)
	}
}

func TestPipeline_AppliesInOrder(t *testing.T) {
	p := Pipeline{
		func(s string) string { return s + "b" },
		func(s string) string { return s + "c" },
	}

	if got := p.Apply("a"); got != "abc" {
		t.Errorf("expected abc, got %s", got)
	}
}
