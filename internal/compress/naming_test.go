package compress

import (
	"errors"
	"testing"
)

func TestKeepOriginalNamer(t *testing.T) {
	n := KeepOriginalNamer()

	name, err := n.Name("photo.jpg", true)
	if err != nil || name != "photo.jpg" {
		t.Fatalf("got %q, %v", name, err)
	}

	// Same input name again: deterministic numeric suffix.
	name, err = n.Name("photo.jpg", true)
	if err != nil || name != "photo_1.jpg" {
		t.Fatalf("got %q, %v", name, err)
	}
	name, err = n.Name("photo.jpg", true)
	if err != nil || name != "photo_2.jpg" {
		t.Fatalf("got %q, %v", name, err)
	}

	// Recompressed outputs are JPEG whatever the source was.
	name, err = n.Name("scan.png", false)
	if err != nil || name != "scan.jpg" {
		t.Fatalf("got %q, %v", name, err)
	}
}

func TestGroupedNamer(t *testing.T) {
	n := GroupedNamer("Sag0017")
	want := []string{"Sag0017_001.jpg", "Sag0017_002.jpg", "Sag0017_003.jpg"}
	for i, w := range want {
		name, err := n.Name("whatever.png", false)
		if err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
		if name != w {
			t.Fatalf("item %d named %q, want %q", i, name, w)
		}
	}
}

func TestIndividualNamer(t *testing.T) {
	n := IndividualNamer([]string{"forside", "bagside"})

	name, err := n.Name("a.jpg", false)
	if err != nil || name != "forside.jpg" {
		t.Fatalf("got %q, %v", name, err)
	}
	name, err = n.Name("b.jpg", false)
	if err != nil || name != "bagside.jpg" {
		t.Fatalf("got %q, %v", name, err)
	}
	if _, err := n.Name("c.jpg", false); !errors.Is(err, ErrNameExhausted) {
		t.Fatalf("expected ErrNameExhausted, got %v", err)
	}
}

func TestIndividualNamerSkip(t *testing.T) {
	n := IndividualNamer([]string{"forside", "bagside"})
	n.Skip() // first item failed upstream

	name, err := n.Name("b.jpg", false)
	if err != nil || name != "bagside.jpg" {
		t.Fatalf("got %q, %v", name, err)
	}
}

func TestIndividualNamerValidation(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrEmptyName},
		{"blank", "   ", ErrEmptyName},
		{"path separator", "a/b", ErrUnsafeName},
		{"backslash", `a\b`, ErrUnsafeName},
		{"parent traversal", "..secret", ErrUnsafeName},
		{"reserved chars", `side<1>`, ErrUnsafeName},
		{"control char", "a\x00b", ErrUnsafeName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := IndividualNamer([]string{tc.input})
			if _, err := n.Name("x.jpg", false); !errors.Is(err, tc.wantErr) {
				t.Fatalf("input %q: got %v, want %v", tc.input, err, tc.wantErr)
			}
		})
	}
}

func TestParseNamingMode(t *testing.T) {
	cases := []struct {
		in   string
		want NamingMode
		ok   bool
	}{
		{"", KeepOriginal, true},
		{"keep", KeepOriginal, true},
		{"grouped", Grouped, true},
		{"individual", Individual, true},
		{"random", 0, false},
	}
	for _, tc := range cases {
		mode, err := ParseNamingMode(tc.in)
		if tc.ok && (err != nil || mode != tc.want) {
			t.Fatalf("%q: got %v, %v", tc.in, mode, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}
