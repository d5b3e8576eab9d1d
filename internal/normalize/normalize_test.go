package normalize

import (
	"reflect"
	"testing"
)

func TestToken(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"17:4", "00017:4"},
		{"00017:4", "00017:4"},
		{"A17:4", "000A17:4"}, // letters do not count toward the digit total
		{"4x30", "0004x0030"},
		{"4X30", "0004X0030"},
		{"0004x0030", "0004x0030"},
		{"12x3456", "0012x3456"},
		{"17x4:2", "0017x4:2"}, // colon wins over x when both are present
		{"B1234", "B1234"},      // no rule applies
		{"  17:4  ", "00017:4"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Token(tc.in); got != tc.want {
			t.Errorf("Token(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplit(t *testing.T) {
	got := Split(" 17:4, 4x30;  B12 \n 9:1 ")
	want := []string{"17:4", "4x30", "B12", "9:1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split = %v, want %v", got, want)
	}
	if Split("   ") != nil {
		t.Fatalf("blank input should yield no tokens")
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("17:4, 4x30")
	want := []string{"00017:4", "0004x0030"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
}

func TestSARAQuery(t *testing.T) {
	if got := SARAQuery([]string{"00017:4", "0004x0030"}); got != "objektnummer = 00017:4, 0004x0030" {
		t.Fatalf("unexpected query: %q", got)
	}
	if got := SARAQuery(nil); got != "" {
		t.Fatalf("empty input should yield empty query, got %q", got)
	}
	if got := SARAQuery([]string{"  "}); got != "" {
		t.Fatalf("blank tokens should yield empty query, got %q", got)
	}
}
