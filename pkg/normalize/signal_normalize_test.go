package normalize

import (
	"testing"
)

func TestCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Acme, Inc.", want: "acme"},
		{in: "ACME LLC", want: "acme"},
		{in: "Globex Corp", want: "globex"},
		{in: "Initech", want: "initech"},
		{in: "  Stark   Industries  Group ", want: "stark industries"},
		{in: "TechPro Staffing", want: "techpro"},
		{in: "O'Brien & Sons Ltd", want: "obrien sons"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := CompanyName(tt.in); got != tt.want {
			t.Errorf("CompanyName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  Remote ", want: "remote"},
		{in: "CRYPTO", want: "crypto"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := Keyword(tt.in); got != tt.want {
			t.Errorf("Keyword(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
