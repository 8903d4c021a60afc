package ethos

import (
	"errors"
	"testing"
)

func TestNormalizeUserkey(t *testing.T) {
	addr := "0x1234567890abcdef1234567890ABCDEF12345678"

	tests := []struct {
		input    string
		expected string
	}{
		{addr, "address:" + addr},
		{"address:" + addr, "address:" + addr},
		{"  " + addr + "  ", "address:" + addr},
		{"@vitalik", "service:x.com:username:vitalik"},
		{"x:serpinxbt", "service:x.com:username:serpinxbt"},
		{"twitter:@Ethos_network", "service:x.com:username:Ethos_network"},
		{"satoshi_n", "service:x.com:username:satoshi_n"},
		{"fc:dwr.eth", "service:farcaster:username:dwr.eth"},
		{"farcaster:@Vitalik", "service:farcaster:username:vitalik"},
		{"42", "profileId:42"},
		{"profileId:42", "profileId:42"},
		{"service:discord:123", "service:discord:123"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeUserkey(tt.input)
			if err != nil {
				t.Fatalf("NormalizeUserkey(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeUserkey(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeUserkey_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"0x123",
		"address:0xnothex",
		"profileId:abc",
		"@way_too_long_for_a_handle",
		"has spaces",
		"fc:",
	} {
		if _, err := NormalizeUserkey(input); !errors.Is(err, ErrInvalidUserkey) {
			t.Errorf("NormalizeUserkey(%q) error = %v, expected ErrInvalidUserkey", input, err)
		}
	}
}
