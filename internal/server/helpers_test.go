package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Secret#123", true},
		{"Sh0rt#", false},
		{"nouppercase#1", false},
		{"NOLOWERCASE#1", false},
		{"NoDigitsHere#", false},
		{"NoSpecials123", false},
	}
	for _, tc := range cases {
		err := validatePassword(tc.password)
		if tc.ok {
			assert.NoError(t, err, tc.password)
		} else {
			assert.Error(t, err, tc.password)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, validateEmail("founder@acme.test"))
	assert.False(t, validateEmail(""))
	assert.False(t, validateEmail("not-an-email"))
}

func TestClientIPIgnoresHeadersFromUntrustedPeers(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")

	assert.Equal(t, "203.0.113.9", clientIP(req, nil))
}

func TestClientIPHonorsTrustedProxy(t *testing.T) {
	trusted := parseProxyCIDRs([]string{"203.0.113.0/24"})

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.9")

	assert.Equal(t, "198.51.100.7", clientIP(req, trusted))
}

func TestParseProxyCIDRsAcceptsBareIPs(t *testing.T) {
	nets := parseProxyCIDRs([]string{"203.0.113.9", " 2001:db8::1 ", "", "garbage"})
	assert.Len(t, nets, 2)
	assert.True(t, isTrustedProxy("203.0.113.9", nets))
	assert.False(t, isTrustedProxy("203.0.113.10", nets))
}
