package httpfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://shop.example.com/drones"},
		{name: "http", url: "http://example.com"},
		{name: "with port", url: "https://example.com:8443/page"},
		{name: "ftp scheme", url: "ftp://example.com/file", wantErr: true},
		{name: "file scheme", url: "file:///etc/passwd", wantErr: true},
		{name: "no scheme", url: "example.com/page", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "localhost", url: "http://localhost:8080", wantErr: true},
		{name: "loopback ip", url: "http://127.0.0.1/admin", wantErr: true},
		{name: "private 10", url: "http://10.0.0.5", wantErr: true},
		{name: "private 192.168", url: "http://192.168.1.1", wantErr: true},
		{name: "private 172.16", url: "http://172.16.0.1", wantErr: true},
		{name: "link local", url: "http://169.254.169.254/latest/meta-data", wantErr: true},
		{name: "unspecified", url: "http://0.0.0.0", wantErr: true},
		{name: "ipv6 loopback", url: "http://[::1]:8080", wantErr: true},
		{name: "public ip", url: "http://93.184.216.34"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateURL(tc.url)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
