package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	tests := map[string]struct {
		http, https, noProxy string
		target               string
		want                 string
	}{
		"https uses https proxy": {
			http: "http://p1:3128", https: "http://p2:3128",
			target: "https://api.openai.com/v1", want: "http://p2:3128",
		},
		"http uses http proxy": {
			http: "http://p1:3128", https: "http://p2:3128",
			target: "http://example.org/", want: "http://p1:3128",
		},
		"https falls back to http proxy": {
			http:   "http://p1:3128",
			target: "https://example.org/", want: "http://p1:3128",
		},
		"no_proxy bypasses": {
			http: "http://p1:3128", noProxy: "example.org",
			target: "http://example.org/", want: "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fn := NewProxyFunc(tt.http, tt.https, tt.noProxy)
			req, err := http.NewRequest(http.MethodGet, tt.target, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, err := fn(req)
			if err != nil {
				t.Fatalf("proxy func: %v", err)
			}
			gotStr := ""
			if got != nil {
				gotStr = got.String()
			}
			if gotStr != tt.want {
				t.Errorf("expected %q, got %q", tt.want, gotStr)
			}
		})
	}
}
