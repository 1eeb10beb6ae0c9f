package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                             "/",
		"/metrics":                     "/metrics",
		"/v1/tokens/12":                "/v1/tokens/:id",
		"/v1/tokens/12/lease":          "/v1/tokens/:id/lease",
		"/v1/tokens/12/auction":        "/v1/tokens/:id/auction",
		"/v1/tokens/12/auction/bids":   "/v1/tokens/:id/auction/bids",
		"/v1/tokens/12/auction/settle": "/v1/tokens/:id/auction/settle",
		"/v1/tokens/12/auction/extra":  "/v1/tokens/12/auction/extra",
		"/v1/tokens/12/other":          "/v1/tokens/12/other",
		"/v1/tokens/12?verbose=1":      "/v1/tokens/:id",
		"/v1/stream":                   "/v1/stream",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
