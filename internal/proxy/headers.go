package proxy

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
)

// Override is one header the gateway forces onto the outbound request.
type Override struct {
	Key   string
	Value string
}

// MergeHeaders copies base and applies overrides in order. An override
// always wins over the inbound value for the same key, and a later
// override wins over an earlier one. Hop-by-hop headers that the
// outbound transport manages itself are dropped from the copy.
func MergeHeaders(base http.Header, overrides []Override) http.Header {
	out := make(http.Header, len(base)+len(overrides))
	for k, vs := range base {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	for _, h := range []string{"Host", "Connection", "Content-Length", "Accept-Encoding"} {
		out.Del(h)
	}
	for _, o := range overrides {
		out.Set(o.Key, o.Value)
	}
	return out
}

// newNonce generates the per-request CSP nonce: 16 random bytes,
// base64-encoded. Two requests never share a nonce.
func newNonce() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return base64.StdEncoding.EncodeToString(buf)
}
