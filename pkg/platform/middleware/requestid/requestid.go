// Package requestid assigns every request an ID that is echoed back to the
// caller and attached to log lines.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"chainlead/pkg/requestcontext"
)

// Header carries the request ID in both directions.
const Header = "X-Request-ID"

const maxInboundLen = 128

// Middleware reuses a caller-supplied X-Request-ID when it is reasonable,
// otherwise generates one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" || len(id) > maxInboundLen {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
