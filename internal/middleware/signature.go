package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"solunex/internal/infrastructure"
	"solunex/internal/security"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Solunex-Signature"

// maxSignedBodySize bounds how much body the verifier will buffer.
const maxSignedBodySize = 1 << 20

// RequireSignature verifies the body signature on mutating SDK endpoints.
// The MAC is computed over the exact bytes received; the body is restored
// for downstream decoding. Install this only when a secret is configured.
func RequireSignature(signer *security.Signer, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxSignedBodySize+1))
				if err != nil {
					logger.WarnContext(ctx, "failed to read request body for signature check",
						"path", r.URL.Path, "error", err)
					writeSignatureProblem(w, ctx)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
			if len(body) > maxSignedBodySize {
				writeSignatureProblem(w, ctx)
				return
			}

			if !signer.Verify(body, r.Header.Get(SignatureHeader)) {
				logger.WarnContext(ctx, "request signature verification failed",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				writeSignatureProblem(w, ctx)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeSignatureProblem(w http.ResponseWriter, ctx context.Context) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)

	traceID := infrastructure.GetTraceID(ctx)
	response := `{"type":"/errors/invalid-signature","title":"Invalid Signature","status":401,"detail":"Request signature verification failed","trace_id":"` + traceID + `"}`
	w.Write([]byte(response))
}
