package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
)

// MaxJSONBodyBytes is the largest body JSONBody will decode.
const MaxJSONBodyBytes = 1 << 20

type jsonBodyKey struct{}

type jsonBody struct {
	value any
}

// JSONBody returns a middleware that decodes application/json request bodies
// and stores the result on the request context. Bodies that are malformed or
// larger than MaxJSONBodyBytes are left undecoded. In every case the body is
// restored so the next handler reads the original bytes.
func JSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
			next.ServeHTTP(w, r)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, MaxJSONBodyBytes+1))
		rest := r.Body
		r.Body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(buf), rest),
			Closer: rest,
		}
		if err != nil || len(buf) > MaxJSONBodyBytes {
			next.ServeHTTP(w, r)
			return
		}

		var v any
		if err := json.Unmarshal(buf, &v); err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), jsonBodyKey{}, jsonBody{value: v})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// JSONBodyFrom returns the decoded body stored by JSONBody, if any.
func JSONBodyFrom(ctx context.Context) (any, bool) {
	body, ok := ctx.Value(jsonBodyKey{}).(jsonBody)
	if !ok {
		return nil, false
	}
	return body.value, true
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

type readCloser struct {
	io.Reader
	io.Closer
}
