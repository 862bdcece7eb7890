package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"stockroom/api/internal/core/domain"
	"stockroom/api/internal/infrastructure/crypto"
)

// SealedBodies opens every non-empty request body and seals every non-empty response
// body, so handlers only ever see and write plain JSON.
//
// 🛡️ SLA: empty bodies stay empty in both directions ("no content" needs no Open).
func SealedBodies(sealer domain.Sealer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				raw, err := io.ReadAll(r.Body)
				_ = r.Body.Close()
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						writeSealed(w, sealer, logger, http.StatusRequestEntityTooLarge, `{"message": "Request body too large"}`)
						return
					}
					writeSealed(w, sealer, logger, http.StatusBadRequest, `{"message": "Failed to read body"}`)
					return
				}

				raw = bytes.TrimSpace(raw)
				if len(raw) == 0 {
					r.Body = http.NoBody
					r.ContentLength = 0
				} else {
					plain, err := sealer.Open(string(raw))
					if err != nil {
						logger.Warn("Rejected unreadable sealed payload",
							slog.String("request_id", middleware.GetReqID(r.Context())),
							slog.String("path", r.URL.Path),
							slog.Any("error", err))
						writeSealed(w, sealer, logger, http.StatusBadRequest, `{"message": "Malformed sealed payload"}`)
						return
					}
					r.Body = io.NopCloser(bytes.NewBufferString(plain))
					r.ContentLength = int64(len(plain))
					r.Header.Set("Content-Type", "application/json")
				}
			}

			buf := &bufferedResponse{header: w.Header(), status: http.StatusOK}
			serveRecovered(next, buf, r, logger)

			writeSealed(w, sealer, logger, buf.status, buf.body.String())
		})
	}
}

// serveRecovered runs next into buf. A panic replaces whatever was buffered with
// a plain 500, which then goes out sealed like any other response.
func serveRecovered(next http.Handler, buf *bufferedResponse, r *http.Request, logger *slog.Logger) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		if rvr == http.ErrAbortHandler {
			panic(rvr)
		}
		logger.Error("Recovered handler panic",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("panic", rvr),
			slog.String("stack", string(debug.Stack())))

		buf.body.Reset()
		buf.status = http.StatusInternalServerError
		buf.wroteHeader = true
		buf.header.Set("Content-Type", "application/json")
		buf.body.WriteString(`{"message": "Internal Server Error"}`)
	}()
	next.ServeHTTP(buf, r)
}

// writeSealed seals body (when non-empty) and writes it with status.
func writeSealed(w http.ResponseWriter, sealer domain.Sealer, logger *slog.Logger, status int, body string) {
	h := w.Header()
	h.Del("Content-Length")

	if body == "" {
		h.Del("Content-Type")
		w.WriteHeader(status)
		return
	}

	sealed, err := sealer.Seal(body)
	if err != nil {
		logger.Error("Failed to seal response", slog.Any("error", err))
		h.Del("Content-Type")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.Set("Content-Type", crypto.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(sealed)))
	w.WriteHeader(status)
	_, _ = io.WriteString(w, sealed)
}

// bufferedResponse captures a handler's output so it can be sealed as a whole.
type bufferedResponse struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}
