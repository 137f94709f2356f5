package middleware

import (
	apperrors "courtkeeper/pkg/errors"
	"courtkeeper/pkg/logger"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// handlerPanic carries a panic raised on another goroutine together with
// the stack it was raised on.
type handlerPanic struct {
	value any
	stack []byte
}

func (p *handlerPanic) String() string { return fmt.Sprint(p.value) }

// Recovery turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so net/http can abort the connection quietly.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				value, stack := rec, debug.Stack()
				if hp, ok := rec.(*handlerPanic); ok {
					value, stack = hp.value, hp.stack
				}
				if err, ok := value.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(http.ErrAbortHandler)
				}

				log.Error("Panic recovered",
					"request_id", GetRequestID(r.Context()),
					"panic", fmt.Sprint(value),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)
				_ = apperrors.WriteError(w, apperrors.Internal("Internal server error", fmt.Errorf("panic: %v", value)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
