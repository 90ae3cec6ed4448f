package session

import (
	"bytes"
	"context"
	"errors"
	"log"
	"maps"
	"net/http"

	"github.com/google/uuid"
)

type Store interface {
	// Load returns ErrNotFound when no session is stored under id.
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

type contextKey struct{}

func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// Middleware loads the visitor session named by the cookie. A missing cookie
// or an id the store does not know gets a freshly generated session.
//
// The handler's response is held back until the session is saved, so a save
// failure turns into a 500 instead of a success the client cannot rely on.
// New sessions are always saved and their cookie is set only once stored.
func Middleware(store Store, cookieName string, logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *Session
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				loaded, err := store.Load(r.Context(), c.Value)
				switch {
				case errors.Is(err, ErrNotFound):
				case err != nil:
					logger.Printf("session load error: %v", err)
					http.Error(w, "session unavailable", http.StatusServiceUnavailable)
					return
				default:
					sess = loaded
				}
			}
			if sess == nil {
				sess = New(uuid.NewString())
			}

			buf := newBufferedResponse()
			next.ServeHTTP(buf, r.WithContext(WithSession(r.Context(), sess)))

			if sess.Modified() || sess.IsNew() {
				if err := store.Save(context.WithoutCancel(r.Context()), sess); err != nil {
					logger.Printf("session save error: %v", err)
					http.Error(w, "session save failed", http.StatusInternalServerError)
					return
				}
			}
			if sess.IsNew() {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sess.ID(),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			buf.flushTo(w)
		})
	}
}

// bufferedResponse records a handler's response so it can be discarded.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	maps.Copy(w.Header(), b.header)
	if b.status == 0 {
		b.status = http.StatusOK
	}
	w.WriteHeader(b.status)
	if b.body.Len() > 0 {
		_, _ = w.Write(b.body.Bytes())
	}
}
