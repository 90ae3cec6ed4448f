// Package identity describes who a cart belongs to: an authenticated account,
// an anonymous visitor session, or both during the request that logs a visitor in.
package identity

// Session is the per-visitor key-value store carts can persist into.
type Session interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
	// MarkModified flags the session for re-persisting at the end of the request.
	MarkModified()
}

type Context interface {
	Authenticated() bool
	AccountID() string
	SessionID() string
	// Session may be nil for callers outside a request, e.g. background consumers.
	Session() Session
}

type Identity struct {
	accountID string
	sessionID string
	session   Session
}

func New(accountID, sessionID string, session Session) Identity {
	return Identity{accountID: accountID, sessionID: sessionID, session: session}
}

func Anonymous(sessionID string, session Session) Identity {
	return New("", sessionID, session)
}

// ForAccount builds a session-less identity for work done on behalf of an account.
func ForAccount(accountID string) Identity {
	return New(accountID, "", nil)
}

func (i Identity) Authenticated() bool { return i.accountID != "" }
func (i Identity) AccountID() string   { return i.accountID }
func (i Identity) SessionID() string   { return i.sessionID }
func (i Identity) Session() Session    { return i.session }
