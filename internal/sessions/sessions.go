package sessions

import (
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/sessions"
)

const sessionName = "fittrack-session"

var (
	store     *sessions.CookieStore
	storeOnce sync.Once
)

func cookieStore() *sessions.CookieStore {
	storeOnce.Do(func() {
		key := os.Getenv("SESSION_KEY")
		if key == "" {
			panic("SESSION_KEY environment variable not set")
		}
		store = sessions.NewCookieStore([]byte(key))
		store.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   3600 * 8, // 8 hours
			HttpOnly: true,
			Secure:   os.Getenv("ENV") != "dev", // Use secure cookies in production
			SameSite: http.SameSiteLaxMode,
		}
	})
	return store
}

// GetSession retrieves the session from the request.
func GetSession(r *http.Request) (*sessions.Session, error) {
	return cookieStore().Get(r, sessionName)
}

// SaveSession saves the session.
func SaveSession(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return cookieStore().Save(r, w, session)
}

// UserID returns the authenticated user id stored in the session, or "" when
// the session carries none.
func UserID(r *http.Request) string {
	session, err := GetSession(r)
	if err != nil {
		return ""
	}
	id, _ := session.Values["user_id"].(string)
	return id
}
