package middleware

import (
	"crypto/subtle"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const adminRealm = `Basic realm="shotbox admin", charset="UTF-8"`

// AdminAuth защищает админку HTTP Basic-аутентификацией с проверкой bcrypt-хеша.
// При пустом пользователе админка открыта, это допустимо только в доверенной сети.
func AdminAuth(user, passwordHash string) func(http.Handler) http.Handler {
	if user == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPassword, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			userOK := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) == 1
			// bcrypt выполняется всегда, чтобы неверный логин стоил столько же, сколько неверный пароль.
			passErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(gotPassword))
			if !userOK || passErr != nil {
				log.Printf("[AdminAuth] Отклонены учетные данные пользователя '%s' с %s", gotUser, r.RemoteAddr)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", adminRealm)
	http.Error(w, "Authentication required", http.StatusUnauthorized)
}
