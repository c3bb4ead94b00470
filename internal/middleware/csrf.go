package middleware

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	// CSRFFieldName - имя поля формы с токеном.
	CSRFFieldName = "csrf_token"

	csrfSubject   = "admin-form"
	csrfTokenTTL  = time.Hour
	formMaxMemory = 8 << 20
)

// CSRF выдает и проверяет токены форм, подписанные секретным ключом процесса.
// Токены - это JWT HS256, после перезапуска процесса они недействительны.
type CSRF struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCSRF создает новый экземпляр CSRF с ключом secret.
func NewCSRF(secret []byte) *CSRF {
	return &CSRF{secret: secret, ttl: csrfTokenTTL, now: time.Now}
}

// WithClock возвращает копию с источником времени now.
func (c *CSRF) WithClock(now func() time.Time) *CSRF {
	cp := *c
	cp.now = now
	return &cp
}

// Token подписывает новый токен формы.
func (c *CSRF) Token() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   csrfSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign csrf token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись, subject и срок действия токена.
func (c *CSRF) Verify(token string) error {
	if token == "" {
		return ErrCSRFTokenMissing
	}
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(csrfSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCSRFTokenInvalid, err)
	}
	return nil
}

// Protect отклоняет небезопасные запросы без действительного токена в форме.
// Форма разбирается здесь, обработчики читают ее без повторного разбора.
func (c *CSRF) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if err := parseForm(r); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Printf("[CSRF] Тело формы больше %d байт на %s", tooLarge.Limit, r.URL.Path)
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			log.Printf("[CSRF] Ошибка разбора формы на %s: %v", r.URL.Path, err)
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		if err := c.Verify(r.PostFormValue(CSRFFieldName)); err != nil {
			log.Printf("[CSRF] Отклонен %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Invalid or missing CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(formMaxMemory)
	}
	return r.ParseForm()
}

// Кастомные ошибки CSRF.
var (
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	ErrCSRFTokenInvalid = errors.New("csrf token invalid")
)
