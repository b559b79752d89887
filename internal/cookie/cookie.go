// Package cookie sets and reads the storefront's cookies. Values that the
// client must not read or forge are sealed with a crypto.Encryptor.
package cookie

import (
	"errors"
	"net/http"

	"github.com/dukerupert/skein/internal/crypto"
)

// Cookie names used by the storefront.
const (
	// CartCookieName holds the sealed cart.
	CartCookieName = "skein_cart"
)

// ErrNoCookie is returned by GetSealed when the cookie is absent.
var ErrNoCookie = http.ErrNoCookie

// Config holds cookie scoping options.
type Config struct {
	// Domain scopes the cookie. Empty means host-only.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool

	// SameSite defaults to Lax. Storefronts on another site need None,
	// which browsers only accept together with Secure.
	SameSite http.SameSite
}

// NewConfig creates a cookie configuration with Lax same-site scoping.
func NewConfig(domain string, secure bool) *Config {
	return &Config{
		Domain:   domain,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c *Config) sameSite() http.SameSite {
	if c.SameSite == 0 || c.SameSite == http.SameSiteDefaultMode {
		return http.SameSiteLaxMode
	}
	return c.SameSite
}

// SetSession sets an HttpOnly cookie on "/" that lives maxAge seconds.
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

// ClearSession removes a cookie. Domain and path must match SetSession.
func (c *Config) ClearSession(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Sealer stores opaque values in cookies encrypted with an Encryptor.
type Sealer struct {
	config *Config
	enc    crypto.Encryptor
}

// NewSealer creates a Sealer writing cookies with config.
func NewSealer(config *Config, enc crypto.Encryptor) *Sealer {
	return &Sealer{config: config, enc: enc}
}

// Set encrypts value and stores it under name.
func (s *Sealer) Set(w http.ResponseWriter, name string, value []byte, maxAge int) error {
	sealed, err := s.enc.Encrypt(value)
	if err != nil {
		return err
	}
	s.config.SetSession(w, name, string(sealed), maxAge)
	return nil
}

// Get returns the decrypted cookie value. It returns ErrNoCookie when the
// cookie is absent and the decryption error when it was forged, tampered
// with or sealed under another key.
func (s *Sealer) Get(r *http.Request, name string) ([]byte, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return nil, ErrNoCookie
	}
	if c.Value == "" {
		return nil, ErrNoCookie
	}
	return s.enc.Decrypt([]byte(c.Value))
}

// Clear removes the cookie.
func (s *Sealer) Clear(w http.ResponseWriter, name string) {
	s.config.ClearSession(w, name)
}

// IsMissing reports whether err means the cookie was not sent.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNoCookie)
}
