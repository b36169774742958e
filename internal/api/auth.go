package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// Auth checks bearer tokens against the keys published at a JWKS url.
type Auth struct {
	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
	log     *zap.Logger
}

func NewAuth(url string, log *zap.Logger) (*Auth, error) {
	if log == nil {
		log = zap.NewNop()
	}

	options := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Warn("failed to refresh the jwks", zap.String("url", url), zap.Error(err))
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	jwks, err := keyfunc.Get(url, options)
	if err != nil {
		return nil, err
	}

	return &Auth{keyfunc: jwks.Keyfunc, jwks: jwks, log: log}, nil
}

// NewAuthWithKeyfunc verifies tokens with fn instead of a remote key set.
func NewAuthWithKeyfunc(fn jwt.Keyfunc, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}

	return &Auth{keyfunc: fn, log: log}
}

func (auth *Auth) Close() {
	if auth.jwks != nil {
		auth.jwks.EndBackground()
	}
}

func (auth *Auth) UserID(r *http.Request) (string, error) {
	data := strings.Split(r.Header.Get("Authorization"), " ")
	if len(data) != 2 || data[0] != "Bearer" {
		return "", errors.New("invalid authorization http header")
	}

	token, err := jwt.Parse(data[1], auth.keyfunc)
	if err != nil {
		return "", errors.New("failed to parse the JWT")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("the token is not valid")
	}

	if err := claims.Valid(); err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("the token has no subject")
	}

	return sub, nil
}

func (auth *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserID(r)
		if err != nil {
			auth.log.Debug("rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			failure(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		auth.log.Debug("authenticated request", zap.String("user_id", userID), zap.String("request_id", RequestID(r.Context())))

		next.ServeHTTP(w, r)
	})
}
