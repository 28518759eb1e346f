package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type Claims struct {
	jwt.StandardClaims
	Name      string   `json:"name,omitempty"`
	IsStudent bool     `json:"is_student,omitempty"`
	IsTeacher bool     `json:"is_teacher,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

var appJWTConfig = middleware.JWTConfig{
	Claims:      &Claims{},
	SigningKey:  core.Conf.SecretKey,
	ContextKey:  "userToken",
	TokenLookup: "header:" + echo.HeaderAuthorization,
	AuthScheme:  "Bearer",
}

// GetUserClaims builds the JWT claims for usr. The token subject is the
// username so that clients can resolve the account without an extra lookup.
func GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   usr.Username,
			Issuer:    core.Conf.AppName,
			Audience:  "Classroom",
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
		},
		Name:      usr.Name,
		IsStudent: usr.IsStudent(),
		IsTeacher: usr.IsTeacher(),
		Roles:     usr.Roles,
	}
}

func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(core.Conf.SecretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return signed, nil
}

// authenticate checks creds against existing users; uname can also be an email.
func authenticate(uname, pwd string, svc user.Service) (*Claims, error) {
	usr, err := svc.GetByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	return GetUserClaims(usr), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errors.New("could not parse claims from context")
}

func getContextUser(ctx echo.Context, svc user.Service) (user.User, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	return svc.GetByUsername(claims.Subject)
}
