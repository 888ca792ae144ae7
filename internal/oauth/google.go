package oauth

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrInvalidAudience = errors.New("google token audience does not match client id")
	ErrEmailUnverified = errors.New("google account email is not verified")
)

// GoogleIdentity is the subset of the token info the auth service needs.
type GoogleIdentity struct {
	Email string
}

// GoogleVerifier validates Google ID tokens against the configured OAuth
// client. Behind an interface so the auth service can be tested without
// calling Google.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type GoogleVerifierImpl struct {
	clientID string
}

func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &GoogleVerifierImpl{clientID: clientID}
}

func (v *GoogleVerifierImpl) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	service, err := oauth2.NewService(ctx, option.WithHTTPClient(&http.Client{}))
	if err != nil {
		return nil, err
	}

	call := service.Tokeninfo()
	call.IdToken(idToken)
	info, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	if info.Audience != v.clientID {
		return nil, ErrInvalidAudience
	}
	if !info.VerifiedEmail {
		return nil, ErrEmailUnverified
	}

	return &GoogleIdentity{Email: info.Email}, nil
}
