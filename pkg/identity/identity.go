// Package identity 第三方身份提供方 ID Token 校验
package identity

import (
	"context"
	"errors"
	"strings"

	"firebase.google.com/go/v4/auth"
)

var (
	ErrIDTokenInvalid = errors.New("身份令牌无效")
	ErrIDTokenExpired = errors.New("身份令牌已过期")
)

// Identity 身份提供方确认的用户身份
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Verifier 校验客户端登录后拿到的 ID Token
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// tokenVerifier 即 *auth.Client 的 VerifyIDToken 能力
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type firebaseVerifier struct {
	client tokenVerifier
}

// NewFirebaseVerifier 基于 Firebase Authentication 的校验器
func NewFirebaseVerifier(client *auth.Client) Verifier {
	return &firebaseVerifier{client: client}
}

func (v *firebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrIDTokenInvalid
	}

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, ErrIDTokenExpired
		}
		return nil, ErrIDTokenInvalid
	}

	return &Identity{
		UID:         token.UID,
		Email:       stringClaim(token.Claims, "email"),
		DisplayName: stringClaim(token.Claims, "name"),
	}, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
