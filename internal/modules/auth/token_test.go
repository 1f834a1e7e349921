package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/questline-backend/internal/platform/ctxutil"
)

func TestIssueThenVerify(t *testing.T) {
	svc := NewTokenService("s3cret", "questline", time.Hour)
	userID := uuid.New()
	tok, err := svc.Issue(userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.TokenString != tok {
		t.Fatalf("request data: %+v", rd)
	}
}

func TestVerifyRejects(t *testing.T) {
	userID := uuid.New()
	good := NewTokenService("s3cret", "questline", time.Hour)

	expired := NewTokenService("s3cret", "questline", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredTok, _ := expired.Issue(userID)

	otherSecretTok, _ := NewTokenService("other", "questline", time.Hour).Issue(userID)
	otherIssuerTok, _ := NewTokenService("s3cret", "elsewhere", time.Hour).Issue(userID)

	noneTok, _ := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), Issuer: "questline"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", Issuer: "questline"},
	}).SignedString([]byte("s3cret"))

	cases := map[string]string{
		"garbage":      "not-a-token",
		"expired":      expiredTok,
		"other secret": otherSecretTok,
		"other issuer": otherIssuerTok,
		"alg none":     noneTok,
		"bad subject":  badSubject,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := good.Verify(tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err: got=%v want=%v", err, ErrInvalidToken)
			}
		})
	}
}

func TestMissingSecret(t *testing.T) {
	svc := NewTokenService("", "", 0)
	if _, err := svc.Issue(uuid.New()); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Issue: got=%v", err)
	}
	if _, err := svc.Verify("x"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Verify: got=%v", err)
	}
}
