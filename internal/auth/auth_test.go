package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewAuthService("test-secret")

	token, err := svc.IssueJWT("user-42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Sub)
	assert.Equal(t, "skillpulse-engine", claims.Issuer)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-a").IssueJWT("user-42")
	require.NoError(t, err)

	claims, err := NewAuthService("secret-b").Parse(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := NewAuthService("test-secret")
	claims, err := svc.Parse("not.a.token")
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestSubjectContext(t *testing.T) {
	ctx := WithSubject(context.Background(), "user-42")
	assert.Equal(t, "user-42", SubjectFromContext(ctx))
	assert.Empty(t, SubjectFromContext(context.Background()))
}
