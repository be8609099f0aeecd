package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testAddress = "4Nd1mYdCRbM2oGmNDCQhQpshWLxKLggg8ueBhStt6cTU"

func TestIssueAndVerify(t *testing.T) {
	svc, err := NewTokenService("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	token, expires, err := svc.Issue(testAddress)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expires.After(time.Now()))

	address, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, testAddress, address)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokenService("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenService("fedcba9876543210fedcba9876543210", time.Hour)
	require.NoError(t, err)

	token, _, err := issuer.Issue(testAddress)
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc, err := NewTokenService("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, _, err := svc.Issue(testAddress)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	require.Error(t, err)
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	require.Error(t, err)
}
