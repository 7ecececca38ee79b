package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTokenPair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    TokenPair
		wantErr bool
	}{
		{name: "top_level", body: `{"accessToken":"a","refreshToken":"r"}`, want: TokenPair{AccessToken: "a", RefreshToken: "r"}},
		{name: "nested_data", body: `{"success":true,"data":{"accessToken":"a2","refreshToken":"r2"}}`, want: TokenPair{AccessToken: "a2", RefreshToken: "r2"}},
		{name: "access_only", body: `{"data":{"accessToken":"a3"}}`, want: TokenPair{AccessToken: "a3"}},
		{name: "no_tokens", body: `{"data":{"user":"x"}}`, wantErr: true},
		{name: "not_json", body: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTokenPair([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCredentials_Presence(t *testing.T) {
	t.Parallel()

	require.False(t, Credentials{}.HasAccess())
	require.False(t, Credentials{}.HasRefresh())
	require.True(t, Credentials{AccessToken: "a"}.HasAccess())
	require.True(t, Credentials{RefreshToken: "r"}.HasRefresh())
}
