package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "host-secret"

func TestGenerateAndParse(t *testing.T) {
	s, err := GenerateToken(&Payload{ID: "seller-9", Role: RoleHost, Channels: []string{"bc_demo"}}, secret, time.Minute)
	require.NoError(t, err)

	p, err := ParseToken(s, secret)
	require.NoError(t, err)
	assert.Equal(t, "seller-9", p.ID)
	assert.Equal(t, "seller-9", p.Subject)
	assert.Equal(t, TokenIssuer, p.Issuer)
	assert.True(t, p.IsHost())
	assert.True(t, p.CanPublish("bc_demo"))
	assert.False(t, p.CanPublish("other"))

	_, err = ParseToken(s, "wrong")
	assert.Error(t, err)
}

func TestParseExpired(t *testing.T) {
	s, err := GenerateToken(&Payload{ID: "seller-9", Role: RoleHost}, secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(s, secret)
	assert.Error(t, err)
}

func TestGenerateRequiresHostID(t *testing.T) {
	_, err := GenerateToken(&Payload{Role: RoleHost}, secret, time.Minute)
	assert.ErrorIs(t, err, ErrMissingHostID)
}

func TestParseRejectsForeignSessions(t *testing.T) {
	sign := func(method gojwt.SigningMethod, claims *Payload) string {
		s, err := gojwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := gojwt.StandardClaims{Issuer: TokenIssuer, ExpiresAt: time.Now().Add(time.Minute).Unix()}
	foreign := valid
	foreign.Issuer = "Other-Server"

	tests := []struct {
		name  string
		token string
	}{
		{name: "hs512", token: sign(gojwt.SigningMethodHS512, &Payload{StandardClaims: valid, ID: "seller-9", Role: RoleHost})},
		{name: "foreign issuer", token: sign(gojwt.SigningMethodHS256, &Payload{StandardClaims: foreign, ID: "seller-9", Role: RoleHost})},
		{name: "no host id", token: sign(gojwt.SigningMethodHS256, &Payload{StandardClaims: valid, Role: RoleHost})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, secret)
			assert.Error(t, err)
		})
	}
}

func TestPayloadRoles(t *testing.T) {
	var nilPayload *Payload
	assert.False(t, nilPayload.IsHost())
	assert.False(t, nilPayload.CanPublish("bc_demo"))
	assert.False(t, (&Payload{Role: "viewer"}).CanPublish("bc_demo"))
	assert.True(t, (&Payload{Role: RoleHost}).CanPublish("anything"))
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	valid, err := GenerateToken(&Payload{ID: "seller-9", Role: RoleHost}, secret, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		header  string
		wantID  string
		wantNil bool
	}{
		{name: "valid bearer", secret: secret, header: "Bearer " + valid, wantID: "seller-9"},
		{name: "lowercase scheme", secret: secret, header: "bearer " + valid, wantID: "seller-9"},
		{name: "no header", secret: secret, wantNil: true},
		{name: "basic scheme", secret: secret, header: "Basic abc", wantNil: true},
		{name: "garbage token", secret: secret, header: "Bearer abc.def.ghi", wantNil: true},
		{name: "disabled", secret: "", header: "Bearer " + valid, wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *Payload
			h := IdentityExtractorMiddleware(tt.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetPayloadFromContext(r)
			}))

			r := httptest.NewRequest(http.MethodPost, "/api/token", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)

			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}
