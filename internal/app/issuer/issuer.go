/*
Package issuer turns validated token requests into signed Agora tokens.

It owns the process-wide credentials and lifetime bounds, picks the builder
matching the requested token type, and reports each issuance to a Recorder.
No token string is retained after it is returned.
*/
package issuer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"liveshop/internal/app/accesstoken"
	"liveshop/internal/app/rtctoken"
	"liveshop/internal/pkg/logx"
	"liveshop/internal/pkg/randx"
)

// TokenType selects which services an issued token carries.
type TokenType string

const (
	TokenTypeRtc      TokenType = "rtc"
	TokenTypeRtm      TokenType = "rtm"
	TokenTypeCombined TokenType = "combined"
)

var (
	// ErrInvalidTokenType is returned for token types other than rtc, rtm and combined.
	ErrInvalidTokenType = errors.New("issuer: invalid token type")

	// ErrExpireOutOfRange is returned when a requested lifetime is outside the configured bounds.
	ErrExpireOutOfRange = errors.New("issuer: lifetime out of range")

	// ErrBuild wraps failures reported by the token builders.
	ErrBuild = errors.New("issuer: token build failed")
)

// ParseTokenType maps the textual token type. An empty string selects TokenTypeRtc.
func ParseTokenType(s string) (TokenType, error) {
	switch TokenType(s) {
	case "", TokenTypeRtc:
		return TokenTypeRtc, nil
	case TokenTypeRtm, TokenTypeCombined:
		return TokenType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTokenType, s)
	}
}

// Credentials are the Agora project id and signing certificate.
type Credentials struct {
	AppID          string
	AppCertificate string
}

// Lifetimes bounds the token lifetimes clients may request, in seconds.
type Lifetimes struct {
	Default uint32
	Min     uint32
	Max     uint32
}

// Request describes a role-gated token.
type Request struct {
	TokenType   TokenType
	ChannelName string

	// UID is used when Account is empty. Zero means any user.
	UID     uint32
	Account string
	Role    rtctoken.Role

	// RTMUserID defaults to the RTC account, or to a generated id when the account is empty.
	RTMUserID string

	// ExpireSeconds is the requested lifetime; zero selects Lifetimes.Default.
	ExpireSeconds uint32

	RemoteIP string
}

// PrivilegeRequest describes a token with an explicit lifetime per privilege.
// Without an RTMUserID it yields an RTC token granting all four privileges;
// with one it yields an RTC + RTM token whose publish privileges follow Role.
type PrivilegeRequest struct {
	ChannelName string
	UID         uint32
	Account     string
	Role        rtctoken.Role

	TokenExpireSeconds  uint32
	JoinChannelSeconds  uint32
	PublishAudioSeconds uint32
	PublishVideoSeconds uint32
	PublishDataSeconds  uint32

	RTMUserID        string
	RTMExpireSeconds uint32

	RemoteIP string
}

// Issued is the result of one issuance.
type Issued struct {
	Token      string
	IssuanceID string
	TokenType  TokenType

	ChannelName string
	Account     string
	RTMUserID   string
	Role        rtctoken.Role

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer builds tokens from a fixed set of credentials.
type Issuer struct {
	creds     Credentials
	lifetimes Lifetimes
	recorder  Recorder
	now       func() time.Time
}

// New returns an Issuer. A nil recorder disables the audit trail.
func New(creds Credentials, lifetimes Lifetimes, recorder Recorder) *Issuer {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Issuer{
		creds:     creds,
		lifetimes: lifetimes,
		recorder:  recorder,
		now:       time.Now,
	}
}

// AppID returns the project id tokens are issued for.
func (i *Issuer) AppID() string {
	return i.creds.AppID
}

// Lifetimes returns the configured lifetime bounds.
func (i *Issuer) Lifetimes() Lifetimes {
	return i.lifetimes
}

func (i *Issuer) ttl(requested uint32) (uint32, error) {
	if requested == 0 {
		return i.lifetimes.Default, nil
	}
	if requested < i.lifetimes.Min || requested > i.lifetimes.Max {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrExpireOutOfRange, requested, i.lifetimes.Min, i.lifetimes.Max)
	}
	return requested, nil
}

// expireAt converts issuedAt + ttl to the absolute uint32 timestamp stored in privilege maps.
func expireAt(issuedAt time.Time, ttl uint32) (uint32, error) {
	at := issuedAt.Unix() + int64(ttl)
	if at < 0 || at > math.MaxUint32 {
		return 0, fmt.Errorf("%w: expiration %d does not fit uint32", accesstoken.ErrOutOfRange, at)
	}
	return uint32(at), nil
}

// Issue builds a role-gated token of the requested type.
func (i *Issuer) Issue(ctx context.Context, req Request) (*Issued, error) {
	ttl, err := i.ttl(req.ExpireSeconds)
	if err != nil {
		return nil, err
	}

	issuedAt := i.now()
	privilegeExpire, err := expireAt(issuedAt, ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	account := req.Account
	if account == "" {
		account = rtctoken.AccountFromUID(req.UID)
	}

	out := &Issued{
		IssuanceID:  randx.IssuanceID(),
		TokenType:   req.TokenType,
		ChannelName: req.ChannelName,
		Account:     account,
		Role:        req.Role,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(time.Duration(ttl) * time.Second),
	}

	appID, cert := i.creds.AppID, i.creds.AppCertificate

	switch req.TokenType {
	case TokenTypeRtc:
		if req.Account != "" {
			out.Token, err = rtctoken.BuildTokenWithUserAccount(appID, cert, req.ChannelName, req.Account, req.Role, ttl, privilegeExpire)
		} else {
			out.Token, err = rtctoken.BuildTokenWithUid(appID, cert, req.ChannelName, req.UID, req.Role, ttl, privilegeExpire)
		}

	case TokenTypeRtm:
		out.ChannelName = ""
		if out.RTMUserID, err = rtmUserID(req.RTMUserID, account); err != nil {
			break
		}
		out.Token, err = rtctoken.BuildRtmToken(appID, cert, out.RTMUserID, ttl)

	case TokenTypeCombined:
		if out.RTMUserID, err = rtmUserID(req.RTMUserID, account); err != nil {
			break
		}
		if out.RTMUserID == account {
			out.Token, err = rtctoken.BuildTokenWithRtm(appID, cert, req.ChannelName, account, req.Role, ttl, privilegeExpire)
		} else {
			out.Token, err = rtctoken.BuildTokenWithRtm2(appID, cert, req.ChannelName, account, req.Role,
				ttl, privilegeExpire, privilegeExpire, privilegeExpire, privilegeExpire,
				out.RTMUserID, ttl)
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTokenType, req.TokenType)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	i.record(ctx, out, req.RemoteIP)
	return out, nil
}

// IssueWithPrivileges builds a token with an independent lifetime per privilege.
// Every lifetime, including the token's, must lie within the configured bounds.
func (i *Issuer) IssueWithPrivileges(ctx context.Context, req PrivilegeRequest) (*Issued, error) {
	ttl, err := i.ttl(req.TokenExpireSeconds)
	if err != nil {
		return nil, err
	}

	issuedAt := i.now()
	expires := make([]uint32, 0, 5)
	for _, requested := range []uint32{
		req.JoinChannelSeconds,
		req.PublishAudioSeconds,
		req.PublishVideoSeconds,
		req.PublishDataSeconds,
		req.RTMExpireSeconds,
	} {
		seconds, err := i.ttl(requested)
		if err != nil {
			return nil, err
		}
		at, err := expireAt(issuedAt, seconds)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBuild, err)
		}
		expires = append(expires, at)
	}
	join, pubAudio, pubVideo, pubData := expires[0], expires[1], expires[2], expires[3]

	account := req.Account
	if account == "" {
		account = rtctoken.AccountFromUID(req.UID)
	}

	out := &Issued{
		IssuanceID:  randx.IssuanceID(),
		TokenType:   TokenTypeRtc,
		ChannelName: req.ChannelName,
		Account:     account,
		Role:        rtctoken.RolePublisher,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(time.Duration(ttl) * time.Second),
	}

	appID, cert := i.creds.AppID, i.creds.AppCertificate

	if req.RTMUserID == "" {
		if req.Account != "" {
			out.Token, err = rtctoken.BuildTokenWithUserAccountAndPrivilege(appID, cert, req.ChannelName, req.Account,
				ttl, join, pubAudio, pubVideo, pubData)
		} else {
			out.Token, err = rtctoken.BuildTokenWithUidAndPrivilege(appID, cert, req.ChannelName, req.UID,
				ttl, join, pubAudio, pubVideo, pubData)
		}
	} else {
		rtmTTL, _ := i.ttl(req.RTMExpireSeconds)
		out.TokenType = TokenTypeCombined
		out.Role = req.Role
		out.RTMUserID = req.RTMUserID
		out.Token, err = rtctoken.BuildTokenWithRtm2(appID, cert, req.ChannelName, account, req.Role,
			ttl, join, pubAudio, pubVideo, pubData, req.RTMUserID, rtmTTL)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	i.record(ctx, out, req.RemoteIP)
	return out, nil
}

// rtmUserID picks the signaling identity: the explicit id, else the RTC account, else a generated id.
func rtmUserID(requested, account string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if account != "" {
		return account, nil
	}
	return randx.RTMUserID()
}

func (i *Issuer) record(ctx context.Context, out *Issued, remoteIP string) {
	rec := Record{
		IssuanceID:  out.IssuanceID,
		TokenType:   out.TokenType,
		ChannelName: out.ChannelName,
		Account:     out.Account,
		RTMUserID:   out.RTMUserID,
		Role:        out.Role.String(),
		IssuedAt:    out.IssuedAt,
		ExpiresAt:   out.ExpiresAt,
		RemoteIP:    remoteIP,
	}

	if err := i.recorder.Record(ctx, rec); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("issuance_id", out.IssuanceID).Msg("Failed to record token issuance")
	}

	logx.Ctx(ctx).Info().
		Str("issuance_id", out.IssuanceID).
		Str("token_type", string(out.TokenType)).
		Str("channel_name", out.ChannelName).
		Str("role", out.Role.String()).
		Time("expires_at", out.ExpiresAt).
		Msg("Token issued")
}
