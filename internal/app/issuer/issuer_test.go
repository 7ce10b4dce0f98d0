package issuer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveshop/internal/app/accesstoken"
	"liveshop/internal/app/rtctoken"
	"liveshop/internal/pkg/randx"
)

const (
	appID   = "970CA35de60c44645bbae8a215061b33"
	appCert = "5CFd2fd1755d40ecb72977518be15d3b"
)

var epoch = time.Unix(1700000000, 0).UTC()

type memRecorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (m *memRecorder) Record(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func newTestIssuer(rec Recorder) *Issuer {
	i := New(Credentials{AppID: appID, AppCertificate: appCert}, Lifetimes{Default: 3600, Min: 60, Max: 86400}, rec)
	i.now = func() time.Time { return epoch }
	return i
}

func decode(t *testing.T, token string) *accesstoken.AccessToken {
	t.Helper()
	parsed, err := accesstoken.Parse(token)
	require.NoError(t, err)
	require.True(t, parsed.Verify(appCert))
	return parsed
}

func privileges(t *testing.T, token *accesstoken.AccessToken, typ accesstoken.ServiceType) map[accesstoken.Privilege]uint32 {
	t.Helper()
	svc, ok := token.Service(typ)
	require.True(t, ok, "missing %s service", typ)
	return svc.Privileges()
}

func TestParseTokenType(t *testing.T) {
	for in, want := range map[string]TokenType{"": TokenTypeRtc, "rtc": TokenTypeRtc, "rtm": TokenTypeRtm, "combined": TokenTypeCombined} {
		got, err := ParseTokenType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTokenType("chat")
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestIssueRtcHostScenario(t *testing.T) {
	rec := &memRecorder{}
	iss := newTestIssuer(rec)

	out, err := iss.Issue(context.Background(), Request{
		TokenType:   TokenTypeRtc,
		ChannelName: "bc_demo",
		Account:     "1001",
		Role:        rtctoken.RolePublisher,
		RemoteIP:    "203.0.113.0",
	})
	require.NoError(t, err)

	assert.Equal(t, epoch, out.IssuedAt)
	assert.Equal(t, epoch.Add(time.Hour), out.ExpiresAt)
	assert.Equal(t, "1001", out.Account)

	parsed := decode(t, out.Token)
	assert.Equal(t, uint32(3600), parsed.Expire)

	want := uint32(epoch.Unix() + 3600)
	assert.Equal(t, map[accesstoken.Privilege]uint32{
		accesstoken.PrivilegeJoinChannel:        want,
		accesstoken.PrivilegePublishAudioStream: want,
		accesstoken.PrivilegePublishVideoStream: want,
		accesstoken.PrivilegePublishDataStream:  want,
	}, privileges(t, parsed, accesstoken.ServiceTypeRtc))

	require.Len(t, rec.records, 1)
	assert.Equal(t, Record{
		IssuanceID:  out.IssuanceID,
		TokenType:   TokenTypeRtc,
		ChannelName: "bc_demo",
		Account:     "1001",
		Role:        "publisher",
		IssuedAt:    epoch,
		ExpiresAt:   epoch.Add(time.Hour),
		RemoteIP:    "203.0.113.0",
	}, rec.records[0])
}

func TestIssueRtcAudienceByUID(t *testing.T) {
	out, err := newTestIssuer(nil).Issue(context.Background(), Request{
		TokenType:     TokenTypeRtc,
		ChannelName:   "bc_demo",
		UID:           55,
		Role:          rtctoken.RoleSubscriber,
		ExpireSeconds: 600,
	})
	require.NoError(t, err)

	parsed := decode(t, out.Token)
	assert.Equal(t, uint32(600), parsed.Expire)

	svc, _ := parsed.Service(accesstoken.ServiceTypeRtc)
	assert.Equal(t, "55", svc.(*accesstoken.ServiceRtc).Account)
	assert.Equal(t, map[accesstoken.Privilege]uint32{
		accesstoken.PrivilegeJoinChannel: uint32(epoch.Unix() + 600),
	}, svc.Privileges())
}

func TestIssueRtmGeneratesUserID(t *testing.T) {
	out, err := newTestIssuer(nil).Issue(context.Background(), Request{
		TokenType: TokenTypeRtm,
		Role:      rtctoken.RoleSubscriber,
	})
	require.NoError(t, err)

	assert.True(t, randx.IsGeneratedRTMUserID(out.RTMUserID), out.RTMUserID)
	assert.Empty(t, out.ChannelName)

	parsed := decode(t, out.Token)
	require.Len(t, parsed.Services(), 1)
	svc, _ := parsed.Service(accesstoken.ServiceTypeRtm)
	assert.Equal(t, out.RTMUserID, svc.(*accesstoken.ServiceRtm).UserID)
	assert.Equal(t, map[accesstoken.Privilege]uint32{accesstoken.PrivilegeLogin: 3600}, svc.Privileges())
}

func TestIssueCombinedSameIdentity(t *testing.T) {
	out, err := newTestIssuer(nil).Issue(context.Background(), Request{
		TokenType:   TokenTypeCombined,
		ChannelName: "bc_demo",
		Account:     "host-1",
		Role:        rtctoken.RolePublisher,
	})
	require.NoError(t, err)
	assert.Equal(t, "host-1", out.RTMUserID)

	parsed := decode(t, out.Token)
	assert.Len(t, privileges(t, parsed, accesstoken.ServiceTypeRtc), 4)

	svc, _ := parsed.Service(accesstoken.ServiceTypeRtm)
	assert.Equal(t, "host-1", svc.(*accesstoken.ServiceRtm).UserID)
	assert.Equal(t, map[accesstoken.Privilege]uint32{accesstoken.PrivilegeLogin: 3600}, svc.Privileges())
}

func TestIssueCombinedDistinctIdentity(t *testing.T) {
	out, err := newTestIssuer(nil).Issue(context.Background(), Request{
		TokenType:   TokenTypeCombined,
		ChannelName: "bc_demo",
		UID:         7,
		Role:        rtctoken.RoleSubscriber,
		RTMUserID:   "agent-7",
	})
	require.NoError(t, err)

	parsed := decode(t, out.Token)
	rtc, _ := parsed.Service(accesstoken.ServiceTypeRtc)
	assert.Equal(t, "7", rtc.(*accesstoken.ServiceRtc).Account)
	assert.Equal(t, map[accesstoken.Privilege]uint32{
		accesstoken.PrivilegeJoinChannel: uint32(epoch.Unix() + 3600),
	}, rtc.Privileges())

	rtm, _ := parsed.Service(accesstoken.ServiceTypeRtm)
	assert.Equal(t, "agent-7", rtm.(*accesstoken.ServiceRtm).UserID)
}

func TestIssueRejectsLifetimeOutOfRange(t *testing.T) {
	rec := &memRecorder{}
	iss := newTestIssuer(rec)

	for _, seconds := range []uint32{59, 86401} {
		_, err := iss.Issue(context.Background(), Request{
			TokenType:     TokenTypeRtc,
			ChannelName:   "bc_demo",
			Role:          rtctoken.RoleSubscriber,
			ExpireSeconds: seconds,
		})
		assert.ErrorIs(t, err, ErrExpireOutOfRange)
	}
	assert.Empty(t, rec.records)
}

func TestIssueRejectsUnknownType(t *testing.T) {
	_, err := newTestIssuer(nil).Issue(context.Background(), Request{TokenType: "chat"})
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestIssueFailsWhenExpirationOverflows(t *testing.T) {
	iss := newTestIssuer(nil)
	iss.now = func() time.Time { return time.Unix(1<<32-10, 0) }

	_, err := iss.Issue(context.Background(), Request{
		TokenType:   TokenTypeRtc,
		ChannelName: "bc_demo",
		Role:        rtctoken.RoleSubscriber,
	})
	assert.ErrorIs(t, err, ErrBuild)
	assert.ErrorIs(t, err, accesstoken.ErrOutOfRange)
}

func TestIssueSurfacesBuildErrors(t *testing.T) {
	long := make([]byte, accesstoken.MaxStringLength+1)
	for i := range long {
		long[i] = 'a'
	}

	_, err := newTestIssuer(nil).Issue(context.Background(), Request{
		TokenType:   TokenTypeRtc,
		ChannelName: "bc_demo",
		Account:     string(long),
		Role:        rtctoken.RoleSubscriber,
	})
	assert.ErrorIs(t, err, ErrBuild)
}

func TestRecorderFailureDoesNotFailIssue(t *testing.T) {
	rec := &memRecorder{err: errors.New("db down")}
	out, err := newTestIssuer(rec).Issue(context.Background(), Request{
		TokenType:   TokenTypeRtc,
		ChannelName: "bc_demo",
		Role:        rtctoken.RoleSubscriber,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Len(t, rec.records, 1)
}

func TestIssueWithPrivilegesRtcOnly(t *testing.T) {
	out, err := newTestIssuer(nil).IssueWithPrivileges(context.Background(), PrivilegeRequest{
		ChannelName:         "bc_demo",
		UID:                 9,
		TokenExpireSeconds:  7200,
		JoinChannelSeconds:  100,
		PublishAudioSeconds: 200,
		PublishVideoSeconds: 300,
		PublishDataSeconds:  400,
	})
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRtc, out.TokenType)

	parsed := decode(t, out.Token)
	assert.Equal(t, uint32(7200), parsed.Expire)
	base := uint32(epoch.Unix())
	assert.Equal(t, map[accesstoken.Privilege]uint32{
		accesstoken.PrivilegeJoinChannel:        base + 100,
		accesstoken.PrivilegePublishAudioStream: base + 200,
		accesstoken.PrivilegePublishVideoStream: base + 300,
		accesstoken.PrivilegePublishDataStream:  base + 400,
	}, privileges(t, parsed, accesstoken.ServiceTypeRtc))
	_, hasRtm := parsed.Service(accesstoken.ServiceTypeRtm)
	assert.False(t, hasRtm)
}

func TestIssueWithPrivilegesAgentSession(t *testing.T) {
	out, err := newTestIssuer(nil).IssueWithPrivileges(context.Background(), PrivilegeRequest{
		ChannelName:         "bc_demo",
		Account:             "agent",
		Role:                rtctoken.RolePublisher,
		TokenExpireSeconds:  86400,
		JoinChannelSeconds:  86400,
		PublishAudioSeconds: 3600,
		PublishVideoSeconds: 60,
		PublishDataSeconds:  7200,
		RTMUserID:           "agent-rtm",
		RTMExpireSeconds:    43200,
	})
	require.NoError(t, err)
	assert.Equal(t, TokenTypeCombined, out.TokenType)
	assert.Equal(t, "agent-rtm", out.RTMUserID)

	parsed := decode(t, out.Token)
	base := uint32(epoch.Unix())
	assert.Equal(t, map[accesstoken.Privilege]uint32{
		accesstoken.PrivilegeJoinChannel:        base + 86400,
		accesstoken.PrivilegePublishAudioStream: base + 3600,
		accesstoken.PrivilegePublishVideoStream: base + 60,
		accesstoken.PrivilegePublishDataStream:  base + 7200,
	}, privileges(t, parsed, accesstoken.ServiceTypeRtc))
	assert.Equal(t, map[accesstoken.Privilege]uint32{
		accesstoken.PrivilegeLogin: 43200,
	}, privileges(t, parsed, accesstoken.ServiceTypeRtm))
}

func TestIssueWithPrivilegesBounds(t *testing.T) {
	_, err := newTestIssuer(nil).IssueWithPrivileges(context.Background(), PrivilegeRequest{
		ChannelName:         "bc_demo",
		PublishVideoSeconds: 5,
	})
	assert.ErrorIs(t, err, ErrExpireOutOfRange)
}

func TestInspect(t *testing.T) {
	iss := newTestIssuer(nil)
	out, err := iss.Issue(context.Background(), Request{
		TokenType:   TokenTypeCombined,
		ChannelName: "bc_demo",
		Account:     "1001",
		Role:        rtctoken.RoleSubscriber,
	})
	require.NoError(t, err)

	got, err := iss.Inspect(out.Token)
	require.NoError(t, err)

	assert.Equal(t, "007", got.Version)
	assert.Equal(t, appID, got.AppID)
	assert.True(t, got.AppIDMatches)
	assert.True(t, got.Verified)
	assert.False(t, got.Expired)
	require.Len(t, got.Services, 2)

	assert.Equal(t, "rtc", got.Services[0].Type)
	assert.Equal(t, "bc_demo", got.Services[0].ChannelName)
	assert.Equal(t, map[string]uint32{"joinChannel": uint32(epoch.Unix() + 3600)}, got.Services[0].Privileges)

	assert.Equal(t, "rtm", got.Services[1].Type)
	assert.Equal(t, "1001", got.Services[1].UserID)
	assert.Equal(t, map[string]uint32{"login": 3600}, got.Services[1].Privileges)

	other := New(Credentials{AppID: appID, AppCertificate: "00000000000000000000000000000000"}, iss.Lifetimes(), nil)
	got, err = other.Inspect(out.Token)
	require.NoError(t, err)
	assert.False(t, got.Verified)
}

func TestInspectMalformed(t *testing.T) {
	_, err := newTestIssuer(nil).Inspect("007notatoken")
	assert.ErrorIs(t, err, accesstoken.ErrInvalidToken)
}
