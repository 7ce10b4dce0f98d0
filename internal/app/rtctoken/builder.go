/*
Package rtctoken provides the named token constructors used by the HTTP layer.

Each builder composes one or two services from the accesstoken package and
returns the signed token string. Builders read no shared state; every call
creates and discards its own AccessToken.
*/
package rtctoken

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"liveshop/internal/app/accesstoken"
)

// Role selects the RTC privileges granted by the role-gated builders.
type Role uint16

const (
	// RolePublisher may join and publish audio, video and data streams.
	RolePublisher Role = 1
	// RoleSubscriber may only join the channel.
	RoleSubscriber Role = 2
)

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	default:
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
}

// ParseRole maps the textual role used by clients to a Role.
// "host" and "publisher" select RolePublisher, "audience" and "subscriber" select RoleSubscriber.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "host", "publisher":
		return RolePublisher, nil
	case "audience", "subscriber":
		return RoleSubscriber, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// AccountFromUID converts a numeric uid to the account string carried by the
// token. Uid 0 means any user and is encoded as the empty string.
func AccountFromUID(uid uint32) string {
	if uid == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(uid), 10)
}

func issueTs() uint32 {
	return uint32(time.Now().Unix())
}

// BuildTokenWithUid builds an RTC token for a numeric uid.
//
// tokenExpire is the token lifetime in seconds. privilegeExpire is stored as
// given for every granted privilege.
func BuildTokenWithUid(appID, appCert, channelName string, uid uint32, role Role, tokenExpire, privilegeExpire uint32) (string, error) {
	return BuildTokenWithUserAccount(appID, appCert, channelName, AccountFromUID(uid), role, tokenExpire, privilegeExpire)
}

// BuildTokenWithUserAccount builds an RTC token for a string account.
func BuildTokenWithUserAccount(appID, appCert, channelName, account string, role Role, tokenExpire, privilegeExpire uint32) (string, error) {
	token := accesstoken.New(appID, appCert, issueTs(), tokenExpire)

	if err := token.AddService(rtcService(channelName, account, role, privilegeExpire)); err != nil {
		return "", err
	}

	return token.Build()
}

// BuildTokenWithUidAndPrivilege builds an RTC token with an independent
// expiration per privilege. All four privileges are granted regardless of role.
func BuildTokenWithUidAndPrivilege(appID, appCert, channelName string, uid uint32,
	tokenExpire, joinChannelPrivilegeExpire, pubAudioPrivilegeExpire, pubVideoPrivilegeExpire, pubDataStreamPrivilegeExpire uint32,
) (string, error) {
	return BuildTokenWithUserAccountAndPrivilege(appID, appCert, channelName, AccountFromUID(uid),
		tokenExpire, joinChannelPrivilegeExpire, pubAudioPrivilegeExpire, pubVideoPrivilegeExpire, pubDataStreamPrivilegeExpire)
}

// BuildTokenWithUserAccountAndPrivilege is BuildTokenWithUidAndPrivilege for a string account.
func BuildTokenWithUserAccountAndPrivilege(appID, appCert, channelName, account string,
	tokenExpire, joinChannelPrivilegeExpire, pubAudioPrivilegeExpire, pubVideoPrivilegeExpire, pubDataStreamPrivilegeExpire uint32,
) (string, error) {
	token := accesstoken.New(appID, appCert, issueTs(), tokenExpire)

	rtc := accesstoken.NewServiceRtc(channelName, account)
	rtc.AddPrivilege(accesstoken.PrivilegeJoinChannel, joinChannelPrivilegeExpire)
	rtc.AddPrivilege(accesstoken.PrivilegePublishAudioStream, pubAudioPrivilegeExpire)
	rtc.AddPrivilege(accesstoken.PrivilegePublishVideoStream, pubVideoPrivilegeExpire)
	rtc.AddPrivilege(accesstoken.PrivilegePublishDataStream, pubDataStreamPrivilegeExpire)

	if err := token.AddService(rtc); err != nil {
		return "", err
	}

	return token.Build()
}

// BuildTokenWithRtm builds a token carrying an RTC grant for account and an
// RTM login for the same account. The login privilege expires with the token.
func BuildTokenWithRtm(appID, appCert, channelName, account string, role Role, tokenExpire, privilegeExpire uint32) (string, error) {
	token := accesstoken.New(appID, appCert, issueTs(), tokenExpire)

	if err := token.AddService(rtcService(channelName, account, role, privilegeExpire)); err != nil {
		return "", err
	}

	rtm := accesstoken.NewServiceRtm(account)
	rtm.AddPrivilege(accesstoken.PrivilegeLogin, tokenExpire)
	if err := token.AddService(rtm); err != nil {
		return "", err
	}

	return token.Build()
}

// BuildTokenWithRtm2 builds an RTC + RTM token where every privilege has its
// own expiration and the RTM user id may differ from the RTC account.
// Publish privileges are only granted to RolePublisher.
func BuildTokenWithRtm2(appID, appCert, channelName, rtcAccount string, rtcRole Role,
	rtcTokenExpire, joinChannelPrivilegeExpire, pubAudioPrivilegeExpire, pubVideoPrivilegeExpire, pubDataStreamPrivilegeExpire uint32,
	rtmUserID string, rtmTokenExpire uint32,
) (string, error) {
	token := accesstoken.New(appID, appCert, issueTs(), rtcTokenExpire)

	rtc := accesstoken.NewServiceRtc(channelName, rtcAccount)
	rtc.AddPrivilege(accesstoken.PrivilegeJoinChannel, joinChannelPrivilegeExpire)
	if rtcRole == RolePublisher {
		rtc.AddPrivilege(accesstoken.PrivilegePublishAudioStream, pubAudioPrivilegeExpire)
		rtc.AddPrivilege(accesstoken.PrivilegePublishVideoStream, pubVideoPrivilegeExpire)
		rtc.AddPrivilege(accesstoken.PrivilegePublishDataStream, pubDataStreamPrivilegeExpire)
	}
	if err := token.AddService(rtc); err != nil {
		return "", err
	}

	rtm := accesstoken.NewServiceRtm(rtmUserID)
	rtm.AddPrivilege(accesstoken.PrivilegeLogin, rtmTokenExpire)
	if err := token.AddService(rtm); err != nil {
		return "", err
	}

	return token.Build()
}

// BuildRtmToken builds a signaling-only token with a login privilege for userID.
func BuildRtmToken(appID, appCert, userID string, tokenExpire uint32) (string, error) {
	token := accesstoken.New(appID, appCert, issueTs(), tokenExpire)

	rtm := accesstoken.NewServiceRtm(userID)
	rtm.AddPrivilege(accesstoken.PrivilegeLogin, tokenExpire)
	if err := token.AddService(rtm); err != nil {
		return "", err
	}

	return token.Build()
}

// rtcService grants join to every role and the publish privileges to publishers.
func rtcService(channelName, account string, role Role, privilegeExpire uint32) *accesstoken.ServiceRtc {
	rtc := accesstoken.NewServiceRtc(channelName, account)
	rtc.AddPrivilege(accesstoken.PrivilegeJoinChannel, privilegeExpire)
	if role == RolePublisher {
		rtc.AddPrivilege(accesstoken.PrivilegePublishAudioStream, privilegeExpire)
		rtc.AddPrivilege(accesstoken.PrivilegePublishVideoStream, privilegeExpire)
		rtc.AddPrivilege(accesstoken.PrivilegePublishDataStream, privilegeExpire)
	}
	return rtc
}
