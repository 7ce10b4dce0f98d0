package issuer

import (
	"fmt"
	"time"

	"liveshop/internal/app/accesstoken"
)

// Inspection describes a decoded token.
type Inspection struct {
	Version string `json:"version"`
	AppID   string `json:"appId"`

	// AppIDMatches reports whether the token was issued for this project.
	AppIDMatches bool `json:"appIdMatches"`
	// Verified reports whether the signature matches this project's certificate.
	Verified bool `json:"verified"`

	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Expired   bool      `json:"expired"`
	Salt      uint32    `json:"salt"`

	Services []InspectedService `json:"services"`
}

// InspectedService describes one service of a decoded token.
type InspectedService struct {
	Type        string `json:"type"`
	ChannelName string `json:"channelName,omitempty"`
	Account     string `json:"account,omitempty"`
	UserID      string `json:"userId,omitempty"`

	// Privileges maps privilege names to their stored expiration values.
	Privileges map[string]uint32 `json:"privileges"`
}

var (
	rtcPrivilegeNames = map[accesstoken.Privilege]string{
		accesstoken.PrivilegeJoinChannel:        "joinChannel",
		accesstoken.PrivilegePublishAudioStream: "publishAudioStream",
		accesstoken.PrivilegePublishVideoStream: "publishVideoStream",
		accesstoken.PrivilegePublishDataStream:  "publishDataStream",
	}
	rtmPrivilegeNames = map[accesstoken.Privilege]string{
		accesstoken.PrivilegeLogin: "login",
	}
)

func privilegeNames(svc accesstoken.Service, names map[accesstoken.Privilege]string) map[string]uint32 {
	out := make(map[string]uint32)
	for p, expire := range svc.Privileges() {
		name, ok := names[p]
		if !ok {
			name = fmt.Sprintf("privilege(%d)", uint16(p))
		}
		out[name] = expire
	}
	return out
}

// Inspect decodes token and checks it against the issuer's credentials.
// Decoding failures wrap accesstoken.ErrInvalidToken.
func (i *Issuer) Inspect(token string) (*Inspection, error) {
	parsed, err := accesstoken.Parse(token)
	if err != nil {
		return nil, err
	}

	issuedAt := time.Unix(int64(parsed.IssueTs), 0).UTC()
	expiresAt := issuedAt.Add(time.Duration(parsed.Expire) * time.Second)

	out := &Inspection{
		Version:      accesstoken.Version,
		AppID:        parsed.AppID,
		AppIDMatches: parsed.AppID == i.creds.AppID,
		Verified:     parsed.Verify(i.creds.AppCertificate),
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		Expired:      !i.now().Before(expiresAt),
		Salt:         parsed.Salt,
		Services:     make([]InspectedService, 0, len(parsed.Services())),
	}

	for _, svc := range parsed.Services() {
		switch s := svc.(type) {
		case *accesstoken.ServiceRtc:
			out.Services = append(out.Services, InspectedService{
				Type:        s.Type().String(),
				ChannelName: s.ChannelName,
				Account:     s.Account,
				Privileges:  privilegeNames(s, rtcPrivilegeNames),
			})
		case *accesstoken.ServiceRtm:
			out.Services = append(out.Services, InspectedService{
				Type:       s.Type().String(),
				UserID:     s.UserID,
				Privileges: privilegeNames(s, rtmPrivilegeNames),
			})
		}
	}

	return out, nil
}
