package jwt

import "github.com/golang-jwt/jwt"

// RoleHost is the role claim that unlocks publisher tokens.
const RoleHost = "host"

// Payload is the set of claims carried by a host session token.
type Payload struct {
	jwt.StandardClaims

	// ID identifies the seller or presenter; it becomes the default RTC account.
	ID string `json:"id"`

	// Role is RoleHost for presenters. Other values are treated as audience.
	Role string `json:"role"`

	// Channels optionally restricts the channels the host may publish to.
	// Empty means any channel.
	Channels []string `json:"channels,omitempty"`
}

// IsHost reports whether the payload grants the host role.
func (p *Payload) IsHost() bool {
	return p != nil && p.Role == RoleHost
}

// CanPublish reports whether the payload allows hosting channelName.
func (p *Payload) CanPublish(channelName string) bool {
	if !p.IsHost() {
		return false
	}
	if len(p.Channels) == 0 {
		return true
	}
	for _, c := range p.Channels {
		if c == channelName {
			return true
		}
	}
	return false
}
