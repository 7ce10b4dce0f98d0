package accesstoken

import (
	"fmt"
	"maps"
)

// ServiceType is the numeric tag identifying a service inside a token.
type ServiceType uint16

const (
	ServiceTypeRtc ServiceType = 1
	ServiceTypeRtm ServiceType = 2
)

func (t ServiceType) String() string {
	switch t {
	case ServiceTypeRtc:
		return "rtc"
	case ServiceTypeRtm:
		return "rtm"
	default:
		return fmt.Sprintf("service(%d)", uint16(t))
	}
}

// Privilege identifies a permission within a service. Ids are scoped to
// their service type, so RTC and RTM privileges may share numeric values.
type Privilege uint16

// RTC privileges.
const (
	PrivilegeJoinChannel        Privilege = 1
	PrivilegePublishAudioStream Privilege = 2
	PrivilegePublishVideoStream Privilege = 3
	PrivilegePublishDataStream  Privilege = 4
)

// RTM privileges.
const (
	PrivilegeLogin Privilege = 1
)

// Service is one typed grant embedded in a token. The set of implementations
// is closed: ServiceRtc and ServiceRtm.
type Service interface {
	// Type returns the service tag used as the key inside a token.
	Type() ServiceType

	// AddPrivilege inserts or overwrites the expiration of a privilege.
	AddPrivilege(privilege Privilege, expire uint32)

	// Privileges returns a copy of the privilege map.
	Privileges() map[Privilege]uint32

	// Pack writes the service tag, the privilege map and the type specific fields.
	Pack(p *Packer)

	unpack(u *Unpacker)
}

// privilegeSet is the part shared by every service: its tag and privilege map.
type privilegeSet struct {
	typ        ServiceType
	privileges map[Privilege]uint32
}

func newPrivilegeSet(typ ServiceType) privilegeSet {
	return privilegeSet{typ: typ, privileges: make(map[Privilege]uint32)}
}

func (s *privilegeSet) Type() ServiceType {
	return s.typ
}

func (s *privilegeSet) AddPrivilege(privilege Privilege, expire uint32) {
	s.privileges[privilege] = expire
}

func (s *privilegeSet) Privileges() map[Privilege]uint32 {
	return maps.Clone(s.privileges)
}

func (s *privilegeSet) pack(p *Packer) {
	m := make(map[uint16]uint32, len(s.privileges))
	for k, v := range s.privileges {
		m[uint16(k)] = v
	}
	p.PutUint16(int64(s.typ))
	p.PutMapUint32(m)
}

// unpack reads the privilege map. The tag has already been consumed by the caller.
func (s *privilegeSet) unpack(u *Unpacker) {
	m := u.ReadMapUint32()
	s.privileges = make(map[Privilege]uint32, len(m))
	for k, v := range m {
		s.privileges[Privilege(k)] = v
	}
}

// ServiceRtc grants access to one RTC channel for one account.
type ServiceRtc struct {
	privilegeSet

	ChannelName string
	// Account is the user account, or the decimal uid. An empty account
	// stands for uid 0 (any user).
	Account string
}

// NewServiceRtc creates an RTC service with an empty privilege map.
func NewServiceRtc(channelName, account string) *ServiceRtc {
	return &ServiceRtc{
		privilegeSet: newPrivilegeSet(ServiceTypeRtc),
		ChannelName:  channelName,
		Account:      account,
	}
}

func (s *ServiceRtc) Pack(p *Packer) {
	s.privilegeSet.pack(p)
	p.PutString(s.ChannelName)
	p.PutString(s.Account)
}

func (s *ServiceRtc) unpack(u *Unpacker) {
	s.privilegeSet.unpack(u)
	s.ChannelName = u.ReadString()
	s.Account = u.ReadString()
}

// ServiceRtm grants signaling (RTM) login for one user id.
type ServiceRtm struct {
	privilegeSet

	UserID string
}

// NewServiceRtm creates an RTM service with an empty privilege map.
func NewServiceRtm(userID string) *ServiceRtm {
	return &ServiceRtm{
		privilegeSet: newPrivilegeSet(ServiceTypeRtm),
		UserID:       userID,
	}
}

func (s *ServiceRtm) Pack(p *Packer) {
	s.privilegeSet.pack(p)
	p.PutString(s.UserID)
}

func (s *ServiceRtm) unpack(u *Unpacker) {
	s.privilegeSet.unpack(u)
	s.UserID = u.ReadString()
}

// newService returns an empty service for a decoded tag.
func newService(typ ServiceType) (Service, error) {
	switch typ {
	case ServiceTypeRtc:
		return NewServiceRtc("", ""), nil
	case ServiceTypeRtm:
		return NewServiceRtm(""), nil
	default:
		return nil, fmt.Errorf("unknown service type %d", uint16(typ))
	}
}
