package accesstoken

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/zlib"
)

const (
	// Version is the prefix of every token string this package produces.
	Version = "007"

	// maxSalt bounds the random salt to the range the verifying servers issue themselves.
	maxSalt = 99999999
)

var (
	// ErrAlreadyBuilt is returned when a built token is modified or built again.
	ErrAlreadyBuilt = errors.New("accesstoken: token already built")

	// ErrInvalidToken wraps every failure to decode a token string.
	ErrInvalidToken = errors.New("accesstoken: invalid token")
)

// AccessToken is a signed container of services.
//
// A token starts in the created state, collects services through AddService,
// and becomes immutable once Build succeeds. Tokens returned by Parse are
// already built.
type AccessToken struct {
	AppID   string
	AppCert string

	// IssueTs is the unix time (seconds) the token was issued at.
	IssueTs uint32
	// Expire is the token lifetime in seconds, counted from IssueTs.
	Expire uint32
	Salt   uint32

	// Signature is set by Build or Parse.
	Signature []byte

	services map[ServiceType]Service
	body     []byte
	built    bool
}

// New creates an unsigned token with a random salt.
func New(appID, appCert string, issueTs, expire uint32) *AccessToken {
	return &AccessToken{
		AppID:    appID,
		AppCert:  appCert,
		IssueTs:  issueTs,
		Expire:   expire,
		Salt:     newSalt(),
		services: make(map[ServiceType]Service),
	}
}

// newSalt draws a salt in [1, maxSalt] from crypto/rand.
func newSalt() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint32(b[:])%maxSalt + 1
}

// WithSalt replaces the random salt. It is meant for reproducible tokens in tests.
func (t *AccessToken) WithSalt(salt uint32) *AccessToken {
	t.Salt = salt
	return t
}

// AddService stores s under its type, replacing any service of the same type.
func (t *AccessToken) AddService(s Service) error {
	if t.built {
		return ErrAlreadyBuilt
	}
	t.services[s.Type()] = s
	return nil
}

// Service returns the service stored under typ.
func (t *AccessToken) Service(typ ServiceType) (Service, bool) {
	s, ok := t.services[typ]
	return s, ok
}

// Services returns the services in ascending type order.
func (t *AccessToken) Services() []Service {
	types := make([]ServiceType, 0, len(t.services))
	for typ := range t.services {
		types = append(types, typ)
	}
	slices.Sort(types)

	out := make([]Service, 0, len(types))
	for _, typ := range types {
		out = append(out, t.services[typ])
	}
	return out
}

// Built reports whether the token has been signed.
func (t *AccessToken) Built() bool {
	return t.built
}

// Build signs the token with AppCert and returns the transport string.
func (t *AccessToken) Build() (string, error) {
	if t.built {
		return "", ErrAlreadyBuilt
	}

	body, err := t.packBody()
	if err != nil {
		return "", err
	}

	signature := sign(signingKey(t.AppCert, t.IssueTs, t.Salt), body)

	content, err := NewPacker().PutBytes(signature).putRaw(body).Bytes()
	if err != nil {
		return "", err
	}

	compressed, err := compress(content)
	if err != nil {
		return "", fmt.Errorf("accesstoken: compress: %w", err)
	}

	t.Signature = signature
	t.body = body
	t.built = true

	return Version + base64.StdEncoding.EncodeToString(compressed), nil
}

// packBody serializes every field except the signature.
func (t *AccessToken) packBody() ([]byte, error) {
	p := NewPacker()
	p.PutString(t.AppID)
	p.PutUint32(int64(t.IssueTs))
	p.PutUint32(int64(t.Expire))
	p.PutUint32(int64(t.Salt))
	p.PutUint16(int64(len(t.services)))
	for _, s := range t.Services() {
		s.Pack(p)
	}
	return p.Bytes()
}

// Verify reports whether the token signature matches appCert.
// Only built or parsed tokens can verify.
func (t *AccessToken) Verify(appCert string) bool {
	if !t.built || t.body == nil {
		return false
	}
	expected := sign(signingKey(appCert, t.IssueTs, t.Salt), t.body)
	return hmac.Equal(expected, t.Signature)
}

// signingKey derives the per-token key from the certificate, issue time and salt.
func signingKey(appCert string, issueTs, salt uint32) []byte {
	h := hmac.New(sha256.New, binary.LittleEndian.AppendUint32(nil, issueTs))
	h.Write([]byte(appCert))
	issued := h.Sum(nil)

	h = hmac.New(sha256.New, binary.LittleEndian.AppendUint32(nil, salt))
	h.Write(issued)
	return h.Sum(nil)
}

func sign(key, body []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(body)
	return h.Sum(nil)
}

func compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Parse decodes a token string produced by Build. It does not check the
// signature; call Verify with the expected certificate for that.
func Parse(token string) (*AccessToken, error) {
	if len(token) <= len(Version) || token[:len(Version)] != Version {
		return nil, fmt.Errorf("%w: missing %q version prefix", ErrInvalidToken, Version)
	}

	compressed, err := base64.StdEncoding.DecodeString(token[len(Version):])
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %w", ErrInvalidToken, err)
	}

	content, err := decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %w", ErrInvalidToken, err)
	}

	u := NewUnpacker(content)
	signature := u.ReadBytes()
	if u.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, u.Err())
	}
	body := content[len(content)-u.Remaining():]

	t := &AccessToken{
		Signature: signature,
		services:  make(map[ServiceType]Service),
		body:      slices.Clone(body),
		built:     true,
	}

	t.AppID = u.ReadString()
	t.IssueTs = u.ReadUint32()
	t.Expire = u.ReadUint32()
	t.Salt = u.ReadUint32()
	count := u.ReadUint16()
	if u.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, u.Err())
	}

	for i := uint16(0); i < count; i++ {
		typ := ServiceType(u.ReadUint16())
		if u.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, u.Err())
		}
		s, err := newService(typ)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		s.unpack(u)
		if u.Err() != nil {
			return nil, fmt.Errorf("%w: %s service: %w", ErrInvalidToken, typ, u.Err())
		}
		if _, dup := t.services[typ]; dup {
			return nil, fmt.Errorf("%w: duplicate %s service", ErrInvalidToken, typ)
		}
		t.services[typ] = s
	}

	if u.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidToken, u.Remaining())
	}

	return t, nil
}
