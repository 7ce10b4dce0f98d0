package issuer

import (
	"context"
	"time"
)

// Record is the audit entry written for every issued token. It carries no
// token string and no credentials.
type Record struct {
	IssuanceID  string
	TokenType   TokenType
	ChannelName string
	Account     string
	RTMUserID   string
	Role        string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RemoteIP    string
}

// Recorder persists issuance records. Failures are logged by the Issuer and
// never fail the issuance itself.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// NopRecorder discards every record.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Record) error { return nil }
