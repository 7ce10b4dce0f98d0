/*
Package handler provides HTTP handler functions for issuing and inspecting channel tokens.
*/
package handler

import (
	"errors"
	"net/http"

	"liveshop/internal/app/accesstoken"
	"liveshop/internal/app/issuer"
	"liveshop/internal/app/rtctoken"
	"liveshop/internal/pkg/auth/jwt"
	"liveshop/internal/pkg/errs"
	"liveshop/internal/pkg/logx"
	"liveshop/internal/pkg/req"
	"liveshop/internal/pkg/resp"
)

type TokenInput struct {
	// TokenType is "rtc" (default), "rtm" or "combined".
	TokenType   string `json:"tokenType,omitempty"`
	ChannelName string `json:"channelName,omitempty" validate:"omitempty,channelname"`

	// UID and Account are mutually exclusive. Neither means uid 0 (any user),
	// or the host id for authenticated hosts.
	UID     *uint64 `json:"uid,omitempty" validate:"omitempty,max=4294967295"`
	Account string  `json:"account,omitempty" validate:"omitempty,max=255"`

	// Role is "host" or "audience". It defaults to audience.
	Role string `json:"role,omitempty"`

	RTMUserID     string `json:"rtmUserId,omitempty" validate:"omitempty,max=64,printascii"`
	ExpireSeconds uint32 `json:"expireSeconds,omitempty"`
}

type PrivilegeTokenInput struct {
	ChannelName string  `json:"channelName" validate:"required,channelname"`
	UID         *uint64 `json:"uid,omitempty" validate:"omitempty,max=4294967295"`
	Account     string  `json:"account,omitempty" validate:"omitempty,max=255"`
	Role        string  `json:"role,omitempty"`

	TokenExpireSeconds       uint32 `json:"tokenExpireSeconds,omitempty"`
	JoinChannelExpireSeconds uint32 `json:"joinChannelExpireSeconds,omitempty"`
	PublishAudioExpireSecond uint32 `json:"publishAudioExpireSeconds,omitempty"`
	PublishVideoExpireSecond uint32 `json:"publishVideoExpireSeconds,omitempty"`
	PublishDataExpireSeconds uint32 `json:"publishDataExpireSeconds,omitempty"`

	RTMUserID        string `json:"rtmUserId,omitempty" validate:"omitempty,max=64,printascii"`
	RTMExpireSeconds uint32 `json:"rtmExpireSeconds,omitempty"`
}

type InspectInput struct {
	Token string `json:"token" validate:"required,max=4096"`
}

// TokenOutput is the data payload of a successful issuance.
type TokenOutput struct {
	Token       string  `json:"token"`
	AppID       string  `json:"appId"`
	TokenType   string  `json:"tokenType"`
	ChannelName string  `json:"channelName,omitempty"`
	UID         *uint32 `json:"uid,omitempty"`
	Account     string  `json:"account,omitempty"`
	RTMUserID   string  `json:"rtmUserId,omitempty"`
	Role        string  `json:"role"`
	IssuanceID  string  `json:"issuanceId"`
	IssuedAt    int64   `json:"issuedAt"`
	ExpiresAt   int64   `json:"expiresAt"`
}

// identity resolves the RTC identity from uid/account, falling back to the host id.
func identity(uid *uint64, account string, host *jwt.Payload) (uint32, string, *errs.CustomError) {
	if uid != nil && account != "" {
		return 0, "", errs.NewError(errs.ErrIdentityConflict)
	}
	if uid != nil {
		return uint32(*uid), "", nil
	}
	if account == "" && host.IsHost() {
		account = host.ID
	}
	return 0, account, nil
}

// authorizeRole parses the role and enforces that only hosts may publish.
func authorizeRole(deps *AppDeps, r *http.Request, raw, channelName, fallback string) (rtctoken.Role, *errs.CustomError) {
	if raw == "" {
		raw = fallback
	}
	role, err := rtctoken.ParseRole(raw)
	if err != nil {
		return 0, errs.NewError(errs.ErrInvalidRole)
	}

	if role == rtctoken.RolePublisher && deps.Config.HostJWTSecret != "" {
		if !jwt.GetPayloadFromContext(r).CanPublish(channelName) {
			return 0, errs.NewError(errs.ErrHostRoleForbidden)
		}
	}
	return role, nil
}

// remoteIP is the anonymized client address kept in the audit log.
func remoteIP(r *http.Request) string {
	return logx.AnonymizeIP(r.RemoteAddr)
}

func issueError(deps *AppDeps, err error) *errs.CustomError {
	switch {
	case errors.Is(err, issuer.ErrExpireOutOfRange):
		lt := deps.Issuer.Lifetimes()
		return errs.NewError(errs.ErrInvalidExpire, lt.Min, lt.Max)
	case errors.Is(err, issuer.ErrInvalidTokenType):
		return errs.NewError(errs.ErrInvalidTokenType)
	default:
		return errs.Wrap(errs.ErrTokenBuildFailed, err)
	}
}

func tokenOutput(deps *AppDeps, out *issuer.Issued, uid *uint64) TokenOutput {
	data := TokenOutput{
		Token:       out.Token,
		AppID:       deps.Issuer.AppID(),
		TokenType:   string(out.TokenType),
		ChannelName: out.ChannelName,
		Account:     out.Account,
		RTMUserID:   out.RTMUserID,
		Role:        out.Role.String(),
		IssuanceID:  out.IssuanceID,
		IssuedAt:    out.IssuedAt.Unix(),
		ExpiresAt:   out.ExpiresAt.Unix(),
	}
	if uid != nil && out.TokenType != issuer.TokenTypeRtm {
		v := uint32(*uid)
		data.UID = &v
		data.Account = ""
	}
	return data
}

// HandleIssueToken issues an rtc, rtm or combined token with role-gated privileges.
func HandleIssueToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input TokenInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		tokenType, err := issuer.ParseTokenType(input.TokenType)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidTokenType))
			return
		}

		if tokenType != issuer.TokenTypeRtm && input.ChannelName == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidChannelName))
			return
		}

		uid, account, customErr := identity(input.UID, input.Account, jwt.GetPayloadFromContext(r))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		role, customErr := authorizeRole(deps, r, input.Role, input.ChannelName, "audience")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		out, err := deps.Issuer.Issue(r.Context(), issuer.Request{
			TokenType:     tokenType,
			ChannelName:   input.ChannelName,
			UID:           uid,
			Account:       account,
			Role:          role,
			RTMUserID:     input.RTMUserID,
			ExpireSeconds: input.ExpireSeconds,
			RemoteIP:      remoteIP(r),
		})
		if err != nil {
			resp.RespondError(w, r, issueError(deps, err))
			return
		}

		resp.RespondSuccess(w, r, tokenOutput(deps, out, input.UID))
	}
}

// HandleIssuePrivilegeToken issues a token with an explicit lifetime per privilege.
// It is reserved for hosts and server-side agents.
func HandleIssuePrivilegeToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PrivilegeTokenInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		host := jwt.GetPayloadFromContext(r)
		if deps.Config.HostJWTSecret != "" {
			if host == nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			if !host.CanPublish(input.ChannelName) {
				resp.RespondError(w, r, errs.NewError(errs.ErrHostRoleForbidden))
				return
			}
		}

		uid, account, customErr := identity(input.UID, input.Account, host)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		role, customErr := authorizeRole(deps, r, input.Role, input.ChannelName, "host")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		out, err := deps.Issuer.IssueWithPrivileges(r.Context(), issuer.PrivilegeRequest{
			ChannelName:         input.ChannelName,
			UID:                 uid,
			Account:             account,
			Role:                role,
			TokenExpireSeconds:  input.TokenExpireSeconds,
			JoinChannelSeconds:  input.JoinChannelExpireSeconds,
			PublishAudioSeconds: input.PublishAudioExpireSecond,
			PublishVideoSeconds: input.PublishVideoExpireSecond,
			PublishDataSeconds:  input.PublishDataExpireSeconds,
			RTMUserID:           input.RTMUserID,
			RTMExpireSeconds:    input.RTMExpireSeconds,
			RemoteIP:            remoteIP(r),
		})
		if err != nil {
			resp.RespondError(w, r, issueError(deps, err))
			return
		}

		resp.RespondSuccess(w, r, tokenOutput(deps, out, input.UID))
	}
}

// HandleInspectToken decodes a token and reports whether it verifies against
// the configured certificate. It is only served in development.
func HandleInspectToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Config.IsDevelopment() {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
			return
		}

		var input InspectInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		inspection, err := deps.Issuer.Inspect(input.Token)
		if err != nil {
			if errors.Is(err, accesstoken.ErrInvalidToken) {
				resp.RespondError(w, r, errs.NewError(errs.ErrMalformedToken))
				return
			}
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, inspection)
	}
}
