// Package authorizer implements the API Gateway TOKEN authorizer that
// admits callers holding a LINE Login access token issued for our login
// channel.
package authorizer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/line"
	"github.com/fpang/massive-shoot/internal/logging"
)

const (
	bearerPrefix = "Bearer "
	anonymous    = "anonymous"
	policyAction = "execute-api:Invoke"
)

// Denial reasons returned in the authorizer context as "message".
const (
	ReasonNotBearer    = "Authorization type is not Bearer"
	ReasonInvalidToken = "invalid access token"
	ReasonUnknown      = "unknown authorization error"
)

// TokenVerifier checks a token and resolves its owner.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, accessToken string) (*line.TokenInfo, error)
	GetProfile(ctx context.Context, accessToken string) (*line.Profile, error)
}

// Authorizer decides Allow/Deny for one request.
type Authorizer struct {
	verifier  TokenVerifier
	channelID string
}

// New creates an Authorizer accepting tokens issued to channelID.
func New(verifier TokenVerifier, channelID string) *Authorizer {
	return &Authorizer{verifier: verifier, channelID: channelID}
}

// Handle is the Lambda handler. Denials are expressed as a Deny policy,
// never as an error, so API Gateway can surface the reason.
func (a *Authorizer) Handle(ctx context.Context, req events.APIGatewayCustomAuthorizerRequest) (events.APIGatewayCustomAuthorizerResponse, error) {
	logger := logging.Ctx(ctx)

	token, ok := strings.CutPrefix(req.AuthorizationToken, bearerPrefix)
	if !ok {
		logger.Info().Msg("Denied: authorization type is not Bearer")
		return deny(req.MethodArn, ReasonNotBearer), nil
	}

	if reason := a.verify(ctx, token); reason != "" {
		logger.Info().Str("reason", reason).Msg("Denied: token verification failed")
		return deny(req.MethodArn, reason), nil
	}

	profile, err := a.verifier.GetProfile(ctx, token)
	if err != nil || profile.UserID == "" {
		logger.Warn().Err(err).Msg("Denied: profile lookup failed")
		return deny(req.MethodArn, ReasonUnknown), nil
	}

	logger.Info().Str("userId", profile.UserID).Msg("Allowed")
	return policy(req.MethodArn, profile.UserID, true, map[string]interface{}{
		"user_id":      profile.UserID,
		"display_name": profile.DisplayName,
		"picture_url":  profile.PictureURL,
	}), nil
}

// verify returns an empty string when the token is valid for our channel,
// otherwise the denial reason.
func (a *Authorizer) verify(ctx context.Context, token string) string {
	info, err := a.verifier.VerifyToken(ctx, token)
	if err != nil {
		var apiErr *line.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && apiErr.Description != "" {
			return apiErr.Description
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Token verification error")
		return ReasonUnknown
	}
	if info.ClientID != a.channelID {
		return ReasonInvalidToken
	}
	return ""
}

func deny(methodArn, reason string) events.APIGatewayCustomAuthorizerResponse {
	return policy(methodArn, anonymous, false, map[string]interface{}{"message": reason})
}

func policy(methodArn, principal string, allow bool, ctx map[string]interface{}) events.APIGatewayCustomAuthorizerResponse {
	effect := "Deny"
	if allow {
		effect = "Allow"
	}
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: principal,
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: "2012-10-17",
			Statement: []events.IAMPolicyStatement{{
				Action:   []string{policyAction},
				Effect:   effect,
				Resource: []string{methodArn},
			}},
		},
		Context: ctx,
	}
}
