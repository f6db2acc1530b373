package authorizer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/fpang/massive-shoot/internal/line"
)

const (
	channelID = "1234567890"
	methodArn = "arn:aws:execute-api:us-east-1:123:api/prod/GET/images"
)

type fakeVerifier struct {
	info       *line.TokenInfo
	verifyErr  error
	profile    *line.Profile
	profileErr error

	verifyCalls  int
	profileCalls int
}

func (f *fakeVerifier) VerifyToken(context.Context, string) (*line.TokenInfo, error) {
	f.verifyCalls++
	return f.info, f.verifyErr
}

func (f *fakeVerifier) GetProfile(context.Context, string) (*line.Profile, error) {
	f.profileCalls++
	return f.profile, f.profileErr
}

func request(token string) events.APIGatewayCustomAuthorizerRequest {
	return events.APIGatewayCustomAuthorizerRequest{Type: "TOKEN", AuthorizationToken: token, MethodArn: methodArn}
}

func assertPolicy(t *testing.T, resp events.APIGatewayCustomAuthorizerResponse, effect, principal string) {
	t.Helper()
	if resp.PrincipalID != principal {
		t.Errorf("principal = %s, want %s", resp.PrincipalID, principal)
	}
	st := resp.PolicyDocument.Statement
	if len(st) != 1 || st[0].Effect != effect || st[0].Resource[0] != methodArn || st[0].Action[0] != "execute-api:Invoke" {
		t.Errorf("unexpected policy: %+v", resp.PolicyDocument)
	}
}

func TestHandle_NotBearerMakesNoCall(t *testing.T) {
	for _, token := range []string{"", "Basic abc", "bearer abc", "Bearerabc"} {
		f := &fakeVerifier{}
		resp, err := New(f, channelID).Handle(context.Background(), request(token))
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		assertPolicy(t, resp, "Deny", "anonymous")
		if resp.Context["message"] != ReasonNotBearer {
			t.Errorf("%q: message = %v", token, resp.Context["message"])
		}
		if f.verifyCalls != 0 || f.profileCalls != 0 {
			t.Errorf("%q: verifier must not be called", token)
		}
	}
}

func TestHandle_Allow(t *testing.T) {
	f := &fakeVerifier{
		info:    &line.TokenInfo{ClientID: channelID},
		profile: &line.Profile{UserID: "U1", DisplayName: "Alice", PictureURL: "https://p/a"},
	}
	resp, err := New(f, channelID).Handle(context.Background(), request("Bearer good"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	assertPolicy(t, resp, "Allow", "U1")
	want := map[string]interface{}{"user_id": "U1", "display_name": "Alice", "picture_url": "https://p/a"}
	for k, v := range want {
		if resp.Context[k] != v {
			t.Errorf("context[%s] = %v, want %v", k, resp.Context[k], v)
		}
	}
}

func TestHandle_Denials(t *testing.T) {
	tests := []struct {
		name    string
		f       *fakeVerifier
		message string
	}{
		{
			name:    "channel mismatch",
			f:       &fakeVerifier{info: &line.TokenInfo{ClientID: "other"}},
			message: ReasonInvalidToken,
		},
		{
			name:    "provider 400",
			f:       &fakeVerifier{verifyErr: &line.APIError{StatusCode: http.StatusBadRequest, Code: "invalid_request", Description: "access token expired"}},
			message: "access token expired",
		},
		{
			name:    "provider 500",
			f:       &fakeVerifier{verifyErr: &line.APIError{StatusCode: http.StatusInternalServerError}},
			message: ReasonUnknown,
		},
		{
			name:    "transport error",
			f:       &fakeVerifier{verifyErr: errors.New("dial tcp: timeout")},
			message: ReasonUnknown,
		},
		{
			name: "profile failure",
			f: &fakeVerifier{
				info:       &line.TokenInfo{ClientID: channelID},
				profileErr: &line.APIError{StatusCode: http.StatusUnauthorized},
			},
			message: ReasonUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := New(tt.f, channelID).Handle(context.Background(), request("Bearer tok"))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			assertPolicy(t, resp, "Deny", "anonymous")
			if resp.Context["message"] != tt.message {
				t.Errorf("message = %v, want %s", resp.Context["message"], tt.message)
			}
		})
	}
}
