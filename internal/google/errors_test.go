package google

import (
	"errors"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/mwufi/cozypage2/internal/model"
)

func TestMapAPIError_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		wantCode string
	}{
		{name: "unauthorized", code: 401, wantCode: model.ErrCodeReauthRequired},
		{name: "forbidden", code: 403, wantCode: model.ErrCodeInsufficientScope},
		{name: "not found", code: 404, wantCode: model.ErrCodeResourceNotFound},
		{name: "bad request", code: 400, wantCode: model.ErrCodeInvalidRequest},
		{name: "server error", code: 500, wantCode: model.ErrCodeGoogleAPIError},
		{name: "rate limited", code: 429, wantCode: model.ErrCodeGoogleAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &googleapi.Error{Code: tt.code, Message: "boom"}
			got := mapAPIError(err, "リソース")
			if got.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got.Code)
			}
		})
	}
}

func TestMapAPIError_InvalidGrantString(t *testing.T) {
	err := errors.New("oauth2: \"invalid_grant\" token has been expired or revoked")
	got := mapAPIError(err, "リソース")
	if got.Code != model.ErrCodeReauthRequired {
		t.Errorf("expected reauth for invalid_grant, got %s", got.Code)
	}
}

func TestMapAPIError_PassesThroughAPIError(t *testing.T) {
	orig := model.NewNotLinkedError()
	got := mapAPIError(orig, "リソース")
	if got != orig {
		t.Errorf("expected APIError to pass through unchanged")
	}
}

func TestMapAPIError_GenericError(t *testing.T) {
	got := mapAPIError(errors.New("connection reset"), "リソース")
	if got.Code != model.ErrCodeGoogleAPIError {
		t.Errorf("expected google api error, got %s", got.Code)
	}
}
