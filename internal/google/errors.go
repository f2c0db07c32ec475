package google

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/mwufi/cozypage2/internal/model"
)

// mapAPIError はGoogle APIのエラーを統一エラーフォーマットに変換する。
// ステータスコードごとの分類:
//   - 401: トークンが失効しており再認証が必要
//   - 403: スコープ・権限不足
//   - 404: リソース未検出
//   - 400: リクエスト不正
//   - その他: ベンダーメッセージを添付したGoogle APIエラー
func mapAPIError(err error, resource string) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return model.NewReauthRequiredError()
		case http.StatusForbidden:
			return model.NewInsufficientScopeError()
		case http.StatusNotFound:
			return model.NewResourceNotFoundError(resource)
		case http.StatusBadRequest:
			return model.NewInvalidRequestError(gerr.Message)
		default:
			return model.NewGoogleAPIError(gerr.Message)
		}
	}

	// googleapi.Error以外でもトークン失効はエラーメッセージで検出できる
	if strings.Contains(strings.ToLower(err.Error()), "invalid_grant") {
		return model.NewReauthRequiredError()
	}
	return model.NewGoogleAPIError(err.Error())
}
