package response

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus_PortalCodes(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeUnauthenticated, http.StatusUnauthorized},
		{ErrCodeUnauthorized, http.StatusForbidden},
		{ErrCodeSelfActionForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeCapacityExceeded, http.StatusConflict},
		{ErrCodeAlreadyRegistered, http.StatusConflict},
		{ErrCodeNotOpen, http.StatusConflict},
		{ErrCodeEventAlreadyStarted, http.StatusConflict},
		{ErrCodeStateConflict, http.StatusConflict},
		{ErrCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeInternalError, http.StatusInternalServerError},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestErrorCodeToHTTPStatus_EveryCodeIsAnError(t *testing.T) {
	for code, status := range ErrorCodeToHTTPStatus {
		assert.GreaterOrEqual(t, status, 400, code)
	}
}

func TestUnauthenticatedAndUnauthorizedAreDistinct(t *testing.T) {
	missing := Unauthenticated("")
	forbidden := Unauthorized("")

	assert.Equal(t, ErrCodeUnauthenticated, missing.Error.Code)
	assert.Equal(t, ErrCodeUnauthorized, forbidden.Error.Code)
	assert.Equal(t, http.StatusUnauthorized, GetHTTPStatus(missing.Error.Code))
	assert.Equal(t, http.StatusForbidden, GetHTTPStatus(forbidden.Error.Code))
	assert.Equal(t, "Authentication required", missing.Error.Message)
	assert.Equal(t, "Insufficient permissions", forbidden.Error.Message)
}

func TestErrorHelpers_DefaultMessages(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		code string
		msg  string
	}{
		{"not found", NotFound(""), ErrCodeNotFound, "Resource not found"},
		{"internal", InternalError(""), ErrCodeInternalError, "An internal error occurred"},
		{"rate limited", TooManyRequests(""), ErrCodeTooManyRequests, "Too many requests, please try again later"},
		{"not ready", ServiceUnavailable(""), ErrCodeServiceUnavailable, "Service temporarily unavailable"},
		{"explicit message wins", NotFound("event not found"), ErrCodeNotFound, "event not found"},
		{"bad request keeps caller text", BadRequest("invalid JSON body"), ErrCodeBadRequest, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.resp.Error)
			assert.False(t, tt.resp.Success)
			assert.Nil(t, tt.resp.Data)
			assert.Equal(t, tt.code, tt.resp.Error.Code)
			assert.Equal(t, tt.msg, tt.resp.Error.Message)
		})
	}
}

func TestErrorWithDetails_Envelope(t *testing.T) {
	resp := ErrorWithDetails(ErrCodeValidationFailed, "team events need at least one named member",
		map[string]string{"team_members": "team events need at least one named member"})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var parsed struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.False(t, parsed.Success)
	assert.Equal(t, "VALIDATION_ERROR", parsed.Error.Code)
	assert.Contains(t, parsed.Error.Details, "team_members")

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "data")
	assert.NotContains(t, fields, "meta")
}

func TestSuccess_OmitsErrorAndMeta(t *testing.T) {
	raw, err := json.Marshal(Success(map[string]string{"id": "evt-1", "status": "OPEN"}))
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.JSONEq(t, `true`, string(fields["success"]))
	assert.JSONEq(t, `{"id":"evt-1","status":"OPEN"}`, string(fields["data"]))
	assert.NotContains(t, fields, "error")
	assert.NotContains(t, fields, "meta")
}

func TestPaginated_Meta(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		total      int64
		totalPages int
	}{
		{"partial last page", 2, 20, 45, 3},
		{"exact pages", 1, 10, 30, 3},
		{"empty listing", 1, 20, 0, 0},
		{"single short page", 1, 50, 7, 1},
		{"zero page size", 1, 0, 7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Paginated([]string{}, tt.page, tt.perPage, tt.total)
			require.NotNil(t, resp.Meta)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.page, resp.Meta.Page)
			assert.Equal(t, tt.perPage, resp.Meta.PerPage)
			assert.Equal(t, tt.total, resp.Meta.Total)
			assert.Equal(t, tt.totalPages, resp.Meta.TotalPages)
		})
	}
}
