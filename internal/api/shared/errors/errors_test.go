package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-marketplace/internal/auth"
	"github.com/feral-file/ff-marketplace/internal/domain"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrorCode
	}{
		{domain.ErrNotOwner, http.StatusForbidden, ErrCodeForbidden},
		{domain.ErrNotAuthorized, http.StatusForbidden, ErrCodeForbidden},
		{fmt.Errorf("%w: current highest bid is 2", domain.ErrBidTooLow), http.StatusConflict, ErrCodeConflict},
		{domain.ErrAuctionEnded, http.StatusConflict, ErrCodeConflict},
		{fmt.Errorf("%w: auction", domain.ErrWrongListingType), http.StatusConflict, ErrCodeConflict},
		{fmt.Errorf("%w: 0xabc", domain.ErrTransactionAlreadyRecorded), http.StatusConflict, ErrCodeConflict},
		{domain.ErrAlreadyListed, http.StatusConflict, ErrCodeConflict},
		{domain.ErrListingNotFound, http.StatusNotFound, ErrCodeNotFound},
		{domain.ErrTransactionRecordNotFound, http.StatusNotFound, ErrCodeNotFound},
		{fmt.Errorf("%w: abc", domain.ErrInvalidPrice), http.StatusBadRequest, ErrCodeValidationFailed},
		{domain.ErrPaymentFailed, http.StatusPaymentRequired, ErrCodePaymentFailed},
		{domain.ErrTransactionNotFound, http.StatusFailedDependency, ErrCodeFailedDependency},
		{fmt.Errorf("%w: 0xabc after 3 attempts", domain.ErrTransactionTimeout), http.StatusGatewayTimeout, ErrCodeDependencyTimeout},
		{auth.ErrInvalidSignature, http.StatusUnauthorized, ErrCodeUnauthorized},
		{stderrors.New("connection refused"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, apiErr := FromError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestFromError_HidesInternalDetails(t *testing.T) {
	_, apiErr := FromError(stderrors.New("pq: password authentication failed"))
	assert.Empty(t, apiErr.Details)
	assert.NotContains(t, apiErr.Error(), "password")
}
