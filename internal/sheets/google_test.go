package sheets

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/rongwang/invoice-sheets/internal/models"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing file", &googleapi.Error{Code: http.StatusNotFound}, models.ErrNotFound},
		{"expired access token", &googleapi.Error{Code: http.StatusUnauthorized}, models.ErrUnauthenticated},
		{"quota", &googleapi.Error{Code: http.StatusTooManyRequests}, models.ErrUpstream},
		{"transport", errors.New("connection reset"), models.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err, "get values"), tt.want)
		})
	}
}
