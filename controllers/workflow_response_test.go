package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"journal-workflow-api/services"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrValidation, http.StatusBadRequest},
		{services.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("open: %w", services.ErrBlobNotFound), http.StatusNotFound},
		{services.ErrUnauthorized, http.StatusForbidden},
		{services.ErrInvalidTransition, http.StatusConflict},
		{services.ErrDuplicateAssignment, http.StatusConflict},
		{services.ErrIncompleteReview, http.StatusConflict},
		{fmt.Errorf("save: %w", services.ErrStaleAggregate), http.StatusConflict},
		{errors.New("database is down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, workflowStatusCode(tt.err), tt.err.Error())
	}
}
