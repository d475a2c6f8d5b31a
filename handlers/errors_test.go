package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"indibox/services"
	"indibox/upload"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"input", &services.InputError{Fields: []services.FieldError{{Field: "title", Message: "is required"}}}, 400, "invalid input"},
		{"composition", &services.UploadFailedError{Err: fmt.Errorf("%w: cover image", upload.ErrRequiredAssetMissing)}, 422, "required asset missing: cover image"},
		{"unauthorized", fmt.Errorf("%w: token expired", services.ErrUnauthorized), 401, "authentication required"},
		{"forbidden", services.ErrForbidden, 403, "forbidden"},
		{"not found", services.ErrNotFound, 404, "not found"},
		{"conflict", services.ErrConflict, 409, "already exists"},
		{"fiber", fiber.ErrRequestEntityTooLarge, 413, "Request Entity Too Large"},
		{"persistence", fmt.Errorf("%w: pq: relation does not exist", services.ErrPersistence), 500, "internal server error"},
		{"unknown", errors.New("boom"), 500, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}
