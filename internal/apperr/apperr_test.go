package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Required("title"), http.StatusBadRequest},
		{fmt.Errorf("create post: %w", &DuplicateSlugError{Slug: "hello-world"}), http.StatusBadRequest},
		{&DuplicateEmailError{Email: "a@b.test"}, http.StatusBadRequest},
		{fmt.Errorf("get: %w", &NotFoundError{Resource: "post", ID: "1"}), http.StatusNotFound},
		{fmt.Errorf("login: %w", ErrInvalidCredentials), http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusCode(tc.err), "%v", tc.err)
	}
}

func TestMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "failed", Message(errors.New("pq: relation missing"), "failed"))
	assert.Equal(t, "title: is required", Message(Required("title"), "failed"))
	assert.Equal(t, `slug "x" already exists`, Message(&DuplicateSlugError{Slug: "x"}, "failed"))
	assert.Equal(t, `slug "x" already exists`, Message(fmt.Errorf("create post: %w", &DuplicateSlugError{Slug: "x"}), "failed"))
	assert.Equal(t, "invalid credentials", Message(ErrInvalidCredentials, "failed"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", &NotFoundError{Resource: "post", ID: "9"})))
	assert.False(t, IsNotFound(errors.New("nope")))
}
