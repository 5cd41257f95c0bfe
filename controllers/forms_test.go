package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func formContext(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ctx.Request = req
	return ctx
}

func TestBindFormReportsFormFieldNames(t *testing.T) {
	var form signupForm
	errs := bindForm(formContext(url.Values{"email": {"not-an-email"}}), &form)

	assert.Equal(t, []string{"This field is required."}, errs["username"])
	assert.Equal(t, []string{"This field is required."}, errs["password1"])
	assert.Equal(t, []string{"Enter a valid email address."}, errs["email"])
	assert.NotContains(t, errs, "Username")
}

func TestBindFormAcceptsValidInput(t *testing.T) {
	var form postForm
	errs := bindForm(formContext(url.Values{"text": {"hello"}, "group": {"3"}}), &form)
	assert.Empty(t, errs)
	assert.Equal(t, "hello", form.Text)

	in, imgErrs := postInput(formContext(url.Values{}), form)
	assert.Empty(t, imgErrs)
	if assert.NotNil(t, in.GroupID) {
		assert.Equal(t, uint(3), *in.GroupID)
	}
	assert.Nil(t, in.Image)
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                  "/",
		"/create/":          "/create/",
		"/posts/1/?page=2":  "/posts/1/?page=2",
		"//evil.example/":   "/",
		"/\\evil.example":   "/",
		"https://evil.test": "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeNext(in), in)
	}
}
