package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

type postForm struct {
	Text  string `form:"text" binding:"required"`
	Group string `form:"group" binding:"omitempty,numeric"`
}

type commentForm struct {
	Text string `form:"text" binding:"required"`
}

type signupForm struct {
	FirstName     string `form:"first_name" binding:"max=150"`
	LastName      string `form:"last_name" binding:"max=150"`
	Username      string `form:"username" binding:"required,max=150"`
	Email         string `form:"email" binding:"omitempty,email"`
	Password1     string `form:"password1" binding:"required"`
	Password2     string `form:"password2" binding:"required"`
	CaptchaID     string `form:"captcha_id"`
	CaptchaAnswer string `form:"captcha_answer"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type passwordChangeForm struct {
	OldPassword  string `form:"old_password" binding:"required"`
	NewPassword1 string `form:"new_password1" binding:"required"`
	NewPassword2 string `form:"new_password2" binding:"required"`
}

type setPasswordForm struct {
	NewPassword1 string `form:"new_password1" binding:"required"`
	NewPassword2 string `form:"new_password2" binding:"required"`
}

type passwordResetForm struct {
	Email string `form:"email" binding:"required,email"`
}

// bindForm binds the POST body into form and translates validator failures into field errors.
func bindForm(ctx *gin.Context, form any) services.ValidationErrors {
	errs := services.ValidationErrors{}
	err := ctx.ShouldBind(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("", "The submitted form could not be read.")
		return errs
	}
	for _, fe := range verrs {
		field := formFieldName(form, fe.StructField())
		errs.Add(field, fieldMessage(fe))
	}
	return errs
}

func merge(dst, src services.ValidationErrors) {
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "numeric":
		return "Select a valid choice. That choice is not one of the available choices."
	default:
		return "Enter a valid value."
	}
}

// formFieldName maps a struct field back to its form tag.
func formFieldName(form any, structField string) string {
	t := reflect.TypeOf(form)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(structField); ok {
		if tag := f.Tag.Get("form"); tag != "" {
			return tag
		}
	}
	return strings.ToLower(structField)
}

// postInput turns a bound post form and optional upload into service input.
func postInput(ctx *gin.Context, form postForm) (services.PostInput, services.ValidationErrors) {
	errs := services.ValidationErrors{}
	in := services.PostInput{Text: form.Text, ClearImage: ctx.PostForm("image-clear") != ""}
	if form.Group != "" {
		if id, err := strconv.ParseUint(form.Group, 10, 64); err == nil {
			gid := uint(id)
			in.GroupID = &gid
		}
	}

	fh, err := ctx.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) || (err == nil && fh.Size == 0 && fh.Filename == "") {
		return in, errs
	}
	if err != nil {
		errs.Add("image", "The submitted data was not a file. Check the encoding type on the form.")
		return in, errs
	}
	data, err := utils.ReadUpload(fh, int64(config.Get().MediaMaxUploadMB)<<20)
	switch {
	case errors.Is(err, utils.ErrImageTooBig), errors.Is(err, utils.ErrEmptyUpload):
		errs.Add("image", err.Error())
		return in, errs
	case err != nil:
		errs.Add("image", utils.ErrEmptyUpload.Error())
		return in, errs
	}
	in.Image = &services.ImageUpload{Filename: fh.Filename, Data: data}
	return in, errs
}
