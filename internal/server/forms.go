package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

var (
	errUnsupportedImage = errors.New("image must be a PNG or JPEG file")
	errImageTooLarge    = errors.New("image exceeds the upload limit")
)

var allowedImageTypes = []string{"image/png", "image/jpeg"}

// bindMomentForm overlays the submitted fields on base. Fields absent from the
// request keep the base value, so an edit form may post only what it shows.
func bindMomentForm(c *gin.Context, base moments.Form) (moments.Form, error) {
	form := base
	if value, ok := c.GetPostForm(string(moments.FieldTitle)); ok {
		form.Title = value
	}
	if value, ok := c.GetPostForm(string(moments.FieldDate)); ok {
		form.Date = value
	}
	if value, ok := c.GetPostForm(string(moments.FieldDescription)); ok {
		form.Description = value
	}
	if values, ok := c.GetPostFormArray(string(moments.FieldFeelings)); ok {
		form.Feelings = []moments.Feeling{}
		for _, value := range values {
			form.Feelings = append(form.Feelings, moments.ParseFeelingList(value)...)
		}
	}
	if value, ok := c.GetPostForm(string(moments.FieldImageCaption)); ok {
		form.ImageCaption = value
	}

	image, err := readImage(c)
	if err != nil {
		return moments.Form{}, err
	}
	form.Image = image
	return form, nil
}

func readImage(c *gin.Context) (*moments.ImageAttachment, error) {
	header, err := c.FormFile(string(moments.FieldImage))
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	content, err := readUpload(header)
	if err != nil {
		return nil, err
	}
	if len(content) > 0 {
		detected := mimetype.Detect(content)
		if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
			return nil, fmt.Errorf("%w: detected %s", errUnsupportedImage, detected.String())
		}
	}
	return &moments.ImageAttachment{Filename: header.Filename, Content: content}, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxUploadBytes {
		return nil, errImageTooLarge
	}
	return content, nil
}
