package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileSpec struct {
	name        string
	contentType string
	content     []byte
}

func fileHeaders(t *testing.T, specs ...fileSpec) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, file := range specs {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, file.name))
		header.Set("Content-Type", file.contentType)

		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["images"]
}

func newValidator(t *testing.T) *Validator {
	t.Helper()

	validator, err := NewValidator(t.TempDir())
	require.NoError(t, err)
	return validator
}

func TestValidateArticleNumber(t *testing.T) {
	validator := newValidator(t)

	assert.NoError(t, validator.ValidateArticleNumber("A100"))
	assert.ErrorIs(t, validator.ValidateArticleNumber(""), ErrMissingField)
	assert.ErrorIs(t, validator.ValidateArticleNumber("   "), ErrMissingField)
}

func TestRequireFiles(t *testing.T) {
	validator := newValidator(t)

	assert.ErrorIs(t, validator.RequireFiles(nil), ErrMissingFiles)
	assert.NoError(t, validator.RequireFiles(fileHeaders(t,
		fileSpec{name: "a.jpg", contentType: "image/jpeg", content: []byte("a")},
	)))
}

func TestStageWritesFiles(t *testing.T) {
	validator := newValidator(t)

	staged, err := validator.Stage(fileHeaders(t,
		fileSpec{name: "front.jpg", contentType: "image/jpeg", content: []byte("jpeg-bytes")},
		fileSpec{name: "back.png", contentType: "image/png", content: []byte("png-bytes")},
	))
	require.NoError(t, err)
	require.Len(t, staged, 2)

	for _, file := range staged {
		info, err := os.Stat(file.Path)
		require.NoError(t, err)
		assert.Equal(t, file.Size, info.Size())
		assert.Equal(t, validator.Dir(), filepath.Dir(file.Path))
	}

	assert.Equal(t, "front.jpg", staged[0].OriginalName)
	assert.Equal(t, ".jpg", filepath.Ext(staged[0].Path))
	assert.Equal(t, ".png", filepath.Ext(staged[1].Path))

	content, err := os.ReadFile(staged[0].Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), content)
}

func TestStageRejectsUnsupportedExtension(t *testing.T) {
	validator := newValidator(t)

	_, err := validator.Stage(fileHeaders(t,
		fileSpec{name: "notes.txt", contentType: "image/png", content: []byte("x")},
	))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestStageRejectsUnsupportedContentType(t *testing.T) {
	validator := newValidator(t)

	_, err := validator.Stage(fileHeaders(t,
		fileSpec{name: "photo.png", contentType: "application/octet-stream", content: []byte("x")},
	))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestStageRejectsOversizedFile(t *testing.T) {
	validator := newValidator(t)

	_, err := validator.Stage(fileHeaders(t,
		fileSpec{name: "huge.gif", contentType: "image/gif", content: bytes.Repeat([]byte("a"), MaxFileSize+1)},
	))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestStageRejectsTooManyFiles(t *testing.T) {
	validator := newValidator(t)

	specs := make([]fileSpec, MaxFiles+1)
	for i := range specs {
		specs[i] = fileSpec{
			name:        fmt.Sprintf("img%d.jpg", i),
			contentType: "image/jpeg",
			content:     []byte("x"),
		}
	}

	_, err := validator.Stage(fileHeaders(t, specs...))
	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestStageRejectsBeforeWritingAnything(t *testing.T) {
	validator := newValidator(t)

	_, err := validator.Stage(fileHeaders(t,
		fileSpec{name: "good.jpg", contentType: "image/jpeg", content: []byte("x")},
		fileSpec{name: "bad.exe", contentType: "image/jpeg", content: []byte("x")},
	))
	require.ErrorIs(t, err, ErrUnsupportedFileType)

	entries, err := os.ReadDir(validator.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "no file may be staged when any file is rejected")
}
