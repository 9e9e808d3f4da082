package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/devsapp/ripeness-uploader/pkg/client"
	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/gin-gonic/gin"
)

const (
	indexTemplate = "index.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates html templates of the upload page
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// readFormFile read the multipart "file" field, nil file when the field is absent
func readFormFile(c *gin.Context) (*client.File, error) {
	header, err := c.FormFile(config.FILE_FIELD)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if max := config.ConfigGlobal.MaxUploadSize; max > 0 && header.Size > max {
		return nil, fmt.Errorf("file size %d exceed %d", header.Size, max)
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &client.File{Name: header.Filename, Data: data}, nil
}

func handleError(c *gin.Context, code int, err string) {
	c.JSON(code, gin.H{"message": err})
}
