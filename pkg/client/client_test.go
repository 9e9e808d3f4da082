package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000000")

func TestPredictMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Len(t, r.MultipartForm.File, 1)
		file, header, err := r.FormFile(config.FILE_FIELD)
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, pngHeader, body)
		assert.Equal(t, "tomato.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		w.Write([]byte(`{"prediction":"green","confidence":0.87}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 0)
	require.NoError(t, err)
	ret, err := c.Predict(context.Background(), &File{Name: "tomato.png", Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, "green", ret.Label)
	assert.Equal(t, 0.87, ret.Confidence)
}

func TestPredictDefaultFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile(config.FILE_FIELD)
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, defaultFilename, header.Filename)
		w.Write([]byte(`{"prediction":"unripe_x","confidence":42}`))
	}))
	defer srv.Close()

	ret, err := NewManagerClient(0).Predict(context.Background(), srv.URL, &File{Data: []byte("raw")})
	require.NoError(t, err)
	assert.Equal(t, "unripe_x", ret.Label)
	assert.Equal(t, float64(42), ret.Confidence)
}

func TestPredictNoPrediction(t *testing.T) {
	for _, body := range []string{"", "{}", "null", `{"confidence":0.5}`, `{"prediction":""}`, "not json"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		_, err := NewManagerClient(0).Predict(context.Background(), srv.URL, &File{Data: pngHeader})
		assert.True(t, errors.Is(err, ErrNoPrediction), "body %q", body)
		srv.Close()
	}
}

func TestPredictServerError(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		message string
	}{
		{http.StatusBadRequest, `{"error":"bad image"}`, "bad image"},
		{http.StatusInternalServerError, `{}`, ""},
		{http.StatusBadGateway, `<html>gateway</html>`, ""},
	}
	for _, cs := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(cs.status)
			w.Write([]byte(cs.body))
		}))
		_, err := NewManagerClient(0).Predict(context.Background(), srv.URL, &File{Data: pngHeader})
		var se *ServerError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, cs.status, se.StatusCode)
		assert.Equal(t, cs.message, se.Message)
		srv.Close()
	}
}

func TestPredictTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewManagerClient(0).Predict(context.Background(), url, &File{Data: pngHeader})
	var te *TransportError
	assert.True(t, errors.As(err, &te))

	_, err = NewManagerClient(0).Predict(context.Background(), "ftp://localhost/predict", &File{Data: pngHeader})
	assert.True(t, errors.As(err, &te))
}

func TestManagerClientCache(t *testing.T) {
	m := NewManagerClient(0)
	a, err := m.GetClient("http://localhost:5000/predict/optimized")
	require.NoError(t, err)
	b, err := m.GetClient("http://localhost:5000/predict/optimized")
	require.NoError(t, err)
	assert.Same(t, a, b)
	c, err := m.GetClient("http://localhost:5000/predict/vgg16")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, "http://localhost:5000/predict/vgg16", c.Endpoint())
}

func TestInitManagerClient(t *testing.T) {
	old := ManagerClientGlobal
	defer func() { ManagerClientGlobal = old }()

	m := InitManagerClient(3 * time.Second)
	assert.Same(t, m, ManagerClientGlobal)
	c, err := ManagerClientGlobal.GetClient("http://localhost:5000/predict")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
}

func TestResolver(t *testing.T) {
	fixed := &FixedResolver{URL: "https://example.com/predict"}
	url, err := fixed.Resolve(config.ModelVgg16)
	assert.Nil(t, err)
	assert.Equal(t, "https://example.com/predict", url)

	tpl := &TemplateResolver{Template: "http://localhost:5000/predict/{model}"}
	url, err = tpl.Resolve(config.ModelVgg16)
	assert.Nil(t, err)
	assert.Equal(t, "http://localhost:5000/predict/vgg16", url)
	_, err = tpl.Resolve("resnet")
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	_, ok := NewResolver(cfg).(*FixedResolver)
	assert.True(t, ok)
	cfg.EndpointMode = config.ModelEndpoint
	_, ok = NewResolver(cfg).(*TemplateResolver)
	assert.True(t, ok)
}
