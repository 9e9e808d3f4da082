package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "github.com/devsapp/ripeness-uploader/pkg/client"
	defaultFilename = "blob"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// File the binary sent in the multipart "file" field
type File struct {
	Name string
	Data []byte
}

// Prediction success response of the classification service
type Prediction struct {
	Label      string
	Confidence float64
}

type predictBody struct {
	Prediction *string  `json:"prediction"`
	Confidence *float64 `json:"confidence"`
}

// Client send predict request to one endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s invalid: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %s scheme not support", endpoint)
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict post file as multipart/form-data and decode the prediction
func (c *Client) Predict(ctx context.Context, file *File) (ret *Prediction, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "predict",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("predict.endpoint", c.endpoint),
			attribute.Int("predict.size", len(file.Data)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, contentType, err := multipartBody(file)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	logrus.WithFields(logrus.Fields{
		"endpoint": c.endpoint,
		"status":   resp.StatusCode,
	}).Debug("predict response")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newServerError(resp.StatusCode, respBody)
	}
	return parsePrediction(respBody)
}

func multipartBody(file *File) (*bytes.Buffer, string, error) {
	name := file.Name
	if name == "" {
		name = defaultFilename
	}
	buf := new(bytes.Buffer)
	writer := multipart.NewWriter(buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		config.FILE_FIELD, quoteEscaper.Replace(name)))
	h.Set("Content-Type", mimetype.Detect(file.Data).String())
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

func parsePrediction(body []byte) (*Prediction, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoPrediction
	}
	var pb *predictBody
	if err := json.Unmarshal(body, &pb); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPrediction, err.Error())
	}
	if pb == nil || pb.Prediction == nil || *pb.Prediction == "" {
		return nil, ErrNoPrediction
	}
	ret := &Prediction{Label: *pb.Prediction}
	if pb.Confidence != nil {
		ret.Confidence = *pb.Confidence
	}
	return ret, nil
}
