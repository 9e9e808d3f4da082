package log

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIdHeader = "X-Request-Id"
	requestIdKey    = "requestId"
)

// RequestId tag every request with an id, a valid incoming X-Request-Id is kept
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(RequestIdHeader)
		if _, err := uuid.Parse(requestId); err != nil {
			requestId = uuid.NewString()
		}
		c.Set(requestIdKey, requestId)
		c.Header(RequestIdHeader, requestId)
		c.Next()
	}
}

// WithRequest logger carrying the request id
func WithRequest(c *gin.Context) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		requestIdKey: c.GetString(requestIdKey),
	})
}

// Init set log level by server mode
func Init(mode string) {
	switch mode {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
		// include function and file
		logrus.SetReportCaller(true)
	case "dev":
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}
