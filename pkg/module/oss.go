package module

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/devsapp/ripeness-uploader/pkg/client"
	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/upload"
	"github.com/devsapp/ripeness-uploader/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Bucket the part of *oss.Bucket used by archive
type Bucket interface {
	PutObject(objectKey string, reader io.Reader, options ...oss.Option) error
}

// OssManager archive every triggered upload into oss
type OssManager struct {
	bucket Bucket
	prefix string
	// guard closed and wg.Add against Close
	lock   sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewOssManager() (*OssManager, error) {
	ossClient, err := oss.New(config.ConfigGlobal.OssEndpoint, config.ConfigGlobal.AccessKeyId,
		config.ConfigGlobal.AccessKeySecret, oss.SecurityToken(config.ConfigGlobal.AccessKeyToken))
	if err != nil {
		return nil, err
	}
	bucket, err := ossClient.Bucket(config.ConfigGlobal.Bucket)
	if err != nil {
		return nil, err
	}
	return NewOssManagerWithBucket(bucket, config.ConfigGlobal.OssPrefix), nil
}

func NewOssManagerWithBucket(bucket Bucket, prefix string) *OssManager {
	return &OssManager{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey <prefix>/<yyyymmdd>/<attemptId>_<filename>
func (o *OssManager) ObjectKey(attempt *upload.Attempt) string {
	name := path.Base(attempt.FileName)
	if name == "." || name == "/" {
		name = "blob"
	}
	key := fmt.Sprintf("%s/%s_%s", utils.DateDir(attempt.CreateTime), attempt.ID, name)
	if o.prefix == "" {
		return key
	}
	return o.prefix + "/" + key
}

// UploadFileByByte upload body to oss
func (o *OssManager) UploadFileByByte(ossKey string, body []byte) error {
	return o.bucket.PutObject(ossKey, bytes.NewReader(body))
}

// Triggered archive in background, failure only logged
func (o *OssManager) Triggered(attempt *upload.Attempt, file *client.File) {
	key := o.ObjectKey(attempt)
	id := attempt.ID
	o.lock.Lock()
	if o.closed {
		o.lock.Unlock()
		logrus.WithFields(logrus.Fields{"attemptId": id}).Warnf("archive %s skipped, oss manager closed", key)
		return
	}
	o.wg.Add(1)
	o.lock.Unlock()
	go func() {
		defer o.wg.Done()
		if err := o.UploadFileByByte(key, file.Data); err != nil {
			logrus.WithFields(logrus.Fields{"attemptId": id}).Errorf("archive %s err=%s", key, err.Error())
			return
		}
		logrus.WithFields(logrus.Fields{"attemptId": id}).Debugf("archive %s", key)
	}()
}

func (o *OssManager) Settled(*upload.Attempt) {}

// Close reject new archives and wait pending ones
func (o *OssManager) Close() {
	o.lock.Lock()
	o.closed = true
	o.lock.Unlock()
	o.wg.Wait()
}
