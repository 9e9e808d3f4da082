package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devsapp/ripeness-uploader/pkg/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

var ConfigGlobal = DefaultConfig()

type Config struct {
	// server
	ListenPort string `yaml:"listenPort"`
	Mode       string `yaml:"mode"` // debug|dev|product

	// endpoint
	EndpointMode       string `yaml:"endpointMode"` // fixed|model
	PredictUrl         string `yaml:"predictUrl"`
	PredictUrlTemplate string `yaml:"predictUrlTemplate"`
	DefaultModel       string `yaml:"defaultModel"`
	HttpTimeout        int    `yaml:"httpTimeout"` // second, 0 means no timeout

	// upload && preview
	MaxUploadSize    int64 `yaml:"maxUploadSize"` // bytes
	PreviewMaxSize   int   `yaml:"previewMaxSize"`
	PreviewMaxPixels int64 `yaml:"previewMaxPixels"` // images over this pixel count get no thumbnail

	// session
	SessionExpire int64 `yaml:"sessionExpire"` // second

	// history db
	DbType          string `yaml:"dbType"` // sqlite|tableStore|none
	DbSqlite        string `yaml:"dbSqlite"`
	OtsEndpoint     string `yaml:"otsEndpoint"`
	OtsInstanceName string `yaml:"otsInstanceName"`
	OtsTimeToAlive  int    `yaml:"otsTimeToAlive"` // data expired time/second
	OtsMaxVersion   int    `yaml:"otsMaxVersion"`  // data column max version nums

	// oss archive
	OssEnable   bool   `yaml:"ossEnable"`
	OssEndpoint string `yaml:"ossEndpoint"`
	Bucket      string `yaml:"bucket"`
	OssPrefix   string `yaml:"ossPrefix"`

	// account, env only
	AccessKeyId     string `yaml:"-"`
	AccessKeySecret string `yaml:"-"`
	AccessKeyToken  string `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenPort:         "8000",
		Mode:               "dev",
		EndpointMode:       FixedEndpoint,
		PredictUrl:         "https://tomatoes-classification-be.onrender.com/predict",
		PredictUrlTemplate: "http://localhost:5000/predict/" + ModelHolder,
		DefaultModel:       ModelOptimized,
		HttpTimeout:        0,
		MaxUploadSize:      10 << 20,
		PreviewMaxSize:     320,
		PreviewMaxPixels:   25_000_000,
		SessionExpire:      30 * 60,
		DbType:             DB_SQLITE,
		DbSqlite:           "./sqlite3",
		OtsEndpoint:        "https://ripeness.cn-beijing.ots.aliyuncs.com",
		OtsInstanceName:    "ripeness",
		OtsTimeToAlive:     -1,
		OtsMaxVersion:      1,
		OssEnable:          false,
		OssEndpoint:        "oss-cn-beijing.aliyuncs.com",
		Bucket:             "ripeness-uploads",
		OssPrefix:          "uploads",
		AccessKeyId:        os.Getenv(ACCESS_KEY_ID),
		AccessKeySecret:    os.Getenv(ACCESS_KEY_SECRET),
		AccessKeyToken:     os.Getenv(ACCESS_KEY_TOKEN),
	}
}

// InitConfig load .env, then yaml file fn (optional), then env override
func InitConfig(fn string) error {
	// .env is optional
	_ = godotenv.Load()
	cfg := DefaultConfig()
	if fn != "" && utils.FileExists(fn) {
		body, err := os.ReadFile(fn)
		if err != nil {
			return fmt.Errorf("read config %s err=%s", fn, err.Error())
		}
		if err := yaml.Unmarshal(body, cfg); err != nil {
			return fmt.Errorf("parse config %s err=%s", fn, err.Error())
		}
	}
	cfg.AccessKeyId = os.Getenv(ACCESS_KEY_ID)
	cfg.AccessKeySecret = os.Getenv(ACCESS_KEY_SECRET)
	cfg.AccessKeyToken = os.Getenv(ACCESS_KEY_TOKEN)
	if url := os.Getenv(PREDICT_URL); url != "" {
		cfg.PredictUrl = url
	}
	if port := os.Getenv(PORT); port != "" {
		cfg.ListenPort = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ConfigGlobal = cfg
	return nil
}

// Validate check config
func (c *Config) Validate() error {
	switch c.EndpointMode {
	case FixedEndpoint:
		if c.PredictUrl == "" {
			return errors.New("endpointMode fixed need predictUrl")
		}
	case ModelEndpoint:
		if !strings.Contains(c.PredictUrlTemplate, ModelHolder) {
			return fmt.Errorf("predictUrlTemplate must contain %s", ModelHolder)
		}
	default:
		return fmt.Errorf("endpointMode %s not support", c.EndpointMode)
	}
	if !IsModel(c.DefaultModel) {
		return fmt.Errorf("defaultModel %s not support", c.DefaultModel)
	}
	switch c.DbType {
	case DB_SQLITE, DB_TABLESTORE, DB_NONE:
	default:
		return fmt.Errorf("dbType %s not support", c.DbType)
	}
	if (c.DbType == DB_TABLESTORE || c.OssEnable) && (c.AccessKeyId == "" || c.AccessKeySecret == "") {
		return errors.New("not set ALIBABA_CLOUD_ACCESS_KEY_ID || ALIBABA_CLOUD_ACCESS_KEY_SECRET, please check")
	}
	return nil
}

// ModelSelectorEnabled model radio only make sense when endpoint depend on model
func (c *Config) ModelSelectorEnabled() bool {
	return c.EndpointMode == ModelEndpoint
}

func (c *Config) HistoryEnabled() bool {
	return c.DbType != DB_NONE
}

func (c *Config) GetHttpTimeout() time.Duration {
	if c.HttpTimeout <= 0 {
		return HTTPTIMEOUT
	}
	return time.Duration(c.HttpTimeout) * time.Second
}

func (c *Config) GetSessionExpire() time.Duration {
	return time.Duration(c.SessionExpire) * time.Second
}

// IsModel check model in closed set
func IsModel(name string) bool {
	for _, m := range Models {
		if m == name {
			return true
		}
	}
	return false
}
