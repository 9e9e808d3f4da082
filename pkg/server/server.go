package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/devsapp/ripeness-uploader/pkg/client"
	"github.com/devsapp/ripeness-uploader/pkg/config"
	"github.com/devsapp/ripeness-uploader/pkg/datastore"
	"github.com/devsapp/ripeness-uploader/pkg/handler"
	"github.com/devsapp/ripeness-uploader/pkg/log"
	"github.com/devsapp/ripeness-uploader/pkg/module"
	"github.com/devsapp/ripeness-uploader/pkg/preview"
	"github.com/devsapp/ripeness-uploader/pkg/upload"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UploadServer struct {
	srv      *http.Server
	sessions *handler.SessionManager
	history  *module.HistoryManager
	archive  *module.OssManager
}

func NewUploadServer(port string, mode string) (*UploadServer, error) {
	cfg := config.ConfigGlobal
	observers := make([]upload.Observer, 0, 3)

	// init history table
	var history *module.HistoryManager
	if cfg.HistoryEnabled() {
		tableFactory := datastore.DatastoreFactory{}
		store, err := tableFactory.NewTable(datastore.DatastoreType(cfg.DbType), datastore.KAttemptTableName)
		if err != nil {
			logrus.Errorf("history table init error %v", err)
			return nil, err
		}
		history = module.NewHistoryManager(store)
		observers = append(observers, history)
	}
	// init oss archive
	var archive *module.OssManager
	if cfg.OssEnable {
		var err error
		if archive, err = module.NewOssManager(); err != nil {
			logrus.Errorf("oss init error %v", err)
			if history != nil {
				history.Close()
			}
			return nil, err
		}
		observers = append(observers, archive)
	}
	metrics := handler.NewMetrics()
	observers = append(observers, metrics)

	previews := preview.NewStore(cfg.PreviewMaxSize, preview.WithMaxPixels(cfg.PreviewMaxPixels))
	predictor := client.InitManagerClient(cfg.GetHttpTimeout())
	resolver := client.NewResolver(cfg)
	sessions := handler.NewSessionManager(func(session string) *upload.Controller {
		opts := []upload.Option{upload.WithModel(cfg.DefaultModel), upload.WithSession(session)}
		for _, o := range observers {
			opts = append(opts, upload.WithObserver(o))
		}
		return upload.NewController(predictor, resolver, previews, opts...)
	}, cfg.GetSessionExpire(), metrics)
	sessions.Start(config.SESSION_JANITOR)

	// init router
	if mode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(cors.New(corsConfig()))
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(log.RequestId(), metrics.Stat())
	router.SetHTMLTemplate(handler.Templates())
	handler.RegisterHandlers(router, handler.NewUploadHandler(sessions, previews, history, metrics))

	return &UploadServer{
		srv: &http.Server{
			Addr:    net.JoinHostPort("0.0.0.0", port),
			Handler: router,
		},
		sessions: sessions,
		history:  history,
		archive:  archive,
	}, nil
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = append(cfg.AllowHeaders, log.RequestIdHeader)
	cfg.ExposeHeaders = []string{log.RequestIdHeader}
	return cfg
}

// Handler http handler of the server
func (p *UploadServer) Handler() http.Handler {
	return p.srv.Handler
}

// Start upload server
func (p *UploadServer) Start() error {
	if err := p.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.Fatalf("listen: %s\n", err)
		return err
	}
	return nil
}

// Close shutdown upload server, timeout=shutdownTimeout
func (p *UploadServer) Close(shutdownTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := p.srv.Shutdown(ctx)
	if err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}
	p.sessions.Close()
	if p.archive != nil {
		p.archive.Close()
	}
	if p.history != nil {
		p.history.Close()
	}
	return err
}
