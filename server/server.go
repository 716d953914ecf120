package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/che-incubator/dashboard-backend/catalog"
	"github.com/che-incubator/dashboard-backend/k8s"
	"github.com/che-incubator/dashboard-backend/model"
	v1 "github.com/che-incubator/dashboard-backend/server/api/v1"
	"github.com/che-incubator/dashboard-backend/subscriptions"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
)

type Server struct {
	cfg     *model.ServerConfig
	version string
	commit  string
	clients k8s.ClientProvider
	catalog *catalog.Catalog
	echo    *echo.Echo
}

func New(cfg *model.ServerConfig, clients k8s.ClientProvider, version, commit string) *Server {
	s := &Server{
		cfg:     cfg,
		version: version,
		commit:  commit,
		clients: clients,
		catalog: catalog.New(clients.ServiceAccount().Ctrl, cfg.CheNamespace, cfg.EditorsDir, cfg.CatalogRefreshInterval),
	}
	s.echo = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) routes() *echo.Echo {
	e := echo.New()

	e.Use(v1.MetricsMiddleware())

	// build feature map
	features := map[string]string{
		"namespace_template": s.cfg.NamespaceTemplate,
	}
	if s.cfg.NamespaceAutoProvision {
		features["namespace_auto_provision"] = "enabled"
	}
	if s.cfg.LocalRun {
		features["local_run"] = "enabled"
	}
	if s.cfg.StaticDir != "" {
		features["static"] = "enabled"
	}

	// unauthenticated endpoints
	e.GET("/healthz", v1.Healthz(s.version, s.commit, features, s.catalog.Ready))
	e.GET(model.APIPrefix+"/metrics", v1.MetricsHandler())

	h := &v1.Handler{
		Clients: s.clients,
		Catalog: s.catalog,
		Config:  s.cfg,
		Socket: subscriptions.Options{
			PingPeriod:   s.cfg.WebsocketPingPeriod,
			RestartDelay: time.Second,
			Logs: k8s.LogsOptions{
				RetryDelay:    s.cfg.LogsRetryDelay,
				RetryAttempts: s.cfg.LogsRetryAttempts,
			},
		},
	}

	api := e.Group(model.APIPrefix, v1.AuthMiddleware(s.clients))

	ns := api.Group("/namespace/:namespace")

	ns.GET("/devworkspaces", h.ListDevWorkspaces)
	ns.POST("/devworkspaces", h.CreateDevWorkspace)
	ns.GET("/devworkspaces/:workspaceName", h.GetDevWorkspace)
	ns.PATCH("/devworkspaces/:workspaceName", h.PatchDevWorkspace)
	ns.DELETE("/devworkspaces/:workspaceName", h.DeleteDevWorkspace)

	ns.GET("/devworkspacetemplates", h.ListTemplates)
	ns.POST("/devworkspacetemplates", h.CreateTemplate)
	ns.PATCH("/devworkspacetemplates/:templateName", h.PatchTemplate)

	ns.GET("/ssh-key", h.ListSshKeys)
	ns.POST("/ssh-key", h.AddSshKey)
	ns.POST("/ssh-key/generate", h.GenerateSshKey)
	ns.DELETE("/ssh-key/:name", h.DeleteSshKey)

	ns.GET("/personal-access-token", h.ListTokens)
	ns.POST("/personal-access-token", h.CreateToken)
	ns.PATCH("/personal-access-token", h.ReplaceToken)
	ns.DELETE("/personal-access-token/:tokenName", h.DeleteToken)

	ns.GET("/gitconfig", h.GetGitConfig)
	ns.PATCH("/gitconfig", h.PatchGitConfig)

	ns.GET("/devworkspace-preferences", h.GetPreferences)
	ns.DELETE("/devworkspace-preferences/skip-authorisation/:provider", h.RemoveSkipAuthorisation)
	ns.POST("/devworkspace-preferences/trusted-source", h.AddTrustedSource)
	ns.DELETE("/devworkspace-preferences/trusted-source", h.RemoveTrustedSources)

	ns.GET("/dockerconfig", h.GetDockerConfig)
	ns.PUT("/dockerconfig", h.PutDockerConfig)

	ns.GET("/pods", h.ListPods)
	ns.GET("/events", h.ListEvents)

	api.GET("/kubernetes/namespace", h.ListNamespaces)
	api.POST("/kubernetes/namespace/provision", h.ProvisionNamespace)
	api.GET("/userprofile/:namespace", h.GetUserProfile)

	api.GET("/editors", h.ListEditors)
	api.GET("/editors/devfile", h.GetEditorDevfile)
	api.GET("/getting-started-sample", h.ListSamples)

	api.GET("/server-config", h.ServerConfig)
	api.GET("/cluster-info", h.ClusterInfo)
	api.GET("/cluster-config", h.ClusterConfig)

	api.GET("/websocket", h.WebSocket)

	if s.cfg.StaticDir != "" {
		v1.RegisterStatic(e, "/dashboard", s.cfg.StaticDir)
	}

	return e
}

// Run starts the catalog refresher and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.catalog.Run(ctx)

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			srv.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
			log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting dashboard backend with TLS")
			err = srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			log.Warn().Str("addr", s.cfg.ListenAddr).Msg("starting dashboard backend without TLS - set TLS_CERT and TLS_KEY unless a proxy terminates TLS")
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down dashboard backend")
		return srv.Shutdown(shutdownCtx)
	}
}
