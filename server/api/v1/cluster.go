package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/che-incubator/dashboard-backend/k8s"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"
)

// --- Namespaces ---

func (h *Handler) ListNamespaces(c *echo.Context) error {
	namespaces, err := k8s.ListNamespaces(c.Request().Context(), kubeClient(c), h.Clients.ServiceAccount(), h.Config.NamespaceTemplate)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, namespaces)
}

func (h *Handler) ProvisionNamespace(c *echo.Context) error {
	ctx := c.Request().Context()
	if !h.Config.NamespaceAutoProvision {
		namespaces, err := k8s.ListNamespaces(ctx, kubeClient(c), h.Clients.ServiceAccount(), h.Config.NamespaceTemplate)
		if err != nil {
			return KubeError(c, err)
		}
		if len(namespaces) == 0 {
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error: "namespace auto-provisioning is disabled, ask an administrator to create your namespace",
				Code:  k8s.LabelNamespace,
			})
		}
		return c.JSON(http.StatusOK, namespaces[0])
	}

	ns, err := k8s.ProvisionNamespace(ctx, kubeClient(c), h.Clients.ServiceAccount(), h.Config.NamespaceTemplate)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, ns)
}

func (h *Handler) GetUserProfile(c *echo.Context) error {
	profile, err := kubeClient(c).GetUserProfile(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// --- Catalog ---

func (h *Handler) ListEditors(c *echo.Context) error {
	editors := h.Catalog.Editors()
	resp := make([]map[string]any, len(editors))
	for i := range editors {
		resp[i] = editors[i].Devfile
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetEditorDevfile(c *echo.Context) error {
	id := c.QueryParam("che-editor")
	if id == "" {
		return badRequest(c, "che-editor query parameter is required")
	}
	editor, ok := h.Catalog.Editor(id)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "editor " + id + " not found", Code: CodeNotFound})
	}
	return c.Blob(http.StatusOK, "application/x-yaml", editor.YAML)
}

func (h *Handler) ListSamples(c *echo.Context) error {
	return c.JSON(http.StatusOK, h.Catalog.Samples())
}

// --- Configuration projections ---

func (h *Handler) ServerConfig(c *echo.Context) error {
	ws := h.Config.Workspaces

	components := json.RawMessage(ws.DefaultComponents)
	if !json.Valid(components) {
		log.Warn().Str("value", ws.DefaultComponents).Msg("DEFAULT_COMPONENTS is not valid JSON, ignoring")
		components = json.RawMessage("[]")
	}
	allowed := ws.AllowedSourceURLs
	if allowed == nil {
		allowed = []string{}
	}

	return c.JSON(http.StatusOK, ServerConfigResponse{
		Defaults: DefaultsResponse{
			Editor:      ws.DefaultEditor,
			Components:  components,
			PVCStrategy: ws.PVCStrategy,
		},
		Timeouts: TimeoutsResponse{
			InactivityTimeout: seconds(ws.InactivityTimeout),
			RunTimeout:        seconds(ws.RunTimeout),
			StartTimeout:      seconds(ws.StartTimeout),
		},
		DefaultNamespace:          DefaultNamespaceResponse{AutoProvision: h.Config.NamespaceAutoProvision},
		PluginRegistryURL:         ws.PluginRegistryURL,
		PluginRegistryInternalURL: ws.PluginRegistryInternal,
		DevfileRegistryURL:        ws.DevfileRegistryURL,
		AllowedSourceURLs:         allowed,
	})
}

func (h *Handler) ClusterInfo(c *echo.Context) error {
	apps := []ApplicationInfo{}
	if cl := h.Config.Cluster; cl.ConsoleURL != "" {
		apps = append(apps, ApplicationInfo{
			ID:    "cluster-console",
			Title: cl.ConsoleTitle,
			URL:   cl.ConsoleURL,
			Icon:  cl.ConsoleIcon,
		})
	}
	return c.JSON(http.StatusOK, ClusterInfoResponse{Applications: apps})
}

func (h *Handler) ClusterConfig(c *echo.Context) error {
	ws := h.Config.Workspaces
	return c.JSON(http.StatusOK, ClusterConfigResponse{
		DashboardWarning:       ws.DashboardWarning,
		RunningWorkspacesLimit: ws.RunningLimit,
		AllWorkspacesLimit:     ws.AllLimit,
	})
}

// seconds maps a zero duration to -1, meaning "no timeout".
func seconds(d time.Duration) int {
	if d <= 0 {
		return -1
	}
	return int(d.Seconds())
}
