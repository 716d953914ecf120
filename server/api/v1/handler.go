package v1

import (
	"net/http"

	"github.com/che-incubator/dashboard-backend/catalog"
	"github.com/che-incubator/dashboard-backend/k8s"
	"github.com/che-incubator/dashboard-backend/model"
	"github.com/che-incubator/dashboard-backend/subscriptions"

	"github.com/labstack/echo/v5"
)

type Handler struct {
	Clients k8s.ClientProvider
	Catalog *catalog.Catalog
	Config  *model.ServerConfig
	Socket  subscriptions.Options
}

// --- DevWorkspaces ---

func (h *Handler) ListDevWorkspaces(c *echo.Context) error {
	list, err := kubeClient(c).ListDevWorkspaces(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetDevWorkspace(c *echo.Context) error {
	ws, err := kubeClient(c).GetDevWorkspace(c.Request().Context(), c.Param("namespace"), c.Param("workspaceName"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *Handler) CreateDevWorkspace(c *echo.Context) error {
	var req DevWorkspaceCreateRequest
	if err := c.Bind(&req); err != nil || req.DevWorkspace == nil {
		return badRequest(c, "devworkspace is required")
	}

	ws, err := kubeClient(c).CreateDevWorkspace(c.Request().Context(), c.Param("namespace"), req.DevWorkspace)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusCreated, ws)
}

func (h *Handler) PatchDevWorkspace(c *echo.Context) error {
	var ops []PatchOp
	if err := c.Bind(&ops); err != nil {
		return badRequest(c, "body must be a JSON patch")
	}

	ws, err := kubeClient(c).PatchDevWorkspace(c.Request().Context(), c.Param("namespace"), c.Param("workspaceName"), ops)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *Handler) DeleteDevWorkspace(c *echo.Context) error {
	if err := kubeClient(c).DeleteDevWorkspace(c.Request().Context(), c.Param("namespace"), c.Param("workspaceName")); err != nil {
		return KubeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- DevWorkspaceTemplates ---

func (h *Handler) ListTemplates(c *echo.Context) error {
	templates, err := kubeClient(c).ListTemplates(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, templates)
}

func (h *Handler) CreateTemplate(c *echo.Context) error {
	var req TemplateCreateRequest
	if err := c.Bind(&req); err != nil || req.Template == nil {
		return badRequest(c, "template is required")
	}

	tmpl, err := kubeClient(c).CreateTemplate(c.Request().Context(), c.Param("namespace"), req.Template)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusCreated, tmpl)
}

func (h *Handler) PatchTemplate(c *echo.Context) error {
	var ops []PatchOp
	if err := c.Bind(&ops); err != nil {
		return badRequest(c, "body must be a JSON patch")
	}

	tmpl, err := kubeClient(c).PatchTemplate(c.Request().Context(), c.Param("namespace"), c.Param("templateName"), ops)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, tmpl)
}

// --- Pods and events ---

func (h *Handler) ListPods(c *echo.Context) error {
	pods, err := kubeClient(c).ListPods(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, pods)
}

func (h *Handler) ListEvents(c *echo.Context) error {
	events, err := kubeClient(c).ListEvents(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}
