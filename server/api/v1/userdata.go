package v1

import (
	"net/http"

	"github.com/labstack/echo/v5"
)

// --- SSH keys ---

func (h *Handler) ListSshKeys(c *echo.Context) error {
	keys, err := kubeClient(c).ListSshKeys(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, keys)
}

func (h *Handler) AddSshKey(c *echo.Context) error {
	var req NewSshKey
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	key, err := kubeClient(c).AddSshKey(c.Request().Context(), c.Param("namespace"), req)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusCreated, key)
}

func (h *Handler) GenerateSshKey(c *echo.Context) error {
	var req GenerateSshKeyRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return badRequest(c, "name is required")
	}

	key, err := kubeClient(c).GenerateSshKey(c.Request().Context(), c.Param("namespace"), req.Name)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusCreated, key)
}

func (h *Handler) DeleteSshKey(c *echo.Context) error {
	if err := kubeClient(c).DeleteSshKey(c.Request().Context(), c.Param("namespace"), c.Param("name")); err != nil {
		return KubeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Personal access tokens ---

func (h *Handler) ListTokens(c *echo.Context) error {
	tokens, err := kubeClient(c).ListTokens(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, tokens)
}

func (h *Handler) CreateToken(c *echo.Context) error {
	var req PersonalAccessToken
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	token, err := kubeClient(c).CreateToken(c.Request().Context(), c.Param("namespace"), req)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusCreated, token)
}

func (h *Handler) ReplaceToken(c *echo.Context) error {
	var req PersonalAccessToken
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	token, err := kubeClient(c).ReplaceToken(c.Request().Context(), c.Param("namespace"), req)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, token)
}

func (h *Handler) DeleteToken(c *echo.Context) error {
	if err := kubeClient(c).DeleteToken(c.Request().Context(), c.Param("namespace"), c.Param("tokenName")); err != nil {
		return KubeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Git config ---

func (h *Handler) GetGitConfig(c *echo.Context) error {
	cfg, err := kubeClient(c).ReadGitConfig(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) PatchGitConfig(c *echo.Context) error {
	var req GitConfig
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	cfg, err := kubeClient(c).PatchGitConfig(c.Request().Context(), c.Param("namespace"), req)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// --- DevWorkspace preferences ---

func (h *Handler) GetPreferences(c *echo.Context) error {
	prefs, err := kubeClient(c).GetPreferences(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

func (h *Handler) RemoveSkipAuthorisation(c *echo.Context) error {
	err := kubeClient(c).RemoveProviderFromSkipAuthorizationList(c.Request().Context(), c.Param("namespace"), c.Param("provider"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddTrustedSource(c *echo.Context) error {
	var req TrustedSourceRequest
	if err := c.Bind(&req); err != nil || req.Source == "" {
		return badRequest(c, "source is required")
	}

	if err := kubeClient(c).AddTrustedSource(c.Request().Context(), c.Param("namespace"), req.Source); err != nil {
		return KubeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RemoveTrustedSources(c *echo.Context) error {
	if err := kubeClient(c).RemoveTrustedSources(c.Request().Context(), c.Param("namespace")); err != nil {
		return KubeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Docker config ---

func (h *Handler) GetDockerConfig(c *echo.Context) error {
	cfg, err := kubeClient(c).GetDockerConfig(c.Request().Context(), c.Param("namespace"))
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) PutDockerConfig(c *echo.Context) error {
	var req DockerConfig
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	cfg, err := kubeClient(c).PutDockerConfig(c.Request().Context(), c.Param("namespace"), req)
	if err != nil {
		return KubeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}
