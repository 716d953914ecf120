package v1

import (
	"encoding/json"

	"github.com/che-incubator/dashboard-backend/k8s"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
)

// Type aliases - canonical definitions live in the k8s package, re-exported
// here for the client.
type (
	PatchOp             = k8s.PatchOp
	DevWorkspaceList    = k8s.DevWorkspaceList
	SshKey              = k8s.SshKey
	NewSshKey           = k8s.NewSshKey
	PersonalAccessToken = k8s.PersonalAccessToken
	GitConfig           = k8s.GitConfig
	Preferences         = k8s.Preferences
	DockerConfig        = k8s.DockerConfig
	KubeNamespace       = k8s.KubeNamespace
	UserProfile         = k8s.UserProfile
)

// request models

type DevWorkspaceCreateRequest struct {
	DevWorkspace *dw.DevWorkspace `json:"devworkspace"`
}

type TemplateCreateRequest struct {
	Template *dw.DevWorkspaceTemplate `json:"template"`
}

type GenerateSshKeyRequest struct {
	Name string `json:"name"`
}

type TrustedSourceRequest struct {
	Source string `json:"source"`
}

// response models

type ServerConfigResponse struct {
	Defaults                  DefaultsResponse         `json:"defaults"`
	Timeouts                  TimeoutsResponse         `json:"timeouts"`
	DefaultNamespace          DefaultNamespaceResponse `json:"defaultNamespace"`
	PluginRegistryURL         string                   `json:"pluginRegistryURL"`
	PluginRegistryInternalURL string                   `json:"pluginRegistryInternalURL"`
	DevfileRegistryURL        string                   `json:"devfileRegistryURL"`
	AllowedSourceURLs         []string                 `json:"allowedSourceUrls"`
}

type DefaultsResponse struct {
	Editor      string          `json:"editor,omitempty"`
	Components  json.RawMessage `json:"components"`
	PVCStrategy string          `json:"pvcStrategy"`
}

// TimeoutsResponse values are seconds; -1 disables the timeout.
type TimeoutsResponse struct {
	InactivityTimeout int `json:"inactivityTimeout"`
	RunTimeout        int `json:"runTimeout"`
	StartTimeout      int `json:"startTimeout"`
}

type DefaultNamespaceResponse struct {
	AutoProvision bool `json:"autoProvision"`
}

type ClusterInfoResponse struct {
	Applications []ApplicationInfo `json:"applications"`
}

type ApplicationInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
	Group string `json:"group,omitempty"`
}

type ClusterConfigResponse struct {
	DashboardWarning       string `json:"dashboardWarning,omitempty"`
	RunningWorkspacesLimit int    `json:"runningWorkspacesLimit"`
	AllWorkspacesLimit     int    `json:"allWorkspacesLimit"`
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Commit        string            `json:"commit"`
	UptimeSeconds int               `json:"uptime_seconds"`
	Features      map[string]string `json:"features"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
