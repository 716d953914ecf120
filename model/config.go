package model

import "time"

const AppName = "dashboard-backend"

// APIPrefix is where every REST and websocket route is mounted.
const APIPrefix = "/dashboard/api"

type ServerConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	TLSCert    string `env:"TLS_CERT"`
	TLSKey     string `env:"TLS_KEY"`

	Kubeconfig string `env:"KUBECONFIG"`
	LocalRun   bool   `env:"LOCAL_RUN" envDefault:"false"`

	CheNamespace string `env:"CHE_NAMESPACE,required"`
	StaticDir    string `env:"STATIC_DIR"`
	EditorsDir   string `env:"EDITORS_DIR"`

	CatalogRefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" envDefault:"1m"`
	LogsRetryDelay         time.Duration `env:"LOGS_RETRY_DELAY" envDefault:"2s"`
	LogsRetryAttempts      int           `env:"LOGS_RETRY_ATTEMPTS" envDefault:"30"`
	WebsocketPingPeriod    time.Duration `env:"WEBSOCKET_PING_PERIOD" envDefault:"30s"`

	NamespaceTemplate      string `env:"NAMESPACE_TEMPLATE" envDefault:"<username>-che"`
	NamespaceAutoProvision bool   `env:"NAMESPACE_AUTO_PROVISION" envDefault:"true"`

	Workspaces WorkspacesConfig
	Cluster    ClusterConfig
}

// WorkspacesConfig is projected into /server-config and /cluster-config.
type WorkspacesConfig struct {
	DefaultEditor          string        `env:"DEFAULT_EDITOR"`
	DefaultComponents      string        `env:"DEFAULT_COMPONENTS" envDefault:"[]"`
	PluginRegistryURL      string        `env:"PLUGIN_REGISTRY_URL"`
	PluginRegistryInternal string        `env:"PLUGIN_REGISTRY_INTERNAL_URL"`
	DevfileRegistryURL     string        `env:"DEVFILE_REGISTRY_URL"`
	InactivityTimeout      time.Duration `env:"WORKSPACE_INACTIVITY_TIMEOUT" envDefault:"30m"`
	RunTimeout             time.Duration `env:"WORKSPACE_RUN_TIMEOUT" envDefault:"0s"`
	StartTimeout           time.Duration `env:"WORKSPACE_START_TIMEOUT" envDefault:"5m"`
	PVCStrategy            string        `env:"PVC_STRATEGY" envDefault:"per-user"`
	RunningLimit           int           `env:"RUNNING_WORKSPACES_LIMIT" envDefault:"1"`
	AllLimit               int           `env:"ALL_WORKSPACES_LIMIT" envDefault:"-1"`
	DashboardWarning       string        `env:"DASHBOARD_WARNING"`
	AllowedSourceURLs      []string      `env:"ALLOWED_SOURCE_URLS" envSeparator:","`
}

type ClusterConfig struct {
	ConsoleURL   string `env:"CLUSTER_CONSOLE_URL"`
	ConsoleTitle string `env:"CLUSTER_CONSOLE_TITLE" envDefault:"OpenShift console"`
	ConsoleIcon  string `env:"CLUSTER_CONSOLE_ICON"`
}

// ClientConfig backs the CLI sub-commands that talk to a running backend.
type ClientConfig struct {
	URL            string
	Token          string
	ReconnectDelay time.Duration
}
