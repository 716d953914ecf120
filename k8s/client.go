package k8s

import (
	"errors"
	"fmt"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

// Scheme knows the core types and DevWorkspace v1alpha2.
var Scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(Scheme))
	utilruntime.Must(dw.AddToScheme(Scheme))
}

// ErrNoToken is returned when a request arrives without credentials and the
// backend is not running in local mode.
var ErrNoToken = errors.New("bearer token required")

// Client bundles the typed controller-runtime client used for CRUD/watch and
// the client-go clientset used for subresources such as pod logs.
type Client struct {
	Ctrl client.WithWatch
	Kube kubernetes.Interface
}

// NewClient builds both halves from one rest.Config. A nil mapper makes the
// controller client discover resources on its own.
func NewClient(cfg *rest.Config, mapper meta.RESTMapper) (*Client, error) {
	ctrl, err := client.NewWithWatch(cfg, client.Options{Scheme: Scheme, Mapper: mapper})
	if err != nil {
		return nil, fmt.Errorf("create controller client: %w", err)
	}
	kube, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return &Client{Ctrl: ctrl, Kube: kube}, nil
}

// ClientProvider hands out clients bound to a caller's identity.
type ClientProvider interface {
	ForToken(token string) (*Client, error)
	ServiceAccount() *Client
}

// Provider derives per-user clients from the backend's own rest.Config by
// swapping in the caller's bearer token.
type Provider struct {
	base     *rest.Config
	mapper   meta.RESTMapper
	sa       *Client
	localRun bool
}

// LoadConfig reads a kubeconfig file, or the in-cluster service account when
// path is empty.
func LoadConfig(path string) (*rest.Config, error) {
	if path == "" {
		cfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("in-cluster config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("kubeconfig %s: %w", path, err)
	}
	return cfg, nil
}

func NewProvider(base *rest.Config, localRun bool) (*Provider, error) {
	httpClient, err := rest.HTTPClientFor(base)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	// discovery is shared by every per-user client
	mapper, err := apiutil.NewDynamicRESTMapper(base, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create rest mapper: %w", err)
	}
	sa, err := NewClient(base, mapper)
	if err != nil {
		return nil, err
	}
	return &Provider{base: base, mapper: mapper, sa: sa, localRun: localRun}, nil
}

func (p *Provider) ServiceAccount() *Client { return p.sa }

func (p *Provider) ForToken(token string) (*Client, error) {
	if token == "" {
		if p.localRun {
			return p.sa, nil
		}
		return nil, ErrNoToken
	}
	return NewClient(userConfig(p.base, token), p.mapper)
}

// userConfig keeps the server address and CA of base but authenticates with
// token only.
func userConfig(base *rest.Config, token string) *rest.Config {
	cfg := rest.AnonymousClientConfig(base)
	cfg.BearerToken = token
	return cfg
}

// SetKind fills apiVersion and kind, which the typed client clears on the
// objects it decodes.
func SetKind(obj runtime.Object) {
	if gvk, err := apiutil.GVKForObject(obj, Scheme); err == nil {
		obj.GetObjectKind().SetGroupVersionKind(gvk)
	}
}
