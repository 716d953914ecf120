package k8s

import (
	"context"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
	"github.com/rs/zerolog/log"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DevWorkspaceList is the list projection returned to the dashboard.
type DevWorkspaceList struct {
	Items           []dw.DevWorkspace `json:"items"`
	ResourceVersion string            `json:"resourceVersion"`
}

func (c *Client) ListDevWorkspaces(ctx context.Context, ns string) (*DevWorkspaceList, error) {
	if err := validateNamespace(LabelDevWorkspace, ns); err != nil {
		return nil, err
	}
	list := &dw.DevWorkspaceList{}
	if err := observe("list_devworkspaces", c.Ctrl.List(ctx, list, client.InNamespace(ns))); err != nil {
		return nil, createError(err, LabelDevWorkspace, "unable to list devworkspaces")
	}
	items := list.Items
	if items == nil {
		items = []dw.DevWorkspace{}
	}
	for i := range items {
		SetKind(&items[i])
	}
	return &DevWorkspaceList{Items: items, ResourceVersion: list.ResourceVersion}, nil
}

func (c *Client) GetDevWorkspace(ctx context.Context, ns, name string) (*dw.DevWorkspace, error) {
	if err := validateNamespace(LabelDevWorkspace, ns); err != nil {
		return nil, err
	}
	obj := &dw.DevWorkspace{}
	if err := observe("get_devworkspace", c.Ctrl.Get(ctx, objectKey(ns, name), obj)); err != nil {
		return nil, createError(err, LabelDevWorkspace, "unable to get "+describe("devworkspace", ns, name))
	}
	SetKind(obj)
	return obj, nil
}

// CreateDevWorkspace stores workspace in ns. The namespace of the object is
// overridden; a name or generateName is required.
func (c *Client) CreateDevWorkspace(ctx context.Context, ns string, workspace *dw.DevWorkspace) (*dw.DevWorkspace, error) {
	if err := validateNamespace(LabelDevWorkspace, ns); err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, invalid(LabelDevWorkspace, "devworkspace is required")
	}
	if workspace.Name == "" && workspace.GenerateName == "" {
		return nil, invalid(LabelDevWorkspace, "metadata.name or metadata.generateName is required")
	}
	workspace.Namespace = ns
	workspace.ResourceVersion = ""
	if err := observe("create_devworkspace", c.Ctrl.Create(ctx, workspace)); err != nil {
		return nil, createError(err, LabelDevWorkspace, "unable to create devworkspace")
	}
	log.Info().Str("namespace", ns).Str("name", workspace.Name).Msg("devworkspace created")
	SetKind(workspace)
	return workspace, nil
}

func (c *Client) PatchDevWorkspace(ctx context.Context, ns, name string, ops []PatchOp) (*dw.DevWorkspace, error) {
	if err := validateNamespace(LabelDevWorkspace, ns); err != nil {
		return nil, err
	}
	patch, err := jsonPatch(LabelDevWorkspace, ops)
	if err != nil {
		return nil, err
	}
	obj := &dw.DevWorkspace{}
	obj.Namespace = ns
	obj.Name = name
	if err := observe("patch_devworkspace", c.Ctrl.Patch(ctx, obj, patch)); err != nil {
		return nil, createError(err, LabelDevWorkspace, "unable to update "+describe("devworkspace", ns, name))
	}
	SetKind(obj)
	return obj, nil
}

func (c *Client) DeleteDevWorkspace(ctx context.Context, ns, name string) error {
	if err := validateNamespace(LabelDevWorkspace, ns); err != nil {
		return err
	}
	obj := &dw.DevWorkspace{}
	obj.Namespace = ns
	obj.Name = name
	if err := observe("delete_devworkspace", c.Ctrl.Delete(ctx, obj)); err != nil {
		return createError(err, LabelDevWorkspace, "unable to delete "+describe("devworkspace", ns, name))
	}
	log.Info().Str("namespace", ns).Str("name", name).Msg("devworkspace deleted")
	return nil
}

func (c *Client) WatchDevWorkspaces(ctx context.Context, ns, resourceVersion string) (watch.Interface, error) {
	if err := validateNamespace(LabelDevWorkspace, ns); err != nil {
		return nil, err
	}
	w, err := c.Ctrl.Watch(ctx, &dw.DevWorkspaceList{}, watchOptions(ns, resourceVersion)...)
	if observe("watch_devworkspaces", err) != nil {
		return nil, createError(err, LabelDevWorkspace, "unable to watch devworkspaces")
	}
	return w, nil
}

func watchOptions(ns, resourceVersion string) []client.ListOption {
	opts := []client.ListOption{client.InNamespace(ns)}
	if resourceVersion != "" {
		opts = append(opts, &client.ListOptions{Raw: &metav1.ListOptions{ResourceVersion: resourceVersion}})
	}
	return opts
}
