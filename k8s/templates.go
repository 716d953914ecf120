package k8s

import (
	"context"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func (c *Client) ListTemplates(ctx context.Context, ns string) ([]dw.DevWorkspaceTemplate, error) {
	if err := validateNamespace(LabelTemplate, ns); err != nil {
		return nil, err
	}
	list := &dw.DevWorkspaceTemplateList{}
	if err := observe("list_templates", c.Ctrl.List(ctx, list, client.InNamespace(ns))); err != nil {
		return nil, createError(err, LabelTemplate, "unable to list devworkspace templates")
	}
	if list.Items == nil {
		return []dw.DevWorkspaceTemplate{}, nil
	}
	for i := range list.Items {
		SetKind(&list.Items[i])
	}
	return list.Items, nil
}

func (c *Client) CreateTemplate(ctx context.Context, ns string, tmpl *dw.DevWorkspaceTemplate) (*dw.DevWorkspaceTemplate, error) {
	if err := validateNamespace(LabelTemplate, ns); err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, invalid(LabelTemplate, "devworkspace template is required")
	}
	if tmpl.Name == "" && tmpl.GenerateName == "" {
		return nil, invalid(LabelTemplate, "metadata.name or metadata.generateName is required")
	}
	tmpl.Namespace = ns
	tmpl.ResourceVersion = ""
	if err := observe("create_template", c.Ctrl.Create(ctx, tmpl)); err != nil {
		return nil, createError(err, LabelTemplate, "unable to create devworkspace template")
	}
	SetKind(tmpl)
	return tmpl, nil
}

func (c *Client) PatchTemplate(ctx context.Context, ns, name string, ops []PatchOp) (*dw.DevWorkspaceTemplate, error) {
	if err := validateNamespace(LabelTemplate, ns); err != nil {
		return nil, err
	}
	patch, err := jsonPatch(LabelTemplate, ops)
	if err != nil {
		return nil, err
	}
	obj := &dw.DevWorkspaceTemplate{}
	obj.Namespace = ns
	obj.Name = name
	if err := observe("patch_template", c.Ctrl.Patch(ctx, obj, patch)); err != nil {
		return nil, createError(err, LabelTemplate, "unable to update "+describe("devworkspace template", ns, name))
	}
	SetKind(obj)
	return obj, nil
}
