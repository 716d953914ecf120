package k8s

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

type PodList struct {
	Items           []corev1.Pod `json:"items"`
	ResourceVersion string       `json:"resourceVersion"`
}

type EventList struct {
	Items           []corev1.Event `json:"items"`
	ResourceVersion string         `json:"resourceVersion"`
}

func (c *Client) ListPods(ctx context.Context, ns string) (*PodList, error) {
	if err := validateNamespace(LabelPod, ns); err != nil {
		return nil, err
	}
	list := &corev1.PodList{}
	if err := observe("list_pods", c.Ctrl.List(ctx, list, client.InNamespace(ns))); err != nil {
		return nil, createError(err, LabelPod, "unable to list pods")
	}
	items := list.Items
	if items == nil {
		items = []corev1.Pod{}
	}
	for i := range items {
		SetKind(&items[i])
	}
	return &PodList{Items: items, ResourceVersion: list.ResourceVersion}, nil
}

func (c *Client) WatchPods(ctx context.Context, ns, resourceVersion string) (watch.Interface, error) {
	if err := validateNamespace(LabelPod, ns); err != nil {
		return nil, err
	}
	w, err := c.Ctrl.Watch(ctx, &corev1.PodList{}, watchOptions(ns, resourceVersion)...)
	if observe("watch_pods", err) != nil {
		return nil, createError(err, LabelPod, "unable to watch pods")
	}
	return w, nil
}

func (c *Client) ListEvents(ctx context.Context, ns string) (*EventList, error) {
	if err := validateNamespace(LabelEvent, ns); err != nil {
		return nil, err
	}
	list := &corev1.EventList{}
	if err := observe("list_events", c.Ctrl.List(ctx, list, client.InNamespace(ns))); err != nil {
		return nil, createError(err, LabelEvent, "unable to list events")
	}
	items := list.Items
	if items == nil {
		items = []corev1.Event{}
	}
	for i := range items {
		SetKind(&items[i])
	}
	return &EventList{Items: items, ResourceVersion: list.ResourceVersion}, nil
}

func (c *Client) WatchEvents(ctx context.Context, ns, resourceVersion string) (watch.Interface, error) {
	if err := validateNamespace(LabelEvent, ns); err != nil {
		return nil, err
	}
	w, err := c.Ctrl.Watch(ctx, &corev1.EventList{}, watchOptions(ns, resourceVersion)...)
	if observe("watch_events", err) != nil {
		return nil, createError(err, LabelEvent, "unable to watch events")
	}
	return w, nil
}
