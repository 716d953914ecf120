package model

import "encoding/json"

// WebSocket subscription channels.
const (
	ChannelDevWorkspace = "devWorkspace"
	ChannelEvent        = "event"
	ChannelPod          = "pod"
	ChannelLogs         = "logs"
)

const (
	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
)

// Event phases. Watch channels use the Kubernetes event type verbatim.
const (
	PhaseAdded    = "ADDED"
	PhaseModified = "MODIFIED"
	PhaseDeleted  = "DELETED"
	PhaseError    = "ERROR"
)

type SubscribeParams struct {
	Namespace       string `json:"namespace"`
	ResourceVersion string `json:"resourceVersion,omitempty"`
	PodName         string `json:"podName,omitempty"`
}

// SubscribeRequest is sent by clients.
type SubscribeRequest struct {
	Method  string          `json:"method"`
	Channel string          `json:"channel"`
	Params  SubscribeParams `json:"params"`
}

// ChannelMessage is sent by the server.
type ChannelMessage struct {
	Channel string       `json:"channel"`
	Message EventMessage `json:"message"`
}

type EventStatus struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// EventMessage carries either a watched object, a chunk of container logs or
// an error.
type EventMessage struct {
	EventPhase    string           `json:"eventPhase"`
	Object        json.RawMessage  `json:"object,omitempty"`
	PodName       string           `json:"podName,omitempty"`
	ContainerName string           `json:"containerName,omitempty"`
	Logs          string           `json:"logs,omitempty"`
	Status        *EventStatus     `json:"status,omitempty"`
	Params        *SubscribeParams `json:"params,omitempty"`
}

// IsWatchChannel reports whether channel relays a resource watch.
func IsWatchChannel(channel string) bool {
	switch channel {
	case ChannelDevWorkspace, ChannelEvent, ChannelPod:
		return true
	}
	return false
}
