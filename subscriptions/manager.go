package subscriptions

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/che-incubator/dashboard-backend/model"
)

// Sender delivers one request over the current connection.
type Sender interface {
	Send(req model.SubscribeRequest) error
}

// Manager remembers the last parameters used for every channel so the
// subscriptions can be replayed on a new connection.
type Manager struct {
	mu   sync.Mutex
	subs map[string]model.SubscribeParams
}

func NewManager() *Manager {
	return &Manager{subs: make(map[string]model.SubscribeParams)}
}

func (m *Manager) Subscribe(s Sender, channel string, params model.SubscribeParams) error {
	m.mu.Lock()
	m.subs[channel] = params
	m.mu.Unlock()
	return s.Send(model.SubscribeRequest{Method: model.MethodSubscribe, Channel: channel, Params: params})
}

func (m *Manager) Unsubscribe(s Sender, channel string) error {
	m.mu.Lock()
	params, ok := m.subs[channel]
	delete(m.subs, channel)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Send(model.SubscribeRequest{Method: model.MethodUnsubscribe, Channel: channel, Params: params})
}

// Replay resends every recorded subscription, ordered by channel name.
func (m *Manager) Replay(s Sender) error {
	for _, req := range m.requests() {
		if err := s.Send(req); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) requests() []model.SubscribeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]model.SubscribeRequest, 0, len(m.subs))
	for channel, params := range m.subs {
		reqs = append(reqs, model.SubscribeRequest{Method: model.MethodSubscribe, Channel: channel, Params: params})
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Channel < reqs[j].Channel })
	return reqs
}

// Subscriptions returns a copy of the recorded parameters.
func (m *Manager) Subscriptions() map[string]model.SubscribeParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.SubscribeParams, len(m.subs))
	for k, v := range m.subs {
		out[k] = v
	}
	return out
}

// Observe advances the resourceVersion of a watch channel to the one of the
// received object. A 410 Gone clears it and reports that the channel has to be
// resubscribed, since the server ended that subscription.
func (m *Manager) Observe(msg model.ChannelMessage) (resubscribe bool) {
	if !model.IsWatchChannel(msg.Channel) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	params, ok := m.subs[msg.Channel]
	if !ok {
		return false
	}

	if msg.Message.EventPhase == model.PhaseError {
		if msg.Message.Status != nil && msg.Message.Status.Code == http.StatusGone {
			params.ResourceVersion = ""
			m.subs[msg.Channel] = params
			return true
		}
		return false
	}

	var obj struct {
		Metadata struct {
			ResourceVersion string `json:"resourceVersion"`
		} `json:"metadata"`
	}
	if json.Unmarshal(msg.Message.Object, &obj) != nil || obj.Metadata.ResourceVersion == "" {
		return false
	}
	params.ResourceVersion = obj.Metadata.ResourceVersion
	m.subs[msg.Channel] = params
	return false
}

// Resubscribe sends the recorded subscription of channel again.
func (m *Manager) Resubscribe(s Sender, channel string) error {
	m.mu.Lock()
	params, ok := m.subs[channel]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Send(model.SubscribeRequest{Method: model.MethodSubscribe, Channel: channel, Params: params})
}
