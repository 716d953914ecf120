package subscriptions

import (
	"errors"
	"net/http"
	"testing"

	"github.com/che-incubator/dashboard-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []model.SubscribeRequest
	err  error
}

func (s *recordingSender) Send(req model.SubscribeRequest) error {
	s.sent = append(s.sent, req)
	return s.err
}

func TestManagerReplayIsOrderedByChannel(t *testing.T) {
	m := NewManager()
	s := &recordingSender{}

	require.NoError(t, m.Subscribe(s, model.ChannelPod, model.SubscribeParams{Namespace: "user-che"}))
	require.NoError(t, m.Subscribe(s, model.ChannelDevWorkspace, model.SubscribeParams{Namespace: "user-che", ResourceVersion: "3"}))
	require.NoError(t, m.Subscribe(s, model.ChannelEvent, model.SubscribeParams{Namespace: "user-che"}))
	require.Len(t, s.sent, 3)

	replay := &recordingSender{}
	require.NoError(t, m.Replay(replay))
	require.Len(t, replay.sent, 3)
	assert.Equal(t, model.ChannelDevWorkspace, replay.sent[0].Channel)
	assert.Equal(t, "3", replay.sent[0].Params.ResourceVersion)
	assert.Equal(t, model.ChannelEvent, replay.sent[1].Channel)
	assert.Equal(t, model.ChannelPod, replay.sent[2].Channel)
	for _, req := range replay.sent {
		assert.Equal(t, model.MethodSubscribe, req.Method)
	}
}

func TestManagerUnsubscribeForgets(t *testing.T) {
	m := NewManager()
	s := &recordingSender{}

	require.NoError(t, m.Subscribe(s, model.ChannelPod, model.SubscribeParams{Namespace: "user-che"}))
	require.NoError(t, m.Unsubscribe(s, model.ChannelPod))
	require.Len(t, s.sent, 2)
	assert.Equal(t, model.MethodUnsubscribe, s.sent[1].Method)
	assert.Empty(t, m.Subscriptions())

	// unknown channel sends nothing
	require.NoError(t, m.Unsubscribe(s, model.ChannelEvent))
	assert.Len(t, s.sent, 2)
}

func TestManagerSubscribeRecordsEvenWhenSendFails(t *testing.T) {
	m := NewManager()
	s := &recordingSender{err: errors.New("closed")}

	require.Error(t, m.Subscribe(s, model.ChannelEvent, model.SubscribeParams{Namespace: "user-che"}))
	assert.Contains(t, m.Subscriptions(), model.ChannelEvent)
}

func TestManagerObserve(t *testing.T) {
	newManager := func() *Manager {
		m := NewManager()
		s := &recordingSender{}
		_ = m.Subscribe(s, model.ChannelDevWorkspace, model.SubscribeParams{Namespace: "user-che", ResourceVersion: "1"})
		_ = m.Subscribe(s, model.ChannelLogs, model.SubscribeParams{Namespace: "user-che", PodName: "ws-pod"})
		return m
	}
	object := []byte(`{"metadata":{"name":"wksp","resourceVersion":"9"}}`)

	tests := []struct {
		name        string
		msg         model.ChannelMessage
		channel     string
		want        string
		resubscribe bool
	}{
		{
			name:    "advances to object resourceVersion",
			msg:     model.ChannelMessage{Channel: model.ChannelDevWorkspace, Message: model.EventMessage{EventPhase: model.PhaseModified, Object: object}},
			channel: model.ChannelDevWorkspace,
			want:    "9",
		},
		{
			name:    "object without resourceVersion keeps current",
			msg:     model.ChannelMessage{Channel: model.ChannelDevWorkspace, Message: model.EventMessage{EventPhase: model.PhaseAdded, Object: []byte(`{"metadata":{}}`)}},
			channel: model.ChannelDevWorkspace,
			want:    "1",
		},
		{
			name: "gone clears resourceVersion",
			msg: model.ChannelMessage{Channel: model.ChannelDevWorkspace, Message: model.EventMessage{
				EventPhase: model.PhaseError,
				Status:     &model.EventStatus{Code: http.StatusGone, Reason: "Expired"},
			}},
			channel:     model.ChannelDevWorkspace,
			want:        "",
			resubscribe: true,
		},
		{
			name: "other errors keep current",
			msg: model.ChannelMessage{Channel: model.ChannelDevWorkspace, Message: model.EventMessage{
				EventPhase: model.PhaseError,
				Status:     &model.EventStatus{Code: http.StatusForbidden},
			}},
			channel: model.ChannelDevWorkspace,
			want:    "1",
		},
		{
			name:    "logs channel is not a watch",
			msg:     model.ChannelMessage{Channel: model.ChannelLogs, Message: model.EventMessage{EventPhase: model.PhaseAdded, Object: object}},
			channel: model.ChannelLogs,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager()
			assert.Equal(t, tt.resubscribe, m.Observe(tt.msg))
			assert.Equal(t, tt.want, m.Subscriptions()[tt.channel].ResourceVersion)
		})
	}
}

func TestManagerObserveIgnoresUnsubscribedChannel(t *testing.T) {
	m := NewManager()
	assert.False(t, m.Observe(model.ChannelMessage{Channel: model.ChannelPod, Message: model.EventMessage{
		EventPhase: model.PhaseAdded,
		Object:     []byte(`{"metadata":{"resourceVersion":"4"}}`),
	}}))
	assert.Empty(t, m.Subscriptions())
}

func TestManagerResubscribe(t *testing.T) {
	m := NewManager()
	s := &recordingSender{}
	require.NoError(t, m.Subscribe(s, model.ChannelPod, model.SubscribeParams{Namespace: "user-che", ResourceVersion: "3"}))

	require.True(t, m.Observe(model.ChannelMessage{Channel: model.ChannelPod, Message: model.EventMessage{
		EventPhase: model.PhaseError,
		Status:     &model.EventStatus{Code: http.StatusGone},
	}}))
	require.NoError(t, m.Resubscribe(s, model.ChannelPod))
	require.Len(t, s.sent, 2)
	assert.Equal(t, model.MethodSubscribe, s.sent[1].Method)
	assert.Equal(t, model.SubscribeParams{Namespace: "user-che"}, s.sent[1].Params)

	// nothing recorded, nothing sent
	require.NoError(t, m.Resubscribe(s, model.ChannelEvent))
	assert.Len(t, s.sent, 2)
}
