package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/che-incubator/dashboard-backend/k8s"
	"github.com/che-incubator/dashboard-backend/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

const writeWait = 10 * time.Second

// Source opens the streams relayed to a connection. *k8s.Client implements it.
type Source interface {
	WatchDevWorkspaces(ctx context.Context, ns, resourceVersion string) (watch.Interface, error)
	WatchPods(ctx context.Context, ns, resourceVersion string) (watch.Interface, error)
	WatchEvents(ctx context.Context, ns, resourceVersion string) (watch.Interface, error)
	WatchContainerLogs(ctx context.Context, ns, podName string, opts k8s.LogsOptions, h k8s.LogsHandler) error
}

type Options struct {
	PingPeriod time.Duration
	Logs       k8s.LogsOptions
	// RestartDelay is waited before reopening a watch the API server closed.
	RestartDelay time.Duration
}

type subscription struct {
	channel string
	params  model.SubscribeParams
	ctx     context.Context
	cancel  context.CancelFunc
}

// Conn relays Kubernetes watches and container logs to one websocket client.
// A connection holds at most one subscription per channel.
type Conn struct {
	id   string
	ws   *websocket.Conn
	src  Source
	opts Options

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]*subscription
	wg   sync.WaitGroup
}

func NewConn(ws *websocket.Conn, src Source, opts Options) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		src:  src,
		opts: opts,
		subs: make(map[string]*subscription),
	}
}

func (c *Conn) ID() string { return c.id }

// Serve reads subscription requests until the peer goes away or ctx is done.
// All subscriptions are stopped before it returns.
func (c *Conn) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.unsubscribeAll()
		c.wg.Wait()
		_ = c.ws.Close()
		connectionsGauge.Dec()
		log.Debug().Str("conn", c.id).Msg("websocket closed")
	}()
	connectionsGauge.Inc()
	log.Debug().Str("conn", c.id).Msg("websocket opened")

	if c.opts.PingPeriod > 0 {
		pongWait := 2 * c.opts.PingPeriod
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.pingLoop(ctx)
		}()
	}

	go func() {
		<-ctx.Done()
		// unblocks ReadMessage
		_ = c.ws.SetReadDeadline(time.Now())
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var req model.SubscribeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError(ctx, "", model.SubscribeParams{}, http.StatusBadRequest, "BadRequest", "malformed message: "+err.Error())
			continue
		}
		c.handle(ctx, req)
	}
}

func (c *Conn) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("ping failed")
				return
			}
		}
	}
}

func (c *Conn) handle(ctx context.Context, req model.SubscribeRequest) {
	switch req.Method {
	case model.MethodSubscribe:
		if err := validate(req); err != nil {
			c.sendError(ctx, req.Channel, req.Params, http.StatusBadRequest, "BadRequest", err.Error())
			return
		}
		c.subscribe(ctx, req.Channel, req.Params)
	case model.MethodUnsubscribe:
		c.unsubscribe(req.Channel)
	default:
		c.sendError(ctx, req.Channel, req.Params, http.StatusBadRequest, "BadRequest", fmt.Sprintf("unknown method %q", req.Method))
	}
}

func validate(req model.SubscribeRequest) error {
	if !model.IsWatchChannel(req.Channel) && req.Channel != model.ChannelLogs {
		return fmt.Errorf("unknown channel %q", req.Channel)
	}
	if req.Params.Namespace == "" {
		return errors.New("params.namespace is required")
	}
	if req.Channel == model.ChannelLogs && req.Params.PodName == "" {
		return errors.New("params.podName is required for logs")
	}
	return nil
}

func (c *Conn) subscribe(ctx context.Context, channel string, params model.SubscribeParams) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{channel: channel, params: params, ctx: subCtx, cancel: cancel}

	c.mu.Lock()
	if prev, ok := c.subs[channel]; ok {
		prev.cancel()
	}
	c.subs[channel] = sub
	c.mu.Unlock()

	log.Debug().Str("conn", c.id).Str("channel", channel).Str("namespace", params.Namespace).Msg("subscribed")
	subscriptionsGauge.WithLabelValues(channel).Inc()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer subscriptionsGauge.WithLabelValues(channel).Dec()
		defer c.release(sub)
		if channel == model.ChannelLogs {
			c.runLogs(sub)
		} else {
			c.runWatch(sub)
		}
	}()
}

func (c *Conn) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[channel]; ok {
		sub.cancel()
		delete(c.subs, channel)
		log.Debug().Str("conn", c.id).Str("channel", channel).Msg("unsubscribed")
	}
}

func (c *Conn) unsubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for channel, sub := range c.subs {
		sub.cancel()
		delete(c.subs, channel)
	}
}

// release forgets sub once its stream ended, unless it was already replaced.
func (c *Conn) release(sub *subscription) {
	sub.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[sub.channel] == sub {
		delete(c.subs, sub.channel)
	}
}

func (c *Conn) open(sub *subscription, rv string) (watch.Interface, error) {
	ns := sub.params.Namespace
	switch sub.channel {
	case model.ChannelDevWorkspace:
		return c.src.WatchDevWorkspaces(sub.ctx, ns, rv)
	case model.ChannelPod:
		return c.src.WatchPods(sub.ctx, ns, rv)
	default:
		return c.src.WatchEvents(sub.ctx, ns, rv)
	}
}

// runWatch relays one watch. A stream closed by the API server is reopened
// from the last resourceVersion seen; watch errors end the subscription.
func (c *Conn) runWatch(sub *subscription) {
	rv := sub.params.ResourceVersion
	for {
		w, err := c.open(sub, rv)
		if err != nil {
			if sub.ctx.Err() == nil {
				c.sendFailure(sub, err)
			}
			return
		}
		var stop bool
		rv, stop = c.relay(sub, w, rv)
		w.Stop()
		if stop || sub.ctx.Err() != nil {
			return
		}
		watchRestartsTotal.WithLabelValues(sub.channel).Inc()
		log.Debug().Str("conn", c.id).Str("channel", sub.channel).Str("resourceVersion", rv).Msg("watch closed by server, restarting")
		select {
		case <-sub.ctx.Done():
			return
		case <-time.After(c.opts.RestartDelay):
		}
	}
}

func (c *Conn) relay(sub *subscription, w watch.Interface, rv string) (string, bool) {
	for {
		select {
		case <-sub.ctx.Done():
			return rv, true
		case ev, ok := <-w.ResultChan():
			if !ok {
				return rv, false
			}
			switch ev.Type {
			case watch.Error:
				status := apierrors.FromObject(ev.Object)
				c.sendFailure(sub, status)
				return rv, true
			case watch.Bookmark:
				if obj, err := meta.Accessor(ev.Object); err == nil {
					rv = obj.GetResourceVersion()
				}
				continue
			}
			if obj, err := meta.Accessor(ev.Object); err == nil && obj.GetResourceVersion() != "" {
				rv = obj.GetResourceVersion()
			}
			k8s.SetKind(ev.Object)
			data, err := json.Marshal(ev.Object)
			if err != nil {
				log.Warn().Err(err).Str("channel", sub.channel).Msg("unable to encode watched object")
				continue
			}
			c.send(sub.ctx, model.ChannelMessage{
				Channel: sub.channel,
				Message: model.EventMessage{EventPhase: string(ev.Type), Object: data},
			})
		}
	}
}

type logsRelay struct {
	c   *Conn
	sub *subscription
}

func (r logsRelay) OnLogs(chunk k8s.LogChunk) {
	r.c.send(r.sub.ctx, model.ChannelMessage{
		Channel: model.ChannelLogs,
		Message: model.EventMessage{
			EventPhase:    model.PhaseAdded,
			PodName:       chunk.PodName,
			ContainerName: chunk.ContainerName,
			Logs:          chunk.Logs,
		},
	})
}

func (r logsRelay) OnError(_ string, err error) { r.c.sendFailure(r.sub, err) }

func (c *Conn) runLogs(sub *subscription) {
	err := c.src.WatchContainerLogs(sub.ctx, sub.params.Namespace, sub.params.PodName, c.opts.Logs, logsRelay{c: c, sub: sub})
	if err != nil && sub.ctx.Err() == nil {
		c.sendFailure(sub, err)
	}
}

func (c *Conn) sendFailure(sub *subscription, err error) {
	code, reason, message := describeError(err)
	c.sendError(sub.ctx, sub.channel, sub.params, code, reason, message)
}

func (c *Conn) sendError(ctx context.Context, channel string, params model.SubscribeParams, code int, reason, message string) {
	c.send(ctx, model.ChannelMessage{
		Channel: channel,
		Message: model.EventMessage{
			EventPhase: model.PhaseError,
			Status:     &model.EventStatus{Code: code, Reason: reason, Message: message},
			Params:     &params,
		},
	})
}

// send drops the message when ctx is already done so a replaced subscription
// cannot write after its successor started.
func (c *Conn) send(ctx context.Context, msg model.ChannelMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		messagesTotal.WithLabelValues(msg.Channel, "error").Inc()
		log.Debug().Err(err).Str("conn", c.id).Str("channel", msg.Channel).Msg("websocket write failed")
		return
	}
	messagesTotal.WithLabelValues(msg.Channel, "success").Inc()
}

func describeError(err error) (int, string, string) {
	var apiStatus apierrors.APIStatus
	if errors.As(err, &apiStatus) {
		s := apiStatus.Status()
		if s.Code != 0 {
			return int(s.Code), string(s.Reason), s.Message
		}
	}
	var ke *k8s.Error
	if errors.As(err, &ke) {
		return ke.Status, string(reasonFor(ke.Status)), ke.Error()
	}
	return http.StatusInternalServerError, string(metav1.StatusReasonInternalError), err.Error()
}

func reasonFor(code int) metav1.StatusReason {
	switch code {
	case http.StatusBadRequest:
		return metav1.StatusReasonBadRequest
	case http.StatusNotFound:
		return metav1.StatusReasonNotFound
	case http.StatusConflict:
		return metav1.StatusReasonConflict
	case http.StatusGone:
		return metav1.StatusReasonGone
	default:
		return metav1.StatusReasonInternalError
	}
}
