package k8s

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

// LogsOptions controls the retry applied while a container has not started.
// The delay is fixed.
type LogsOptions struct {
	RetryDelay    time.Duration
	RetryAttempts int
	TailLines     int64
}

type LogChunk struct {
	PodName       string `json:"podName"`
	ContainerName string `json:"containerName"`
	Logs          string `json:"logs"`
}

// LogsHandler receives log lines and per-container failures. Calls may come
// from several goroutines.
type LogsHandler interface {
	OnLogs(LogChunk)
	OnError(container string, err error)
}

// WatchContainerLogs follows the logs of every container of the pod, init
// containers included, until ctx is done or all streams end.
func (c *Client) WatchContainerLogs(ctx context.Context, ns, podName string, opts LogsOptions, h LogsHandler) error {
	if err := validateNamespace(LabelLogs, ns); err != nil {
		return err
	}
	pod, err := c.Kube.CoreV1().Pods(ns).Get(ctx, podName, metav1.GetOptions{})
	if observe("get_pod", err) != nil {
		return createError(err, LabelLogs, "unable to get "+describe("pod", ns, podName))
	}

	var containers []string
	for _, ct := range pod.Spec.InitContainers {
		containers = append(containers, ct.Name)
	}
	for _, ct := range pod.Spec.Containers {
		containers = append(containers, ct.Name)
	}

	var wg sync.WaitGroup
	for _, container := range containers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			open := func(ctx context.Context) (io.ReadCloser, error) {
				logOpts := &corev1.PodLogOptions{Container: container, Follow: true}
				if opts.TailLines > 0 {
					logOpts.TailLines = ptr.To(opts.TailLines)
				}
				return c.Kube.CoreV1().Pods(ns).GetLogs(podName, logOpts).Stream(ctx)
			}
			err := streamWithRetry(ctx, open, opts, func(line string) {
				h.OnLogs(LogChunk{PodName: podName, ContainerName: container, Logs: line})
			})
			if err != nil && ctx.Err() == nil {
				h.OnError(container, createError(err, LabelLogs, "unable to watch logs of container "+container))
			}
		}()
	}
	wg.Wait()
	return nil
}

// streamWithRetry opens a log stream and forwards it line by line. A
// BadRequest from the API server means the container is still waiting to
// start; the stream is reopened after RetryDelay, at most RetryAttempts times.
func streamWithRetry(ctx context.Context, open func(context.Context) (io.ReadCloser, error), opts LogsOptions, onLine func(string)) error {
	var stream io.ReadCloser
	var err error
	for attempt := 0; ; attempt++ {
		stream, err = open(ctx)
		observe("stream_logs", err)
		if err == nil {
			break
		}
		if !apierrors.IsBadRequest(err) || attempt >= opts.RetryAttempts {
			return err
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Msg("container not ready, retrying log stream")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	defer func() { _ = stream.Close() }()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text() + "\n")
	}
	return scanner.Err()
}
