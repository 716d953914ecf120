package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/che-incubator/dashboard-backend/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"
)

// Editor is one editor definition: a devfile whose metadata names the editor.
type Editor struct {
	ID      string
	Source  string
	YAML    []byte
	Devfile map[string]any
}

type editorMetadata struct {
	Metadata struct {
		Name       string `json:"name"`
		Attributes struct {
			Publisher string `json:"publisher"`
			Version   string `json:"version"`
		} `json:"attributes"`
	} `json:"metadata"`
}

type snapshot struct {
	editors map[string]Editor
	samples []json.RawMessage
}

// Catalog keeps the last good snapshot of editors and getting-started samples
// read from ConfigMaps in the Che namespace and from an optional directory.
type Catalog struct {
	reader     client.Reader
	namespace  string
	editorsDir string
	interval   time.Duration

	mu    sync.RWMutex
	snap  snapshot
	ready bool
}

func New(reader client.Reader, namespace, editorsDir string, interval time.Duration) *Catalog {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Catalog{
		reader:     reader,
		namespace:  namespace,
		editorsDir: editorsDir,
		interval:   interval,
		snap:       snapshot{editors: map[string]Editor{}, samples: []json.RawMessage{}},
	}
}

func (c *Catalog) Run(ctx context.Context) {
	c.refreshLogged(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshLogged(ctx)
		}
	}
}

func (c *Catalog) refreshLogged(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog refresh failed, keeping previous snapshot")
	}
}

// Refresh reloads everything. On error the previous snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var cmEditors, dirEditors []Editor
	var samples []json.RawMessage

	g, gctx := errgroup.WithContext(refreshCtx)
	g.Go(func() error {
		var err error
		cmEditors, err = c.loadConfigMapEditors(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		dirEditors, err = loadDirEditors(c.editorsDir)
		return err
	})
	g.Go(func() error {
		var err error
		samples, err = c.loadSamples(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return err
	}

	editors := make(map[string]Editor, len(cmEditors)+len(dirEditors))
	for _, e := range dirEditors {
		editors[e.ID] = e
	}
	// ConfigMaps override bundled files
	for _, e := range cmEditors {
		if prev, ok := editors[e.ID]; ok {
			log.Warn().Str("editor", e.ID).Str("override", e.Source).Str("bundled", prev.Source).Msg("editor defined twice, using ConfigMap")
		}
		editors[e.ID] = e
	}

	c.mu.Lock()
	c.snap = snapshot{editors: editors, samples: samples}
	c.ready = true
	c.mu.Unlock()

	refreshTotal.WithLabelValues("success").Inc()
	editorsGauge.Set(float64(len(editors)))
	samplesGauge.Set(float64(len(samples)))
	log.Debug().Int("editors", len(editors)).Int("samples", len(samples)).Msg("catalog refreshed")
	return nil
}

// Ready reports whether one refresh has succeeded.
func (c *Catalog) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Editors returns the editor definitions sorted by id.
func (c *Catalog) Editors() []Editor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Editor, 0, len(c.snap.editors))
	for _, e := range c.snap.editors {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Editor(id string) (Editor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.snap.editors[id]
	return e, ok
}

func (c *Catalog) Samples() []json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]json.RawMessage{}, c.snap.samples...)
}

func (c *Catalog) listConfigMaps(ctx context.Context, component string) ([]corev1.ConfigMap, error) {
	list := &corev1.ConfigMapList{}
	err := c.reader.List(ctx, list, client.InNamespace(c.namespace), client.MatchingLabels{model.LabelComponent: component})
	if err != nil {
		return nil, fmt.Errorf("list %s configmaps in %s: %w", component, c.namespace, err)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Name < list.Items[j].Name })
	return list.Items, nil
}

func (c *Catalog) loadConfigMapEditors(ctx context.Context) ([]Editor, error) {
	cms, err := c.listConfigMaps(ctx, model.ComponentEditorDefinition)
	if err != nil {
		return nil, err
	}
	var editors []Editor
	for _, cm := range cms {
		for _, key := range sortedKeys(cm.Data) {
			source := "configmap/" + cm.Name + "/" + key
			e, err := ParseEditor(source, []byte(cm.Data[key]))
			if err != nil {
				log.Warn().Err(err).Str("source", source).Msg("skipping invalid editor definition")
				continue
			}
			editors = append(editors, e)
		}
	}
	return editors, nil
}

func loadDirEditors(dir string) ([]Editor, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read editors dir: %w", err)
	}
	var editors []Editor
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read editor %s: %w", path, err)
		}
		e, err := ParseEditor(path, data)
		if err != nil {
			log.Warn().Err(err).Str("source", path).Msg("skipping invalid editor definition")
			continue
		}
		editors = append(editors, e)
	}
	return editors, nil
}

func (c *Catalog) loadSamples(ctx context.Context) ([]json.RawMessage, error) {
	cms, err := c.listConfigMaps(ctx, model.ComponentGettingStartedSample)
	if err != nil {
		return nil, err
	}
	samples := []json.RawMessage{}
	for _, cm := range cms {
		for _, key := range sortedKeys(cm.Data) {
			var items []json.RawMessage
			if err := json.Unmarshal([]byte(cm.Data[key]), &items); err != nil {
				log.Warn().Err(err).Str("configmap", cm.Name).Str("key", key).Msg("skipping invalid samples")
				continue
			}
			samples = append(samples, items...)
		}
	}
	return samples, nil
}

// ParseEditor reads a devfile and derives the editor id
// <publisher>/<name>/<version> from its metadata.
func ParseEditor(source string, data []byte) (Editor, error) {
	var meta editorMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Editor{}, fmt.Errorf("parse devfile: %w", err)
	}
	m := meta.Metadata
	if m.Name == "" || m.Attributes.Publisher == "" || m.Attributes.Version == "" {
		return Editor{}, fmt.Errorf("devfile metadata needs name, attributes.publisher and attributes.version")
	}
	var devfile map[string]any
	if err := yaml.Unmarshal(data, &devfile); err != nil {
		return Editor{}, fmt.Errorf("parse devfile: %w", err)
	}
	return Editor{
		ID:      strings.Join([]string{m.Attributes.Publisher, m.Name, m.Attributes.Version}, "/"),
		Source:  source,
		YAML:    data,
		Devfile: devfile,
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
