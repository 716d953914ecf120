package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/che-incubator/dashboard-backend/k8s"
	"github.com/che-incubator/dashboard-backend/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

const cheNamespace = "eclipse-che"

const cheCode = `schemaVersion: 2.2.2
metadata:
  name: che-code
  displayName: VS Code - Open Source
  attributes:
    publisher: che-incubator
    version: latest
components:
  - name: che-code-runtime-description
    container:
      image: quay.io/che-incubator/che-code:latest
`

const idea = `schemaVersion: 2.2.2
metadata:
  name: che-idea
  attributes:
    publisher: che-incubator
    version: next
`

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func labeled(name, component string, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: cheNamespace,
			Labels:    map[string]string{model.LabelComponent: component},
		},
		Data: data,
	}
}

func newReader(objs ...client.Object) client.Reader {
	return fake.NewClientBuilder().WithScheme(k8s.Scheme).WithObjects(objs...).Build()
}

func TestParseEditor(t *testing.T) {
	e, err := ParseEditor("test", []byte(cheCode))
	require.NoError(t, err)
	assert.Equal(t, "che-incubator/che-code/latest", e.ID)
	assert.Equal(t, "2.2.2", e.Devfile["schemaVersion"])
	assert.Equal(t, []byte(cheCode), e.YAML)

	_, err = ParseEditor("test", []byte("metadata:\n  name: x\n"))
	assert.Error(t, err)

	_, err = ParseEditor("test", []byte("metadata: [\n"))
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "idea.yaml"), []byte(idea), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	reader := newReader(
		labeled("editors", model.ComponentEditorDefinition, map[string]string{
			"che-code.yaml": cheCode,
			"broken.yaml":   "metadata: {}",
		}),
		labeled("samples-a", model.ComponentGettingStartedSample, map[string]string{
			"samples.json": `[{"displayName":"Go"},{"displayName":"Java"}]`,
		}),
		labeled("samples-b", model.ComponentGettingStartedSample, map[string]string{
			"samples.json": `[{"displayName":"Python"}]`,
			"bad.json":     `{"not":"a list"}`,
		}),
		labeled("unrelated", "something-else", map[string]string{"x": cheCode}),
	)

	c := New(reader, cheNamespace, dir, 0)
	require.NoError(t, c.Refresh(context.Background()))

	editors := c.Editors()
	require.Len(t, editors, 2)
	assert.Equal(t, "che-incubator/che-code/latest", editors[0].ID)
	assert.Equal(t, "che-incubator/che-idea/next", editors[1].ID)

	e, ok := c.Editor("che-incubator/che-idea/next")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "idea.yaml"), e.Source)

	_, ok = c.Editor("che-incubator/unknown/latest")
	assert.False(t, ok)

	samples := c.Samples()
	require.Len(t, samples, 3)
	assert.JSONEq(t, `{"displayName":"Go"}`, string(samples[0]))
	assert.JSONEq(t, `{"displayName":"Python"}`, string(samples[2]))
}

func TestRefreshConfigMapOverridesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "code.yaml"), []byte(cheCode), 0o644))
	reader := newReader(labeled("editors", model.ComponentEditorDefinition, map[string]string{"code.yaml": cheCode}))

	c := New(reader, cheNamespace, dir, 0)
	require.NoError(t, c.Refresh(context.Background()))

	editors := c.Editors()
	require.Len(t, editors, 1)
	assert.Equal(t, "configmap/editors/code.yaml", editors[0].Source)
}

func TestFailedRefreshKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "idea.yaml"), []byte(idea), 0o644))

	c := New(newReader(), cheNamespace, dir, 0)
	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, c.Editors(), 1)

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, c.Refresh(context.Background()))
	assert.Len(t, c.Editors(), 1)
}

func TestEmptyCatalog(t *testing.T) {
	c := New(newReader(), cheNamespace, "", 0)
	assert.False(t, c.Ready())
	assert.Empty(t, c.Editors())
	assert.NotNil(t, c.Samples())

	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Ready())
	assert.Empty(t, c.Editors())
	assert.Empty(t, c.Samples())
}
