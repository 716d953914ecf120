package k8s

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/che-incubator/dashboard-backend/model"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestReadGitConfigCreatesConfigMap(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()

	cfg, err := c.ReadGitConfig(ctx, testNamespace)
	require.NoError(t, err)
	assert.Empty(t, cfg.GitConfig.User.Name)
	assert.NotEmpty(t, cfg.ResourceVersion)

	cm := &corev1.ConfigMap{}
	require.NoError(t, c.Ctrl.Get(ctx, objectKey(testNamespace, GitConfigMapName), cm))
	assert.Equal(t, "true", cm.Labels[model.LabelMountToDevWorkspace])
	assert.Equal(t, "/etc/", cm.Annotations[model.AnnoMountPath])
}

func TestPatchGitConfigPreservesOtherSections(t *testing.T) {
	ctx := context.Background()
	existing := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: GitConfigMapName, Namespace: testNamespace},
		Data: map[string]string{
			gitConfigField: "[user]\n\tname = Old Name\n\temail = old@example.com\n[http]\n\tsslVerify = false\n",
		},
	}
	c := newTestClient(existing)

	before, err := c.ReadGitConfig(ctx, testNamespace)
	require.NoError(t, err)
	assert.Equal(t, "Old Name", before.GitConfig.User.Name)

	after, err := c.PatchGitConfig(ctx, testNamespace, GitConfig{
		ResourceVersion: before.ResourceVersion,
		GitConfig:       GitConfigSections{User: GitConfigUser{Name: "New Name", Email: "new@example.com"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", after.GitConfig.User.Name)
	assert.Equal(t, "new@example.com", after.GitConfig.User.Email)
	assert.NotEqual(t, before.ResourceVersion, after.ResourceVersion)

	cm := &corev1.ConfigMap{}
	require.NoError(t, c.Ctrl.Get(ctx, objectKey(testNamespace, GitConfigMapName), cm))
	stored := gitconfig.New()
	require.NoError(t, gitconfig.NewDecoder(strings.NewReader(cm.Data[gitConfigField])).Decode(stored))
	assert.Equal(t, "false", stored.Section("http").Option("sslVerify"))
	assert.Equal(t, "New Name", stored.Section("user").Option("name"))
}

func TestPatchGitConfigConflict(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()

	_, err := c.ReadGitConfig(ctx, testNamespace)
	require.NoError(t, err)

	_, err = c.PatchGitConfig(ctx, testNamespace, GitConfig{
		ResourceVersion: "stale",
		GitConfig:       GitConfigSections{User: GitConfigUser{Name: "x"}},
	})
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestPatchGitConfigClearsEmptyValues(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()

	_, err := c.PatchGitConfig(ctx, testNamespace, GitConfig{GitConfig: GitConfigSections{User: GitConfigUser{Name: "A", Email: "a@b"}}})
	require.NoError(t, err)
	cfg, err := c.PatchGitConfig(ctx, testNamespace, GitConfig{GitConfig: GitConfigSections{User: GitConfigUser{Name: "A"}}})
	require.NoError(t, err)
	assert.Equal(t, "A", cfg.GitConfig.User.Name)
	assert.Empty(t, cfg.GitConfig.User.Email)
}
