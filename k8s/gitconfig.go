package k8s

import (
	"bytes"
	"context"
	"strings"

	"github.com/che-incubator/dashboard-backend/model"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	GitConfigMapName = "workspace-userdata-gitconfig-configmap"
	gitConfigField   = "gitconfig"
)

var gitConfigLabels = map[string]string{
	model.LabelMountToDevWorkspace: "true",
	model.LabelWatchConfigMap:      "true",
}

var gitConfigAnnotations = map[string]string{
	model.AnnoMountAs:   model.MountAsSubpath,
	model.AnnoMountPath: "/etc/",
}

type GitConfigUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type GitConfigSections struct {
	User GitConfigUser `json:"user"`
}

type GitConfig struct {
	ResourceVersion string            `json:"resourceVersion,omitempty"`
	GitConfig       GitConfigSections `json:"gitconfig"`
}

// ReadGitConfig returns the user's gitconfig, creating an empty ConfigMap on
// first access.
func (c *Client) ReadGitConfig(ctx context.Context, ns string) (*GitConfig, error) {
	if err := validateNamespace(LabelGitConfig, ns); err != nil {
		return nil, err
	}
	cm, err := c.getOrCreateGitConfigMap(ctx, ns)
	if err != nil {
		return nil, err
	}
	return toGitConfig(cm)
}

// PatchGitConfig updates the [user] section and keeps every other section
// untouched. A non-empty ResourceVersion that differs from the stored one is
// rejected as a conflict.
func (c *Client) PatchGitConfig(ctx context.Context, ns string, patch GitConfig) (*GitConfig, error) {
	if err := validateNamespace(LabelGitConfig, ns); err != nil {
		return nil, err
	}
	cm, err := c.getOrCreateGitConfigMap(ctx, ns)
	if err != nil {
		return nil, err
	}
	if patch.ResourceVersion != "" && patch.ResourceVersion != cm.ResourceVersion {
		return nil, conflict(LabelGitConfig, "gitconfig was modified, resourceVersion %s is outdated", patch.ResourceVersion)
	}

	cfg, err := decodeGitConfig(cm.Data[gitConfigField])
	if err != nil {
		return nil, err
	}
	user := cfg.Section("user")
	setOrRemove(user, "name", patch.GitConfig.User.Name)
	setOrRemove(user, "email", patch.GitConfig.User.Email)

	var buf bytes.Buffer
	if err := gitconfig.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, createError(err, LabelGitConfig, "unable to encode gitconfig")
	}
	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	cm.Data[gitConfigField] = buf.String()
	if err := observe("update_gitconfig", c.Ctrl.Update(ctx, cm)); err != nil {
		return nil, createError(err, LabelGitConfig, "unable to update gitconfig")
	}
	log.Info().Str("namespace", ns).Msg("gitconfig updated")
	return toGitConfig(cm)
}

func (c *Client) getOrCreateGitConfigMap(ctx context.Context, ns string) (*corev1.ConfigMap, error) {
	cm := &corev1.ConfigMap{}
	err := c.Ctrl.Get(ctx, objectKey(ns, GitConfigMapName), cm)
	if err == nil {
		observe("get_gitconfig", nil)
		return cm, nil
	}
	if !apierrors.IsNotFound(err) {
		observe("get_gitconfig", err)
		return nil, createError(err, LabelGitConfig, "unable to read gitconfig")
	}

	cm = &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:        GitConfigMapName,
			Namespace:   ns,
			Labels:      copyMap(gitConfigLabels),
			Annotations: copyMap(gitConfigAnnotations),
		},
		Data: map[string]string{gitConfigField: ""},
	}
	if err := observe("create_gitconfig", c.Ctrl.Create(ctx, cm)); err != nil {
		return nil, createError(err, LabelGitConfig, "unable to create gitconfig")
	}
	log.Info().Str("namespace", ns).Msg("gitconfig created")
	return cm, nil
}

func decodeGitConfig(data string) (*gitconfig.Config, error) {
	cfg := gitconfig.New()
	if strings.TrimSpace(data) == "" {
		return cfg, nil
	}
	if err := gitconfig.NewDecoder(strings.NewReader(data)).Decode(cfg); err != nil {
		return nil, createError(err, LabelGitConfig, "stored gitconfig is malformed")
	}
	return cfg, nil
}

func toGitConfig(cm *corev1.ConfigMap) (*GitConfig, error) {
	cfg, err := decodeGitConfig(cm.Data[gitConfigField])
	if err != nil {
		return nil, err
	}
	user := cfg.Section("user")
	return &GitConfig{
		ResourceVersion: cm.ResourceVersion,
		GitConfig: GitConfigSections{
			User: GitConfigUser{
				Name:  user.Option("name"),
				Email: user.Option("email"),
			},
		},
	}, nil
}

func setOrRemove(s *gitconfig.Section, key, value string) {
	if value == "" {
		s.RemoveOption(key)
		return
	}
	s.SetOption(key, value)
}
