package k8s

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/che-incubator/dashboard-backend/model"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const DockerConfigSecretName = "devworkspace-container-registry-dockercfg"

var dockerConfigLabels = map[string]string{
	model.LabelMountToDevWorkspace: "true",
	model.LabelWatchSecret:         "true",
	model.LabelPullSecret:          "true",
}

// DockerConfig holds a base64 encoded .dockerconfigjson document.
type DockerConfig struct {
	DockerConfig    string `json:"dockerconfig"`
	ResourceVersion string `json:"resourceVersion,omitempty"`
}

func (c *Client) GetDockerConfig(ctx context.Context, ns string) (*DockerConfig, error) {
	if err := validateNamespace(LabelDockerConfig, ns); err != nil {
		return nil, err
	}
	secret := &corev1.Secret{}
	err := c.Ctrl.Get(ctx, objectKey(ns, DockerConfigSecretName), secret)
	if apierrors.IsNotFound(err) {
		observe("get_dockerconfig", nil)
		return &DockerConfig{}, nil
	}
	if observe("get_dockerconfig", err) != nil {
		return nil, createError(err, LabelDockerConfig, "unable to get dockerconfig")
	}
	return &DockerConfig{
		DockerConfig:    base64.StdEncoding.EncodeToString(secret.Data[corev1.DockerConfigJsonKey]),
		ResourceVersion: secret.ResourceVersion,
	}, nil
}

// PutDockerConfig replaces the registry credentials, creating the secret when
// it does not exist yet.
func (c *Client) PutDockerConfig(ctx context.Context, ns string, cfg DockerConfig) (*DockerConfig, error) {
	if err := validateNamespace(LabelDockerConfig, ns); err != nil {
		return nil, err
	}
	data, err := decodeBase64(LabelDockerConfig, "dockerconfig", cfg.DockerConfig)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, invalid(LabelDockerConfig, "dockerconfig must be a JSON object")
	}

	secret := &corev1.Secret{}
	err = c.Ctrl.Get(ctx, objectKey(ns, DockerConfigSecretName), secret)
	switch {
	case apierrors.IsNotFound(err):
		observe("get_dockerconfig", nil)
		secret = &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      DockerConfigSecretName,
				Namespace: ns,
				Labels:    copyMap(dockerConfigLabels),
			},
			Type: corev1.SecretTypeDockerConfigJson,
			Data: map[string][]byte{corev1.DockerConfigJsonKey: data},
		}
		if err := observe("create_dockerconfig", c.Ctrl.Create(ctx, secret)); err != nil {
			return nil, createError(err, LabelDockerConfig, "unable to create dockerconfig")
		}
	case err != nil:
		observe("get_dockerconfig", err)
		return nil, createError(err, LabelDockerConfig, "unable to get dockerconfig")
	default:
		observe("get_dockerconfig", nil)
		if cfg.ResourceVersion != "" && cfg.ResourceVersion != secret.ResourceVersion {
			return nil, conflict(LabelDockerConfig, "dockerconfig was modified, resourceVersion %s is outdated", cfg.ResourceVersion)
		}
		if secret.Data == nil {
			secret.Data = map[string][]byte{}
		}
		secret.Data[corev1.DockerConfigJsonKey] = data
		if err := observe("update_dockerconfig", c.Ctrl.Update(ctx, secret)); err != nil {
			return nil, createError(err, LabelDockerConfig, "unable to update dockerconfig")
		}
	}
	return &DockerConfig{
		DockerConfig:    base64.StdEncoding.EncodeToString(data),
		ResourceVersion: secret.ResourceVersion,
	}, nil
}
