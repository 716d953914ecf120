package k8s

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/che-incubator/dashboard-backend/model"

	"github.com/kevinburke/ssh_config"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	sshPrivateKeyField = "dwo_ssh_key"
	sshPublicKeyField  = "dwo_ssh_key.pub"
	sshConfigField     = "ssh_config"
	sshPassphraseField = "passphrase"

	sshMountPath = "/etc/ssh/"

	// DefaultSSHConfig points every host at the mounted key.
	DefaultSSHConfig = "host *\n  IdentityFile " + sshMountPath + sshPrivateKeyField + "\n  StrictHostKeyChecking = no\n"
)

var sshKeyLabels = map[string]string{
	model.LabelMountToDevWorkspace: "true",
	model.LabelWatchSecret:         "true",
}

var sshKeyAnnotations = map[string]string{
	model.AnnoMountAs:   model.MountAsSubpath,
	model.AnnoMountPath: sshMountPath,
}

// SshKey is what the dashboard sees of a stored key; the private half never
// leaves the cluster.
type SshKey struct {
	Name              string    `json:"name"`
	KeyPub            string    `json:"keyPub"`
	CreationTimestamp time.Time `json:"creationTimestamp"`
}

// NewSshKey carries base64 encoded key material. SshConfig is plain text and
// defaults to DefaultSSHConfig.
type NewSshKey struct {
	Name       string `json:"name"`
	Key        string `json:"key"`
	KeyPub     string `json:"keyPub"`
	Passphrase string `json:"passphrase,omitempty"`
	SshConfig  string `json:"sshConfig,omitempty"`
}

func isSshKeySecret(s *corev1.Secret) bool {
	if !hasAll(s.Labels, sshKeyLabels) || !hasAll(s.Annotations, sshKeyAnnotations) {
		return false
	}
	for _, field := range []string{sshPrivateKeyField, sshPublicKeyField, sshConfigField} {
		if _, ok := s.Data[field]; !ok {
			return false
		}
	}
	return true
}

func toSshKey(s *corev1.Secret) SshKey {
	return SshKey{
		Name:              s.Name,
		KeyPub:            base64.StdEncoding.EncodeToString(s.Data[sshPublicKeyField]),
		CreationTimestamp: s.CreationTimestamp.UTC(),
	}
}

func (c *Client) ListSshKeys(ctx context.Context, ns string) ([]SshKey, error) {
	if err := validateNamespace(LabelSshKeys, ns); err != nil {
		return nil, err
	}
	list := &corev1.SecretList{}
	err := c.Ctrl.List(ctx, list, client.InNamespace(ns), client.MatchingLabels(sshKeyLabels))
	if observe("list_ssh_keys", err) != nil {
		return nil, createError(err, LabelSshKeys, "unable to list ssh keys")
	}
	keys := []SshKey{}
	for i := range list.Items {
		if isSshKeySecret(&list.Items[i]) {
			keys = append(keys, toSshKey(&list.Items[i]))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys, nil
}

func (c *Client) AddSshKey(ctx context.Context, ns string, key NewSshKey) (*SshKey, error) {
	if err := validateNamespace(LabelSshKeys, ns); err != nil {
		return nil, err
	}
	private, public, err := validateSshKey(key)
	if err != nil {
		return nil, err
	}
	if key.SshConfig == "" {
		key.SshConfig = DefaultSSHConfig
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:        key.Name,
			Namespace:   ns,
			Labels:      copyMap(sshKeyLabels),
			Annotations: copyMap(sshKeyAnnotations),
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			sshPrivateKeyField: private,
			sshPublicKeyField:  public,
			sshConfigField:     []byte(key.SshConfig),
		},
	}
	if key.Passphrase != "" {
		secret.Data[sshPassphraseField] = []byte(key.Passphrase)
	}

	if err := observe("create_ssh_key", c.Ctrl.Create(ctx, secret)); err != nil {
		return nil, createError(err, LabelSshKeys, "unable to add ssh key "+key.Name)
	}
	log.Info().Str("namespace", ns).Str("name", key.Name).Msg("ssh key added")
	out := toSshKey(secret)
	return &out, nil
}

// GenerateSshKey creates an ed25519 key pair server-side and stores it.
func (c *Client) GenerateSshKey(ctx context.Context, ns, name string) (*SshKey, error) {
	key, err := generateSshKey(name)
	if err != nil {
		return nil, createError(err, LabelSshKeys, "unable to generate ssh key")
	}
	return c.AddSshKey(ctx, ns, *key)
}

func generateSshKey(name string) (*NewSshKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	block, err := ssh.MarshalPrivateKey(priv, name)
	if err != nil {
		return nil, err
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &NewSshKey{
		Name:   name,
		Key:    base64.StdEncoding.EncodeToString(pem.EncodeToMemory(block)),
		KeyPub: base64.StdEncoding.EncodeToString(ssh.MarshalAuthorizedKey(sshPub)),
	}, nil
}

func (c *Client) DeleteSshKey(ctx context.Context, ns, name string) error {
	if err := validateNamespace(LabelSshKeys, ns); err != nil {
		return err
	}
	secret := &corev1.Secret{}
	if err := observe("get_ssh_key", c.Ctrl.Get(ctx, objectKey(ns, name), secret)); err != nil {
		return createError(err, LabelSshKeys, "unable to find ssh key "+name)
	}
	if !isSshKeySecret(secret) {
		return notFound(LabelSshKeys, "secret %s is not an ssh key", name)
	}
	if err := observe("delete_ssh_key", c.Ctrl.Delete(ctx, secret)); err != nil {
		return createError(err, LabelSshKeys, "unable to delete ssh key "+name)
	}
	log.Info().Str("namespace", ns).Str("name", name).Msg("ssh key deleted")
	return nil
}

// validateSshKey decodes both halves and checks that they belong together.
func validateSshKey(key NewSshKey) (private, public []byte, err error) {
	if err := validateDNSSubdomain(LabelSshKeys, "name", key.Name); err != nil {
		return nil, nil, err
	}
	if key.Key == "" || key.KeyPub == "" {
		return nil, nil, invalid(LabelSshKeys, "key and keyPub are required")
	}
	if private, err = decodeBase64(LabelSshKeys, "key", key.Key); err != nil {
		return nil, nil, err
	}
	if public, err = decodeBase64(LabelSshKeys, "keyPub", key.KeyPub); err != nil {
		return nil, nil, err
	}

	var raw any
	if key.Passphrase != "" {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(private, []byte(key.Passphrase))
	} else {
		raw, err = ssh.ParseRawPrivateKey(private)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, nil, invalid(LabelSshKeys, "private key is encrypted, passphrase is required")
		}
		return nil, nil, invalid(LabelSshKeys, "unable to parse private key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(raw)
	if err != nil {
		return nil, nil, invalid(LabelSshKeys, "unsupported private key: %v", err)
	}

	pub, _, _, _, err := ssh.ParseAuthorizedKey(public)
	if err != nil {
		return nil, nil, invalid(LabelSshKeys, "unable to parse public key: %v", err)
	}
	if !bytes.Equal(pub.Marshal(), signer.PublicKey().Marshal()) {
		return nil, nil, invalid(LabelSshKeys, "public key does not match private key")
	}

	if key.SshConfig != "" {
		if _, err := ssh_config.Decode(strings.NewReader(key.SshConfig)); err != nil {
			return nil, nil, invalid(LabelSshKeys, "invalid ssh config: %v", err)
		}
	}
	return private, public, nil
}
