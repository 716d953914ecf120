package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/pem"
	"net/http/httptest"
	"testing"

	"github.com/che-incubator/dashboard-backend/model"
	v1 "github.com/che-incubator/dashboard-backend/server/api/v1"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubefake "k8s.io/client-go/kubernetes/fake"
)

func sshKeyPair(t *testing.T, name string) v1.NewSshKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, name)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return v1.NewSshKey{
		Name:   name,
		Key:    base64.StdEncoding.EncodeToString(pem.EncodeToMemory(block)),
		KeyPub: base64.StdEncoding.EncodeToString(ssh.MarshalAuthorizedKey(sshPub)),
	}
}

func TestRESTClientAgainstServer(t *testing.T) {
	editor := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "editors",
			Namespace: "eclipse-che",
			Labels:    map[string]string{model.LabelComponent: model.ComponentEditorDefinition},
		},
		Data: map[string]string{"che-code.yaml": "schemaVersion: 2.2.2\nmetadata:\n  name: che-code\n  attributes:\n    publisher: che-incubator\n    version: latest\n"},
	}
	s, p := newTestServer(t, testConfig(), editor)
	p.user.Kube.(*kubefake.Clientset).PrependReactor("create", "selfsubjectreviews", selfSubjectReview("alice"))
	require.NoError(t, s.catalog.Refresh(context.Background()))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	c := v1.NewClient(srv.URL, testToken)
	ctx := context.Background()

	t.Run("namespaces", func(t *testing.T) {
		ns, err := c.ProvisionNamespace(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice-che", ns.Name)

		list, err := c.ListNamespaces(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "alice-che", list[0].Name)
	})

	t.Run("devworkspaces", func(t *testing.T) {
		created, err := c.CreateDevWorkspace(ctx, testNamespace, &dw.DevWorkspace{ObjectMeta: metav1.ObjectMeta{Name: "wksp"}})
		require.NoError(t, err)
		assert.Equal(t, "DevWorkspace", created.Kind)

		_, err = c.CreateDevWorkspace(ctx, testNamespace, &dw.DevWorkspace{ObjectMeta: metav1.ObjectMeta{Name: "wksp"}})
		assert.True(t, v1.IsConflict(err))
	})

	t.Run("ssh keys", func(t *testing.T) {
		key, err := c.AddSshKey(ctx, testNamespace, sshKeyPair(t, "git"))
		require.NoError(t, err)
		assert.Equal(t, "git", key.Name)

		keys, err := c.ListSshKeys(ctx, testNamespace)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		require.NoError(t, c.DeleteSshKey(ctx, testNamespace, "git"))
	})

	t.Run("trusted sources", func(t *testing.T) {
		require.NoError(t, c.AddTrustedSource(ctx, testNamespace, "https://github.com/eclipse-che/che-dashboard"))
		prefs, err := c.GetPreferences(ctx, testNamespace)
		require.NoError(t, err)
		require.NotNil(t, prefs.TrustedSources)
		assert.Equal(t, []string{"https://github.com/eclipse-che/che-dashboard"}, prefs.TrustedSources.URLs)
	})

	t.Run("editors", func(t *testing.T) {
		editors, err := c.ListEditors(ctx)
		require.NoError(t, err)
		require.Len(t, editors, 1)
		assert.Equal(t, "2.2.2", editors[0]["schemaVersion"])
	})
}
