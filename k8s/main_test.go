package k8s

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"k8s.io/apimachinery/pkg/runtime"
	kubefake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

const testNamespace = "user-che"

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func newTestClient(objs ...client.Object) *Client {
	return &Client{
		Ctrl: fake.NewClientBuilder().WithScheme(Scheme).WithObjects(objs...).Build(),
		Kube: kubefake.NewSimpleClientset(),
	}
}

func newTestClientWithKube(kubeObjs []runtime.Object, objs ...client.Object) *Client {
	return &Client{
		Ctrl: fake.NewClientBuilder().WithScheme(Scheme).WithObjects(objs...).Build(),
		Kube: kubefake.NewSimpleClientset(kubeObjs...),
	}
}
