package k8s

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"
)

const (
	coreVersions  = `{"kind":"APIVersions","versions":["v1"],"serverAddressByClientCIDRs":[{"clientCIDR":"0.0.0.0/0","serverAddress":"127.0.0.1"}]}`
	apiGroups     = `{"kind":"APIGroupList","apiVersion":"v1","groups":[]}`
	coreResources = `{"kind":"APIResourceList","groupVersion":"v1","resources":[` +
		`{"name":"configmaps","singularName":"configmap","namespaced":true,"kind":"ConfigMap","verbs":["get","list","watch","create","update","patch","delete"]}]}`
	notFoundStatus = `{"kind":"Status","apiVersion":"v1","status":"Failure","reason":"NotFound","code":404}`
)

func TestProviderSharesDiscovery(t *testing.T) {
	var discovery atomic.Int32
	requests := make(chan *http.Request, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api":
			discovery.Add(1)
			fmt.Fprint(w, coreVersions)
		case "/apis":
			discovery.Add(1)
			fmt.Fprint(w, apiGroups)
		case "/api/v1":
			discovery.Add(1)
			fmt.Fprint(w, coreResources)
		default:
			requests <- r
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, notFoundStatus)
		}
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(&rest.Config{Host: srv.URL}, false)
	require.NoError(t, err)

	var afterFirst int32
	for i, token := range []string{"alice", "bob", "carol"} {
		c, err := p.ForToken(token)
		require.NoError(t, err)

		prefs, err := c.GetPreferences(context.Background(), testNamespace)
		require.NoError(t, err)
		assert.Empty(t, prefs.SkipAuthorisation)

		r := <-requests
		assert.True(t, strings.HasPrefix(r.URL.Path, "/api/v1/namespaces/"+testNamespace+"/configmaps/"), r.URL.Path)
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))

		if i == 0 {
			afterFirst = discovery.Load()
			assert.Positive(t, afterFirst)
		}
	}
	assert.Equal(t, afterFirst, discovery.Load())
}

func TestProviderRequiresToken(t *testing.T) {
	p, err := NewProvider(&rest.Config{Host: "https://127.0.0.1:6443"}, false)
	require.NoError(t, err)
	_, err = p.ForToken("")
	assert.ErrorIs(t, err, ErrNoToken)

	local, err := NewProvider(&rest.Config{Host: "https://127.0.0.1:6443"}, true)
	require.NoError(t, err)
	c, err := local.ForToken("")
	require.NoError(t, err)
	assert.Same(t, local.ServiceAccount(), c)
}
