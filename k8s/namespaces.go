package k8s

import (
	"context"
	"regexp"
	"strings"

	"github.com/che-incubator/dashboard-backend/model"

	"github.com/rs/zerolog/log"
	authenticationv1 "k8s.io/api/authentication/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const UserProfileSecretName = "user-profile"

type UserInfo struct {
	Username string `json:"username"`
	UID      string `json:"uid"`
}

type NamespaceAttributes struct {
	Phase   string `json:"phase"`
	Default bool   `json:"default"`
}

type KubeNamespace struct {
	Name       string              `json:"name"`
	Attributes NamespaceAttributes `json:"attributes"`
}

type UserProfile struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

var namespaceLabels = map[string]string{
	model.LabelComponent: model.ComponentWorkspacesNamespace,
	model.LabelPartOf:    model.PartOfChe,
}

// WhoAmI resolves the identity behind the client's token.
func (c *Client) WhoAmI(ctx context.Context) (*UserInfo, error) {
	review, err := c.Kube.AuthenticationV1().SelfSubjectReviews().Create(ctx, &authenticationv1.SelfSubjectReview{}, metav1.CreateOptions{})
	if observe("self_subject_review", err) != nil {
		return nil, createError(err, LabelNamespace, "unable to resolve the current user")
	}
	info := review.Status.UserInfo
	if info.Username == "" {
		return nil, createError(nil, LabelNamespace, "the current user has no name")
	}
	return &UserInfo{Username: info.Username, UID: info.UID}, nil
}

var invalidNamespaceChars = regexp.MustCompile(`[^a-z0-9-]+`)

// NamespaceFor renders template for user. The result is a valid DNS-1123 label.
func NamespaceFor(template string, user *UserInfo) string {
	name := strings.NewReplacer("<username>", user.Username, "<userid>", user.UID).Replace(template)
	name = invalidNamespaceChars.ReplaceAllString(strings.ToLower(name), "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return strings.Trim(name, "-")
}

// ProvisionNamespace makes sure the user's workspace namespace exists. The
// namespace is created with admin, the backend's own identity.
func ProvisionNamespace(ctx context.Context, user, admin *Client, template string) (*KubeNamespace, error) {
	info, err := user.WhoAmI(ctx)
	if err != nil {
		return nil, err
	}
	name := NamespaceFor(template, info)
	if err := validateDNSLabel(LabelNamespace, "namespace", name); err != nil {
		return nil, err
	}

	ns := &corev1.Namespace{}
	err = admin.Ctrl.Get(ctx, objectKey("", name), ns)
	switch {
	case err == nil:
		observe("get_namespace", nil)
	case apierrors.IsNotFound(err):
		observe("get_namespace", nil)
		labels := copyMap(namespaceLabels)
		ns = &corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name:        name,
				Labels:      labels,
				Annotations: map[string]string{model.AnnoUsername: info.Username},
			},
		}
		if err := observe("create_namespace", admin.Ctrl.Create(ctx, ns)); err != nil {
			return nil, createError(err, LabelNamespace, "unable to provision namespace "+name)
		}
		log.Info().Str("namespace", name).Str("user", info.Username).Msg("namespace provisioned")
	default:
		observe("get_namespace", err)
		return nil, createError(err, LabelNamespace, "unable to get namespace "+name)
	}
	return toKubeNamespace(ns), nil
}

// ListNamespaces returns the user's namespace if it was already provisioned.
func ListNamespaces(ctx context.Context, user, admin *Client, template string) ([]KubeNamespace, error) {
	info, err := user.WhoAmI(ctx)
	if err != nil {
		return nil, err
	}
	ns := &corev1.Namespace{}
	err = admin.Ctrl.Get(ctx, objectKey("", NamespaceFor(template, info)), ns)
	if apierrors.IsNotFound(err) {
		observe("get_namespace", nil)
		return []KubeNamespace{}, nil
	}
	if observe("get_namespace", err) != nil {
		return nil, createError(err, LabelNamespace, "unable to list namespaces")
	}
	return []KubeNamespace{*toKubeNamespace(ns)}, nil
}

func toKubeNamespace(ns *corev1.Namespace) *KubeNamespace {
	phase := string(ns.Status.Phase)
	if phase == "" {
		phase = string(corev1.NamespaceActive)
	}
	return &KubeNamespace{Name: ns.Name, Attributes: NamespaceAttributes{Phase: phase, Default: true}}
}

func (c *Client) GetUserProfile(ctx context.Context, ns string) (*UserProfile, error) {
	if err := validateNamespace(LabelUserProfile, ns); err != nil {
		return nil, err
	}
	secret := &corev1.Secret{}
	if err := observe("get_user_profile", c.Ctrl.Get(ctx, objectKey(ns, UserProfileSecretName), secret)); err != nil {
		return nil, createError(err, LabelUserProfile, "unable to get user profile")
	}
	username := string(secret.Data["name"])
	if u := string(secret.Data["username"]); u != "" {
		username = u
	}
	return &UserProfile{Email: string(secret.Data["email"]), Username: username}, nil
}
