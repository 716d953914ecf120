package k8s

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/che-incubator/dashboard-backend/model"

	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	tokenSecretPrefix = "personal-access-token-"
	tokenDataField    = "token"

	// DummyTokenData replaces stored tokens in every response. Sending it back
	// on replace keeps the stored token.
	DummyTokenData = "ZHVtbXktcGVyc29uYWwtYWNjZXNzLXRva2Vu" // base64("dummy-personal-access-token")
)

var tokenLabels = map[string]string{
	model.LabelComponent: model.ComponentPersonalAccessToken,
	model.LabelPartOf:    model.PartOfChe,
}

var gitProviders = map[string]bool{
	"github":           true,
	"gitlab":           true,
	"bitbucket-server": true,
	"azure-devops":     true,
}

type PersonalAccessToken struct {
	CheUserID               string `json:"cheUserId"`
	TokenName               string `json:"tokenName"`
	TokenData               string `json:"tokenData"`
	GitProvider             string `json:"gitProvider"`
	GitProviderEndpoint     string `json:"gitProviderEndpoint"`
	GitProviderOrganization string `json:"gitProviderOrganization,omitempty"`
}

func tokenSecretName(tokenName string) string { return tokenSecretPrefix + tokenName }

func isTokenSecret(s *corev1.Secret) bool {
	if !hasAll(s.Labels, tokenLabels) || !strings.HasPrefix(s.Name, tokenSecretPrefix) {
		return false
	}
	_, ok := s.Data[tokenDataField]
	return ok
}

func toToken(s *corev1.Secret) PersonalAccessToken {
	return PersonalAccessToken{
		CheUserID:               s.Annotations[model.AnnoCheUserID],
		TokenName:               strings.TrimPrefix(s.Name, tokenSecretPrefix),
		TokenData:               DummyTokenData,
		GitProvider:             s.Annotations[model.AnnoSCMProvider],
		GitProviderEndpoint:     s.Annotations[model.AnnoSCMURL],
		GitProviderOrganization: s.Annotations[model.AnnoSCMOrganization],
	}
}

func toTokenSecret(ns string, token PersonalAccessToken, data []byte) *corev1.Secret {
	annotations := map[string]string{
		model.AnnoCheUserID:   token.CheUserID,
		model.AnnoSCMProvider: token.GitProvider,
		model.AnnoSCMURL:      token.GitProviderEndpoint,
	}
	if token.GitProvider == "azure-devops" {
		annotations[model.AnnoSCMOrganization] = token.GitProviderOrganization
	}
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:        tokenSecretName(token.TokenName),
			Namespace:   ns,
			Labels:      copyMap(tokenLabels),
			Annotations: annotations,
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{tokenDataField: data},
	}
}

func validateToken(token PersonalAccessToken) error {
	if err := validateDNSLabel(LabelToken, "tokenName", token.TokenName); err != nil {
		return err
	}
	if !gitProviders[token.GitProvider] {
		return invalid(LabelToken, "unsupported git provider %q", token.GitProvider)
	}
	u, err := url.Parse(token.GitProviderEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(LabelToken, "gitProviderEndpoint must be an absolute http(s) URL")
	}
	if token.GitProvider == "azure-devops" && token.GitProviderOrganization == "" {
		return invalid(LabelToken, "gitProviderOrganization is required for azure-devops")
	}
	if token.TokenData == "" {
		return invalid(LabelToken, "tokenData is required")
	}
	return nil
}

func (c *Client) ListTokens(ctx context.Context, ns string) ([]PersonalAccessToken, error) {
	if err := validateNamespace(LabelToken, ns); err != nil {
		return nil, err
	}
	list := &corev1.SecretList{}
	err := c.Ctrl.List(ctx, list, client.InNamespace(ns), client.MatchingLabels(tokenLabels))
	if observe("list_tokens", err) != nil {
		return nil, createError(err, LabelToken, "unable to list personal access tokens")
	}
	tokens := []PersonalAccessToken{}
	for i := range list.Items {
		if isTokenSecret(&list.Items[i]) {
			tokens = append(tokens, toToken(&list.Items[i]))
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].TokenName < tokens[j].TokenName })
	return tokens, nil
}

func (c *Client) CreateToken(ctx context.Context, ns string, token PersonalAccessToken) (*PersonalAccessToken, error) {
	if err := validateNamespace(LabelToken, ns); err != nil {
		return nil, err
	}
	if err := validateToken(token); err != nil {
		return nil, err
	}
	if token.TokenData == DummyTokenData {
		return nil, invalid(LabelToken, "tokenData is required")
	}
	data, err := decodeBase64(LabelToken, "tokenData", token.TokenData)
	if err != nil {
		return nil, err
	}
	secret := toTokenSecret(ns, token, data)
	if err := observe("create_token", c.Ctrl.Create(ctx, secret)); err != nil {
		return nil, createError(err, LabelToken, "unable to add personal access token "+token.TokenName)
	}
	log.Info().Str("namespace", ns).Str("token", token.TokenName).Str("provider", token.GitProvider).Msg("personal access token added")
	out := toToken(secret)
	return &out, nil
}

// ReplaceToken overwrites an existing token. Metadata is always replaced; the
// secret value only when TokenData is not the dummy placeholder.
func (c *Client) ReplaceToken(ctx context.Context, ns string, token PersonalAccessToken) (*PersonalAccessToken, error) {
	if err := validateNamespace(LabelToken, ns); err != nil {
		return nil, err
	}
	if err := validateToken(token); err != nil {
		return nil, err
	}
	existing := &corev1.Secret{}
	err := c.Ctrl.Get(ctx, objectKey(ns, tokenSecretName(token.TokenName)), existing)
	if observe("get_token", err) != nil {
		return nil, createError(err, LabelToken, "unable to find personal access token "+token.TokenName)
	}
	if !isTokenSecret(existing) {
		return nil, notFound(LabelToken, "secret %s is not a personal access token", existing.Name)
	}

	data := existing.Data[tokenDataField]
	if token.TokenData != DummyTokenData {
		if data, err = decodeBase64(LabelToken, "tokenData", token.TokenData); err != nil {
			return nil, err
		}
	}
	updated := toTokenSecret(ns, token, data)
	updated.ResourceVersion = existing.ResourceVersion
	if err := observe("update_token", c.Ctrl.Update(ctx, updated)); err != nil {
		return nil, createError(err, LabelToken, "unable to replace personal access token "+token.TokenName)
	}
	out := toToken(updated)
	return &out, nil
}

func (c *Client) DeleteToken(ctx context.Context, ns, tokenName string) error {
	if err := validateNamespace(LabelToken, ns); err != nil {
		return err
	}
	secret := &corev1.Secret{}
	if err := observe("get_token", c.Ctrl.Get(ctx, objectKey(ns, tokenSecretName(tokenName)), secret)); err != nil {
		return createError(err, LabelToken, "unable to find personal access token "+tokenName)
	}
	if !isTokenSecret(secret) {
		return notFound(LabelToken, "secret %s is not a personal access token", secret.Name)
	}
	if err := observe("delete_token", c.Ctrl.Delete(ctx, secret)); err != nil {
		return createError(err, LabelToken, "unable to delete personal access token "+tokenName)
	}
	log.Info().Str("namespace", ns).Str("token", tokenName).Msg("personal access token deleted")
	return nil
}
