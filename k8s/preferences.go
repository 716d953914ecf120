package k8s

import (
	"context"
	"slices"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	PreferencesConfigMapName = "workspace-preferences-configmap"
	skipAuthorisationField   = "skip-authorisation"
	trustedSourcesField      = "trusted-sources"

	// TrustAllSources marks every source as trusted.
	TrustAllSources = "*"
)

// TrustedSources is either "*" or an explicit list; exactly one of All and
// URLs is meaningful.
type TrustedSources struct {
	All  bool
	URLs []string
}

type Preferences struct {
	SkipAuthorisation []string        `json:"skip-authorisation"`
	TrustedSources    *TrustedSources `json:"trusted-sources,omitempty"`
}

func (c *Client) GetPreferences(ctx context.Context, ns string) (*Preferences, error) {
	if err := validateNamespace(LabelPreferences, ns); err != nil {
		return nil, err
	}
	cm, err := c.getPreferencesConfigMap(ctx, ns)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return &Preferences{SkipAuthorisation: []string{}}, nil
	}
	return toPreferences(cm), nil
}

// RemoveProviderFromSkipAuthorizationList drops provider from the list of git
// providers the user chose not to authorise.
func (c *Client) RemoveProviderFromSkipAuthorizationList(ctx context.Context, ns, provider string) error {
	if err := validateNamespace(LabelPreferences, ns); err != nil {
		return err
	}
	if provider == "" {
		return invalid(LabelPreferences, "provider is required")
	}
	return c.updatePreferences(ctx, ns, func(data map[string]string) bool {
		providers := parseBracketList(data[skipAuthorisationField])
		kept := slices.DeleteFunc(slices.Clone(providers), func(p string) bool { return p == provider })
		if len(kept) == len(providers) {
			return false
		}
		data[skipAuthorisationField] = formatBracketList(kept)
		return true
	})
}

// AddTrustedSource records source as trusted. "*" replaces any list and
// nothing can be added to "*".
func (c *Client) AddTrustedSource(ctx context.Context, ns, source string) error {
	if err := validateNamespace(LabelPreferences, ns); err != nil {
		return err
	}
	if source == "" {
		return invalid(LabelPreferences, "trusted source is required")
	}
	return c.updatePreferences(ctx, ns, func(data map[string]string) bool {
		current := data[trustedSourcesField]
		if current == TrustAllSources {
			return false
		}
		if source == TrustAllSources {
			data[trustedSourcesField] = TrustAllSources
			return true
		}
		sources := parseBracketList(current)
		if slices.Contains(sources, source) {
			return false
		}
		data[trustedSourcesField] = formatBracketList(append(sources, source))
		return true
	})
}

func (c *Client) RemoveTrustedSources(ctx context.Context, ns string) error {
	if err := validateNamespace(LabelPreferences, ns); err != nil {
		return err
	}
	return c.updatePreferences(ctx, ns, func(data map[string]string) bool {
		if _, ok := data[trustedSourcesField]; !ok {
			return false
		}
		delete(data, trustedSourcesField)
		return true
	})
}

// getPreferencesConfigMap returns nil, nil when the ConfigMap does not exist.
func (c *Client) getPreferencesConfigMap(ctx context.Context, ns string) (*corev1.ConfigMap, error) {
	cm := &corev1.ConfigMap{}
	err := c.Ctrl.Get(ctx, objectKey(ns, PreferencesConfigMapName), cm)
	if apierrors.IsNotFound(err) {
		observe("get_preferences", nil)
		return nil, nil
	}
	if observe("get_preferences", err) != nil {
		return nil, createError(err, LabelPreferences, "unable to get devworkspace preferences")
	}
	return cm, nil
}

// updatePreferences applies mutate to the ConfigMap data and writes it back
// when mutate reports a change, creating the ConfigMap if needed.
func (c *Client) updatePreferences(ctx context.Context, ns string, mutate func(map[string]string) bool) error {
	cm, err := c.getPreferencesConfigMap(ctx, ns)
	if err != nil {
		return err
	}
	if cm == nil {
		data := map[string]string{}
		if !mutate(data) {
			return nil
		}
		cm = &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: PreferencesConfigMapName, Namespace: ns},
			Data:       data,
		}
		if err := observe("create_preferences", c.Ctrl.Create(ctx, cm)); err != nil {
			return createError(err, LabelPreferences, "unable to create devworkspace preferences")
		}
		return nil
	}

	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	if !mutate(cm.Data) {
		return nil
	}
	if err := observe("update_preferences", c.Ctrl.Update(ctx, cm)); err != nil {
		return createError(err, LabelPreferences, "unable to update devworkspace preferences")
	}
	return nil
}

func toPreferences(cm *corev1.ConfigMap) *Preferences {
	prefs := &Preferences{SkipAuthorisation: parseBracketList(cm.Data[skipAuthorisationField])}
	if prefs.SkipAuthorisation == nil {
		prefs.SkipAuthorisation = []string{}
	}
	if raw, ok := cm.Data[trustedSourcesField]; ok {
		if raw == TrustAllSources {
			prefs.TrustedSources = &TrustedSources{All: true}
		} else {
			prefs.TrustedSources = &TrustedSources{URLs: parseBracketList(raw)}
		}
	}
	return prefs
}
