package model

// Automount contract understood by the DevWorkspace Operator.
const (
	LabelMountToDevWorkspace = "controller.devfile.io/mount-to-devworkspace"
	LabelWatchSecret         = "controller.devfile.io/watch-secret"
	LabelWatchConfigMap      = "controller.devfile.io/watch-configmap"
	LabelPullSecret          = "controller.devfile.io/devworkspace_pullsecret"

	AnnoMountAs   = "controller.devfile.io/mount-as"
	AnnoMountPath = "controller.devfile.io/mount-path"

	MountAsSubpath = "subpath"
)

const (
	LabelComponent = "app.kubernetes.io/component"
	LabelPartOf    = "app.kubernetes.io/part-of"

	PartOfChe = "che.eclipse.org"

	ComponentEditorDefinition     = "editor-definition"
	ComponentGettingStartedSample = "getting-started-samples"
	ComponentWorkspacesNamespace  = "workspaces-namespace"
	ComponentPersonalAccessToken  = "scm-personal-access-token"
)

const (
	AnnoCheUserID       = "che.eclipse.org/che-userid"
	AnnoSCMProvider     = "che.eclipse.org/scm-personal-access-token-name"
	AnnoSCMURL          = "che.eclipse.org/scm-url"
	AnnoSCMOrganization = "che.eclipse.org/scm-organization"
	AnnoUsername        = "che.eclipse.org/username"
)
