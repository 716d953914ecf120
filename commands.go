package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"text/tabwriter"

	v1 "github.com/che-incubator/dashboard-backend/server/api/v1"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"sigs.k8s.io/yaml"
)

func apiClient(cmd *cli.Command) *v1.Client {
	return v1.NewClient(cmd.String("url"), cmd.String("token"))
}

func firstArg(cmd *cli.Command, what string) (string, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return "", fmt.Errorf("%s required", what)
	}
	return arg, nil
}

func runWorkspacesCreate(ctx context.Context, cmd *cli.Command) error {
	file, err := firstArg(cmd, "manifest file")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	workspace := &dw.DevWorkspace{}
	if err := yaml.Unmarshal(data, workspace); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	created, err := apiClient(cmd).CreateDevWorkspace(ctx, cmd.String("namespace"), workspace)
	if err != nil {
		return err
	}
	log.Info().Str("workspace", created.Name).Str("namespace", created.Namespace).Msg("workspace created")
	return nil
}

func runNamespaceList(ctx context.Context, cmd *cli.Command) error {
	namespaces, err := apiClient(cmd).ListNamespaces(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPHASE\tDEFAULT")
	for _, ns := range namespaces {
		fmt.Fprintf(w, "%s\t%s\t%t\n", ns.Name, ns.Attributes.Phase, ns.Attributes.Default)
	}
	return w.Flush()
}

func runNamespaceProvision(ctx context.Context, cmd *cli.Command) error {
	ns, err := apiClient(cmd).ProvisionNamespace(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("namespace", ns.Name).Msg("namespace ready")
	return nil
}

func runEditorsList(ctx context.Context, cmd *cli.Command) error {
	editors, err := apiClient(cmd).ListEditors(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPUBLISHER\tVERSION")
	for _, e := range editors {
		meta, _ := e["metadata"].(map[string]any)
		attrs, _ := meta["attributes"].(map[string]any)
		fmt.Fprintf(w, "%v\t%v\t%v\n", meta["name"], attrs["publisher"], attrs["version"])
	}
	return w.Flush()
}

func runSshKeysList(ctx context.Context, cmd *cli.Command) error {
	keys, err := apiClient(cmd).ListSshKeys(ctx, cmd.String("namespace"))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k.Name, k.CreationTimestamp.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runSshKeysAdd(ctx context.Context, cmd *cli.Command) error {
	private, err := os.ReadFile(cmd.String("key"))
	if err != nil {
		return err
	}
	public, err := os.ReadFile(cmd.String("pub"))
	if err != nil {
		return err
	}
	key, err := apiClient(cmd).AddSshKey(ctx, cmd.String("namespace"), v1.NewSshKey{
		Name:   cmd.String("name"),
		Key:    base64.StdEncoding.EncodeToString(private),
		KeyPub: base64.StdEncoding.EncodeToString(public),
	})
	if err != nil {
		return err
	}
	log.Info().Str("key", key.Name).Msg("ssh key added")
	return nil
}

func runSshKeysDelete(ctx context.Context, cmd *cli.Command) error {
	name, err := firstArg(cmd, "key name")
	if err != nil {
		return err
	}
	return apiClient(cmd).DeleteSshKey(ctx, cmd.String("namespace"), name)
}

func runTrust(ctx context.Context, cmd *cli.Command) error {
	source, err := firstArg(cmd, "source")
	if err != nil {
		return err
	}
	if err := apiClient(cmd).AddTrustedSource(ctx, cmd.String("namespace"), source); err != nil {
		return err
	}
	log.Info().Str("source", source).Msg("source trusted")
	return nil
}
