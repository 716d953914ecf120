package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/che-incubator/dashboard-backend/k8s"
	"github.com/che-incubator/dashboard-backend/model"
	"github.com/che-incubator/dashboard-backend/server"
	v1 "github.com/che-incubator/dashboard-backend/server/api/v1"
	"github.com/che-incubator/dashboard-backend/subscriptions"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func setupLogging() {
	level := zerolog.InfoLevel
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		if parsed, err := zerolog.ParseLevel(l); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    model.AppName,
		Usage:   "Che dashboard backend",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "dashboard backend base URL",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("DASHBOARD_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token sent to the backend",
				Sources: cli.EnvVars("DASHBOARD_TOKEN"),
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the REST and websocket server",
				Action: runServe,
			},
			{
				Name:  "watch",
				Usage: "Subscribe to a websocket channel and print its messages",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "channel", Usage: "devWorkspace, event, pod or logs", Required: true},
					&cli.StringFlag{Name: "namespace", Usage: "namespace to watch", Required: true},
					&cli.StringFlag{Name: "pod", Usage: "pod name for the logs channel"},
					&cli.DurationFlag{Name: "reconnect-delay", Usage: "delay before reconnecting", Value: 3 * time.Second},
				},
				Action: runWatch,
			},
			{
				Name:  "workspaces",
				Usage: "Manage DevWorkspaces through a running backend",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "namespace", Usage: "user namespace", Required: true},
				},
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List DevWorkspaces",
						Action: runWorkspacesList,
					},
					{
						Name:      "start",
						Usage:     "Start a DevWorkspace",
						ArgsUsage: "<name>",
						Action:    setStarted(true),
					},
					{
						Name:      "stop",
						Usage:     "Stop a DevWorkspace",
						ArgsUsage: "<name>",
						Action:    setStarted(false),
					},
					{
						Name:      "create",
						Usage:     "Create a DevWorkspace from a YAML or JSON manifest",
						ArgsUsage: "<file>",
						Action:    runWorkspacesCreate,
					},
				},
			},
			{
				Name:  "namespace",
				Usage: "Show or provision the user namespace",
				Commands: []*cli.Command{
					{Name: "list", Usage: "List the user namespace", Action: runNamespaceList},
					{Name: "provision", Usage: "Provision the user namespace", Action: runNamespaceProvision},
				},
			},
			{
				Name:   "editors",
				Usage:  "List the editors offered by the backend",
				Action: runEditorsList,
			},
			{
				Name:  "ssh-keys",
				Usage: "Manage SSH keys stored in the user namespace",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "namespace", Usage: "user namespace", Required: true},
				},
				Commands: []*cli.Command{
					{Name: "list", Usage: "List SSH keys", Action: runSshKeysList},
					{
						Name:  "add",
						Usage: "Upload an SSH key pair",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Usage: "key name", Required: true},
							&cli.StringFlag{Name: "key", Usage: "private key file", Required: true},
							&cli.StringFlag{Name: "pub", Usage: "public key file", Required: true},
						},
						Action: runSshKeysAdd,
					},
					{Name: "delete", Usage: "Delete an SSH key", ArgsUsage: "<name>", Action: runSshKeysDelete},
				},
			},
			{
				Name:      "trust",
				Usage:     "Add a trusted source; \"*\" trusts everything",
				ArgsUsage: "<source>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "namespace", Usage: "user namespace", Required: true},
				},
				Action: runTrust,
			},
		},
	}
}

func runServe(ctx context.Context, _ *cli.Command) error {
	log.Info().Str("version", version).Str("commit", commit).Msg("starting dashboard backend")

	cfg, err := env.ParseAs[model.ServerConfig]()
	if err != nil {
		return fmt.Errorf("parse server config: %w", err)
	}

	restCfg, err := k8s.LoadConfig(cfg.Kubeconfig)
	if err != nil {
		return err
	}
	clients, err := k8s.NewProvider(restCfg, cfg.LocalRun)
	if err != nil {
		return err
	}

	if err := server.New(&cfg, clients, version, commit).Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("shutting down")
	return nil
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	channel := cmd.String("channel")
	params := model.SubscribeParams{Namespace: cmd.String("namespace"), PodName: cmd.String("pod")}
	if channel == model.ChannelLogs && params.PodName == "" {
		return fmt.Errorf("--pod is required for the %s channel", model.ChannelLogs)
	}

	client, err := subscriptions.NewWebSocketClient(model.ClientConfig{
		URL:            cmd.String("url"),
		Token:          cmd.String("token"),
		ReconnectDelay: cmd.Duration("reconnect-delay"),
	})
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	client.AddListener(channel, func(msg model.EventMessage) {
		if msg.Logs != "" {
			fmt.Fprint(os.Stdout, msg.Logs)
			return
		}
		_ = out.Encode(msg)
	})
	if err := client.Subscribe(channel, params); err != nil {
		return err
	}
	return client.Run(ctx)
}

func runWorkspacesList(ctx context.Context, cmd *cli.Command) error {
	client := v1.NewClient(cmd.String("url"), cmd.String("token"))
	list, err := client.ListDevWorkspaces(ctx, cmd.String("namespace"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTARTED\tPHASE\tURL")
	for _, ws := range list.Items {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", ws.Name, ws.Spec.Started, ws.Status.Phase, ws.Status.MainUrl)
	}
	return w.Flush()
}

func setStarted(started bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		name := cmd.Args().First()
		if name == "" {
			return fmt.Errorf("workspace name required")
		}
		client := v1.NewClient(cmd.String("url"), cmd.String("token"))
		ws, err := client.SetStarted(ctx, cmd.String("namespace"), name, started)
		if err != nil {
			return err
		}
		log.Info().Str("workspace", ws.Name).Bool("started", ws.Spec.Started).Msg("workspace updated")
		return nil
	}
}
