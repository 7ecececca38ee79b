// cli — команды adminctl поверх pkg/adminclient.
package cli

import (
	"fmt"
	"os"

	"github.com/pribylovaa/go-admin-bff/internal/session"
	"github.com/pribylovaa/go-admin-bff/pkg/adminclient"
	"github.com/spf13/cobra"
)

const (
	accessCookie  = session.AccessTokenCookie
	refreshCookie = session.RefreshTokenCookie

	defaultServer = "http://localhost:3000"
)

type rootOptions struct {
	server      string
	sessionPath string
}

// app — состояние одного запуска: клиент и сессия, которую надо сохранить.
type app struct {
	opts   *rootOptions
	client *adminclient.Client
	sess   sessionFile
}

// NewRootCmd собирает дерево команд adminctl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "adminctl",
		Short: "Operator CLI for the admin dashboard backend",
		Long: `adminctl talks to the admin dashboard backend the same way the dashboard does:
through the session cookies and the authenticated proxy.

The session is stored in ~/.adminctl/session.yaml and refreshed transparently.

Examples:
  adminctl login --email admin@example.com --password secret
  adminctl whoami
  adminctl get users
  adminctl get roles 42
  adminctl delete policies 7
  adminctl logout`,
		SilenceUsage: true,
	}

	server := os.Getenv("ADMINCTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "dashboard backend URL (env ADMINCTL_SERVER)")
	root.PersistentFlags().StringVar(&opts.sessionPath, "session", defaultSessionPath(), "session file")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newGetCmd(opts),
		newDeleteCmd(opts),
	)

	return root
}

// newApp поднимает клиент и восстанавливает сессию, если она для того же сервера.
func newApp(opts *rootOptions) (*app, error) {
	sess, err := loadSession(opts.sessionPath)
	if err != nil {
		return nil, err
	}

	client, err := adminclient.New(opts.server)
	if err != nil {
		return nil, err
	}

	if sess.Server == opts.server {
		client.SetCookies(sess.cookies())
	} else {
		sess = sessionFile{Server: opts.server}
	}

	return &app{opts: opts, client: client, sess: sess}, nil
}

// persist сохраняет cookie после команды: BFF мог их ротировать.
func (a *app) persist() error {
	a.sess = a.sess.withCookies(a.client.Cookies())
	if err := saveSession(a.opts.sessionPath, a.sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
