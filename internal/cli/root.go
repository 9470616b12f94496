// Package cli implements the pwvault command-line surface on top of the
// vault core. Commands map 1:1 onto core operations; the package owns no
// vault logic of its own.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/pwvault/internal/backup"
	"github.com/dmitrijs2005/pwvault/internal/clipboard"
	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/config"
	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/dmitrijs2005/pwvault/internal/flagx"
	"github.com/dmitrijs2005/pwvault/internal/logging"
	"github.com/dmitrijs2005/pwvault/internal/vault"
	"github.com/spf13/cobra"
)

// Exit codes of the command-line surface.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitAuthFailed    = 2
	ExitNotFound      = 3
	ExitCorruptBackup = 4
	ExitVersionTooNew = 5
)

// App wires configuration, output, and the optional clipboard collaborator
// into the command tree.
type App struct {
	cfg  *config.Config
	out  io.Writer
	clip clipboard.Clipboard
	log  logging.Logger

	vaultPath string
}

// NewApp builds the CLI application.
func NewApp(cfg *config.Config) *App {
	return &App{
		cfg:  cfg,
		out:  os.Stdout,
		clip: clipboard.Discard,
		log:  logging.NewTextLogger(os.Stderr, slog.LevelWarn),
	}
}

// WithClipboard installs a platform clipboard collaborator.
func (a *App) WithClipboard(c clipboard.Clipboard) *App {
	a.clip = c
	return a
}

// Execute runs the command tree and maps the error taxonomy onto exit codes.
// The config-file flags were already consumed by the config loader and are
// hidden from the command parser.
func (a *App) Execute(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(flagx.StripArgs(args, []string{"-c", "-config"}))

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps an error to the documented process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, common.ErrAuthFailed), errors.Is(err, common.ErrLocked):
		return ExitAuthFailed
	case errors.Is(err, common.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, common.ErrCorruptBackup):
		return ExitCorruptBackup
	case errors.Is(err, common.ErrVersionTooNew):
		return ExitVersionTooNew
	default:
		return ExitFailure
	}
}

func (a *App) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pwvault",
		Short:         "Local offline password and secrets vault",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.vaultPath, "vault", a.cfg.VaultPath, "path to the vault database")

	root.AddCommand(
		a.newInitCmd(),
		a.newAddCmd(),
		a.newGetCmd(),
		a.newListCmd(),
		a.newUpdateCmd(),
		a.newDeleteCmd(),
		a.newGenerateCmd(),
		a.newAddSecretCmd(),
		a.newListSecretsCmd(),
		a.newGetSecretCmd(),
		a.newUpdateSecretCmd(),
		a.newDeleteSecretCmd(),
		a.newListTemplatesCmd(),
		a.newExpiringSecretsCmd(),
		a.newSecretsStatsCmd(),
		a.newBackupCmd(),
		a.newRestoreCmd(),
		a.newVerifyBackupCmd(),
	)
	return root
}

// openVault opens the vault file without unlocking it.
func (a *App) openVault(ctx context.Context) (*vault.Vault, error) {
	return vault.Open(ctx, a.vaultPath,
		vault.WithIdleTimeout(a.cfg.IdleTimeout),
		vault.WithKDFParams(a.cfg.KDFParams()),
		vault.WithLogger(a.log),
	)
}

// openUnlocked opens the vault and unlocks it with the prompted master
// password.
func (a *App) openUnlocked(ctx context.Context) (*vault.Vault, error) {
	v, err := a.openVault(ctx)
	if err != nil {
		return nil, err
	}
	if !v.Initialized() {
		_ = v.Close()
		return nil, fmt.Errorf("vault not initialized (run 'pwvault init'): %w", common.ErrAuthFailed)
	}

	password, err := GetPassword("Master password: ", a.out)
	if err != nil {
		_ = v.Close()
		return nil, err
	}
	defer cryptox.WipeBytes(password)

	if err := v.Unlock(ctx, password); err != nil {
		_ = v.Close()
		return nil, err
	}
	return v, nil
}

func (a *App) backupManager(v *vault.Vault) *backup.Manager {
	return backup.NewManager(v, backup.WithLogger(a.log))
}
