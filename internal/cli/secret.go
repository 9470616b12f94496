package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/dmitrijs2005/pwvault/internal/vault"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
	"github.com/spf13/cobra"
)

// parseSecretData builds the typed payload from --type plus --data.
func parseSecretData(secretType string, dataJSON string) (models.SecretData, error) {
	env := models.Envelope{
		Type: models.SecretType(secretType),
		Data: json.RawMessage(dataJSON),
	}
	data, err := env.Unwrap()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func parseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiry %q (want RFC3339)", common.ErrInvalidConfig, s)
	}
	return &t, nil
}

func (a *App) newAddSecretCmd() *cobra.Command {
	var (
		name        string
		description string
		secretType  string
		dataJSON    string
		tags        []string
		environment string
		project     string
		favorite    bool
		expires     string
	)

	cmd := &cobra.Command{
		Use:   "add-secret",
		Short: "Add a typed secret",
		Long: `Add a typed secret. The payload is passed as JSON matching the secret
type, e.g.:

  pwvault add-secret --name prod-db --type database_connection \
    --data '{"engine":"postgres","connection_string":"postgres://...","ssl":true}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseSecretData(secretType, dataJSON)
			if err != nil {
				return err
			}
			expiresAt, err := parseExpiry(expires)
			if err != nil {
				return err
			}

			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			secret, err := v.Store().AddSecret(cmd.Context(), vault.NewSecretParams{
				Name:        name,
				Description: description,
				Data:        data,
				Tags:        tags,
				Environment: environment,
				Project:     project,
				Favorite:    favorite,
				ExpiresAt:   expiresAt,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added secret %s (%s)\n", secret.Name, secret.Id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&secretType, "type", "", "secret type discriminator")
	cmd.Flags().StringVar(&dataJSON, "data", "", "JSON payload for the secret type")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	cmd.Flags().StringVar(&environment, "environment", "", "environment (dev/staging/prod)")
	cmd.Flags().StringVar(&project, "project", "", "project name")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "mark as favorite")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry timestamp (RFC3339)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (a *App) newListSecretsCmd() *cobra.Command {
	var (
		query       string
		secretType  string
		tags        []string
		favorites   bool
		environment string
		project     string
	)

	cmd := &cobra.Command{
		Use:   "list-secrets",
		Short: "List typed secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			result, err := v.Store().SearchSecrets(cmd.Context(), models.SecretFilter{
				Query:        query,
				Type:         models.SecretType(secretType),
				Tags:         tags,
				FavoriteOnly: favorites,
				Environment:  environment,
				Project:      project,
			})
			if err != nil {
				return err
			}

			for i := range result {
				s := &result[i]
				marker := " "
				if s.Favorite {
					marker = "*"
				}
				fmt.Fprintf(a.out, "%s %s  %-20s %-24s %s\n",
					marker, s.Id, s.Data.SecretType(), s.Name, s.Environment)
				s.Wipe()
			}
			fmt.Fprintf(a.out, "%d secrets\n", len(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "substring to match")
	cmd.Flags().StringVar(&secretType, "type", "", "filter by secret type")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "require all of these tags")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "favorites only")
	cmd.Flags().StringVar(&environment, "environment", "", "filter by environment")
	cmd.Flags().StringVar(&project, "project", "", "filter by project")
	return cmd
}

func (a *App) newGetSecretCmd() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "get-secret <id>",
		Short: "Retrieve a typed secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			secret, err := v.Store().GetSecret(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer secret.Wipe()

			fmt.Fprintf(a.out, "Name: %s\n", secret.Name)
			fmt.Fprintf(a.out, "Type: %s\n", secret.Data.SecretType())
			if secret.Description != "" {
				fmt.Fprintf(a.out, "Description: %s\n", secret.Description)
			}
			if len(secret.Tags) > 0 {
				fmt.Fprintf(a.out, "Tags: %s\n", strings.Join(secret.Tags, ", "))
			}
			if secret.ExpiresAt != nil {
				fmt.Fprintf(a.out, "Expires: %s\n", secret.ExpiresAt.Format(time.RFC3339))
			}

			if show {
				payload, err := json.MarshalIndent(secret, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(payload))
			} else {
				fmt.Fprintln(a.out, "Payload: ******** (use --show)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the secret payload in clear text")
	return cmd
}

func (a *App) newUpdateSecretCmd() *cobra.Command {
	var (
		name        string
		description string
		dataJSON    string
		tags        []string
		environment string
		project     string
		favorite    bool
		expires     string
	)

	cmd := &cobra.Command{
		Use:   "update-secret <id>",
		Short: "Update a typed secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			secret, err := v.Store().GetSecret(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer secret.Wipe()

			if cmd.Flags().Changed("name") {
				secret.Name = name
			}
			if cmd.Flags().Changed("description") {
				secret.Description = description
			}
			if cmd.Flags().Changed("data") {
				data, err := parseSecretData(string(secret.Data.SecretType()), dataJSON)
				if err != nil {
					return err
				}
				secret.Data = data
			}
			if cmd.Flags().Changed("tags") {
				secret.Tags = tags
			}
			if cmd.Flags().Changed("environment") {
				secret.Environment = environment
			}
			if cmd.Flags().Changed("project") {
				secret.Project = project
			}
			if cmd.Flags().Changed("favorite") {
				secret.Favorite = favorite
			}
			if cmd.Flags().Changed("expires") {
				expiresAt, err := parseExpiry(expires)
				if err != nil {
					return err
				}
				secret.ExpiresAt = expiresAt
			}

			if err := v.Store().UpdateSecret(cmd.Context(), secret); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s\n", secret.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&dataJSON, "data", "", "new JSON payload (same secret type)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "new tag list")
	cmd.Flags().StringVar(&environment, "environment", "", "new environment")
	cmd.Flags().StringVar(&project, "project", "", "new project")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "favorite flag")
	cmd.Flags().StringVar(&expires, "expires", "", "new expiry (RFC3339, empty clears)")
	return cmd
}

func (a *App) newDeleteSecretCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-secret <id>",
		Short: "Delete a typed secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("%w: pass --force to confirm deletion", common.ErrInvalidConfig)
			}

			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			if err := v.Store().DeleteSecret(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm the deletion (required; without it nothing is deleted)")
	return cmd
}

func (a *App) newListTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-templates",
		Short: "List built-in secret templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range models.BuiltinTemplates() {
				fmt.Fprintf(a.out, "%-22s %-22s %s\n", t.Name, t.Type, t.Description)
				for _, f := range t.Fields {
					req := " "
					if f.Required {
						req = "*"
					}
					fmt.Fprintf(a.out, "  %s %-20s %s\n", req, f.Name, f.Description)
				}
			}
			return nil
		},
	}
}

func (a *App) newExpiringSecretsCmd() *cobra.Command {
	var withinDays int

	cmd := &cobra.Command{
		Use:   "expiring-secrets",
		Short: "List secrets expiring soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			result, err := v.Store().ExpiringSecrets(cmd.Context(), withinDays)
			if err != nil {
				return err
			}

			for i := range result {
				s := &result[i]
				fmt.Fprintf(a.out, "%s  %-24s expires %s\n",
					s.Id, s.Name, s.ExpiresAt.Format(time.RFC3339))
				s.Wipe()
			}
			fmt.Fprintf(a.out, "%d secrets expiring within %d days\n", len(result), withinDays)
			return nil
		},
	}

	cmd.Flags().IntVar(&withinDays, "within-days", 30, "look-ahead window in days")
	return cmd
}

func (a *App) newSecretsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secrets-stats",
		Short: "Show statistics about stored secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			stats, err := v.Store().SecretsStatistics(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Total:         %d\n", stats.Total)
			fmt.Fprintf(a.out, "Favorites:     %d\n", stats.Favorites)
			fmt.Fprintf(a.out, "Expired:       %d\n", stats.Expired)
			fmt.Fprintf(a.out, "Expiring soon: %d\n", stats.ExpiringSoon)

			types := make([]string, 0, len(stats.ByType))
			for t := range stats.ByType {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(a.out, "  %-22s %d\n", t, stats.ByType[models.SecretType(t)])
			}
			return nil
		},
	}
}
