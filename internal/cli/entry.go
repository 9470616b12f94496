package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pwvault/internal/cryptox"
	"github.com/dmitrijs2005/pwvault/internal/vault"
	"github.com/dmitrijs2005/pwvault/internal/vault/models"
	"github.com/spf13/cobra"
)

func (a *App) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			password, err := GetPassword("New master password: ", a.out)
			if err != nil {
				return err
			}
			defer cryptox.WipeBytes(password)

			if err := v.Init(cmd.Context(), password); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Vault created at %s\n", a.vaultPath)
			return nil
		},
	}
}

func (a *App) newAddCmd() *cobra.Command {
	var (
		site     string
		username string
		password string
		notes    string
		tags     []string
		favorite bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a password entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			if password == "" {
				pw, err := GetPassword("Entry password: ", a.out)
				if err != nil {
					return err
				}
				password = string(pw)
				cryptox.WipeBytes(pw)
			}

			entry, err := v.Store().AddEntry(cmd.Context(), vault.NewEntryParams{
				Site:     site,
				Username: username,
				Password: password,
				Notes:    notes,
				Tags:     tags,
				Favorite: favorite,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s (%s)\n", entry.Site, entry.Id[:12])
			return nil
		},
	}

	cmd.Flags().StringVar(&site, "site", "", "site or service name")
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "mark as favorite")
	_ = cmd.MarkFlagRequired("site")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *App) newGetCmd() *cobra.Command {
	var (
		show       bool
		copyToClip bool
	)

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Retrieve a password entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			entry, err := v.Store().GetEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer entry.Wipe()

			_ = v.Store().MarkEntryUsed(cmd.Context(), entry.Id)

			fmt.Fprintf(a.out, "Site:     %s\n", entry.Site)
			fmt.Fprintf(a.out, "Username: %s\n", entry.Username)
			if show {
				fmt.Fprintf(a.out, "Password: %s\n", entry.Password)
			} else {
				fmt.Fprintln(a.out, "Password: ********")
			}
			if entry.Notes != "" {
				fmt.Fprintf(a.out, "Notes:    %s\n", entry.Notes)
			}
			if len(entry.Tags) > 0 {
				fmt.Fprintf(a.out, "Tags:     %s\n", strings.Join(entry.Tags, ", "))
			}

			if copyToClip {
				if err := a.clip.Copy(entry.Password); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Password copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print the password in clear text")
	cmd.Flags().BoolVar(&copyToClip, "copy", false, "copy the password to the clipboard")
	return cmd
}

func (a *App) newListCmd() *cobra.Command {
	var (
		query     string
		tags      []string
		favorites bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List password entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			result, err := v.Store().SearchEntries(cmd.Context(), models.SearchFilter{
				Query:        query,
				Tags:         tags,
				FavoriteOnly: favorites,
			})
			if err != nil {
				return err
			}

			for i := range result {
				e := &result[i]
				marker := " "
				if e.Favorite {
					marker = "*"
				}
				fmt.Fprintf(a.out, "%s %-12s  %-30s %s\n", marker, e.Id[:12], e.Site, e.Username)
				e.Wipe()
			}
			fmt.Fprintf(a.out, "%d entries\n", len(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "substring to match")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "require all of these tags")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "favorites only")
	return cmd
}

func (a *App) newUpdateCmd() *cobra.Command {
	var (
		password string
		notes    string
		tags     []string
		favorite bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a password entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			entry, err := v.Store().GetEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer entry.Wipe()

			if cmd.Flags().Changed("password") {
				entry.Password = password
			}
			if cmd.Flags().Changed("notes") {
				entry.Notes = notes
			}
			if cmd.Flags().Changed("tags") {
				entry.Tags = tags
			}
			if cmd.Flags().Changed("favorite") {
				entry.Favorite = favorite
			}

			if err := v.Store().UpdateEntry(cmd.Context(), entry); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s\n", entry.Site)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "new tag list")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "favorite flag")
	return cmd
}

func (a *App) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a password entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openUnlocked(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Close()

			if err := v.Store().DeleteEntry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted")
			return nil
		},
	}
}
