package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/listsync"
	"github.com/MarcoPoloResearchLab/momentos/internal/logging"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"github.com/spf13/cobra"
)

var errPasswordMismatch = errors.New("passwords do not match")

type accountClient interface {
	Login(ctx context.Context, username, password string) (apiclient.LoginResult, error)
	CreateAccount(ctx context.Context, account apiclient.Account) error
}

type profileClient interface {
	Profile(ctx context.Context) (apiclient.Profile, error)
	UpdateProfile(ctx context.Context, profile apiclient.Profile) error
}

type sessionSaver interface {
	Save(ctx context.Context, current session.Session) error
}

func newLoginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(logging.NewConsoleLogger)
			if err != nil {
				return err
			}
			defer app.close()

			current, err := performLogin(cmd.Context(), app.client, app.sessions, username, password, time.Now())
			if err != nil {
				return errors.New(apiclient.Message(err, err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s until %s\n", current.Username, current.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(logging.NewConsoleLogger)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRegisterCommand() *cobra.Command {
	var account apiclient.Account
	var confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(logging.NewConsoleLogger)
			if err != nil {
				return err
			}
			defer app.close()

			if err := performRegister(cmd.Context(), app.client, account, confirm); err != nil {
				return errors.New(apiclient.Message(err, err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created\n", account.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&account.FullName, "fullname", "", "Full name")
	cmd.Flags().StringVar(&account.BirthDate, "birthdate", "", "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&account.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&account.Username, "username", "", "Account username")
	cmd.Flags().StringVar(&account.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Repeat the password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newListCommand() *cobra.Command {
	var pageSize, page int
	var sortBy, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of moments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(logging.NewConsoleLogger)
			if err != nil {
				return err
			}
			defer app.close()

			lists, err := listsync.NewController(listsync.Config{Source: app.client, Logger: app.logger})
			if err != nil {
				return err
			}
			snapshot, err := listPage(cmd.Context(), lists, pageSize, moments.SortKey(sortBy), search, page)
			if err != nil {
				return err
			}
			return renderList(cmd.OutOrStdout(), snapshot)
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", moments.DefaultPageSize, "Moments per page (10, 20, 50 or 100)")
	cmd.Flags().IntVar(&page, "page", 1, "Page to show")
	cmd.Flags().StringVar(&sortBy, "sort-by", string(moments.SortDateAscending), "Sort order (date-asc or date-desc)")
	cmd.Flags().StringVar(&search, "search", "", "Only show moments whose title matches")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <moment-id>",
		Short: "Show one moment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := moments.NewMomentID(args[0])
			if err != nil {
				return err
			}
			app, err := openApplication(logging.NewConsoleLogger)
			if err != nil {
				return err
			}
			defer app.close()

			moment, err := app.client.GetMoment(cmd.Context(), id)
			if err != nil {
				return errors.New(apiclient.Message(err, "Failed to retrieve moment"))
			}
			return renderMoment(cmd.OutOrStdout(), moment)
		},
	}
}

func newProfileCommand() *cobra.Command {
	var fullName, birthDate string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the account profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApplication(logging.NewConsoleLogger)
			if err != nil {
				return err
			}
			defer app.close()

			var changes profileChanges
			if cmd.Flags().Changed("fullname") {
				changes.fullName = &fullName
			}
			if cmd.Flags().Changed("birthdate") {
				changes.birthDate = &birthDate
			}
			profile, err := editProfile(cmd.Context(), app.client, changes)
			if err != nil {
				return errors.New(apiclient.Message(err, err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Full name:  %s\nBirth date: %s\n", profile.FullName, profile.BirthDate)
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "fullname", "", "New full name")
	cmd.Flags().StringVar(&birthDate, "birthdate", "", "New birth date (YYYY-MM-DD)")
	return cmd
}

type profileChanges struct {
	fullName  *string
	birthDate *string
}

// editProfile loads the profile and, when changes names a field, sends the
// merged result back.
func editProfile(ctx context.Context, profiles profileClient, changes profileChanges) (apiclient.Profile, error) {
	profile, err := profiles.Profile(ctx)
	if err != nil {
		return apiclient.Profile{}, err
	}
	if changes.fullName == nil && changes.birthDate == nil {
		return profile, nil
	}
	if changes.fullName != nil {
		profile.FullName = strings.TrimSpace(*changes.fullName)
	}
	if changes.birthDate != nil {
		profile.BirthDate = strings.TrimSpace(*changes.birthDate)
		if profile.BirthDate != "" {
			if _, err := time.Parse("2006-01-02", profile.BirthDate); err != nil {
				return apiclient.Profile{}, fmt.Errorf("birth date %q is not YYYY-MM-DD", profile.BirthDate)
			}
		}
	}
	if err := profiles.UpdateProfile(ctx, profile); err != nil {
		return apiclient.Profile{}, err
	}
	return profile, nil
}

func performLogin(ctx context.Context, accounts accountClient, store sessionSaver, username, password string, now time.Time) (session.Session, error) {
	result, err := accounts.Login(ctx, username, password)
	if err != nil {
		return session.Session{}, err
	}
	name := result.Username
	if strings.TrimSpace(name) == "" {
		name = username
	}
	current, err := session.NewFromLogin(name, result.AccessToken, result.ExpiresIn, now)
	if err != nil {
		return session.Session{}, err
	}
	if err := store.Save(ctx, current); err != nil {
		return session.Session{}, err
	}
	return current, nil
}

func performRegister(ctx context.Context, accounts accountClient, account apiclient.Account, confirm string) error {
	if confirm != "" && confirm != account.Password {
		return errPasswordMismatch
	}
	return accounts.CreateAccount(ctx, account)
}

// listPage applies the requested transitions and returns the settled page.
// Pages past the first need a retrieval to learn the page count.
func listPage(ctx context.Context, lists *listsync.Controller, pageSize int, sortBy moments.SortKey, search string, page int) (listsync.Snapshot, error) {
	if err := lists.SetPageSize(pageSize); err != nil {
		return listsync.Snapshot{}, err
	}
	if err := lists.SetSortBy(sortBy); err != nil {
		return listsync.Snapshot{}, err
	}
	lists.SetSearchText(search)

	snapshot := lists.RefreshAndWait(ctx)
	if page != 1 {
		if !lists.GoToPage(page) {
			return snapshot, fmt.Errorf("page %d is outside 1..%d", page, snapshot.MaxPages)
		}
		snapshot = lists.RefreshAndWait(ctx)
	}
	return snapshot, nil
}

func renderList(out io.Writer, snapshot listsync.Snapshot) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tDATE\tTITLE")
	for _, summary := range snapshot.Moments {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", summary.ID, moments.DisplayDate(summary.Date), summary.Title)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	total := "Retrieving..."
	switch {
	case snapshot.TotalError != "":
		total = snapshot.TotalError
	case snapshot.TotalMoments != nil:
		total = fmt.Sprintf("%d", *snapshot.TotalMoments)
	}
	fmt.Fprintf(out, "\nPage %d of %d, total moments: %s\n", snapshot.Query.CurrentPage, snapshot.MaxPages, total)
	if snapshot.MomentsError != "" {
		return errors.New(snapshot.MomentsError)
	}
	return nil
}

func renderMoment(out io.Writer, moment moments.Moment) error {
	fmt.Fprintf(out, "%s\n%s\n\n", moment.Title, moments.DisplayDate(moment.Date))
	if len(moment.Feelings) > 0 {
		labels := make([]string, 0, len(moment.Feelings))
		for _, feeling := range moments.NormalizeFeelings(moment.Feelings) {
			labels = append(labels, feeling.Emoji()+" "+feeling.Label())
		}
		fmt.Fprintf(out, "Feelings: %s\n\n", strings.Join(labels, ", "))
	}
	fmt.Fprintln(out, moment.Description)

	if !moment.HasImage() {
		return nil
	}
	source, err := moments.DecodeHexImage(moment.ImageData, moment.ImageFilename)
	if err != nil {
		return err
	}
	format := moments.ImageFormat(moment.ImageFilename)
	if format == "" {
		format = "unknown"
	}
	fmt.Fprintf(out, "\nImage: %s (%s, %d base64 chars)\nCaption: %s\n", moment.ImageFilename, format, len(source.Base64), moment.ImageCaption)
	return nil
}
