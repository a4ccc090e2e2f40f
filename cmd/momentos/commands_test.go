package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/listsync"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/MarcoPoloResearchLab/momentos/internal/session"
)

type stubAccounts struct {
	result   apiclient.LoginResult
	err      error
	accounts []apiclient.Account
}

func (s *stubAccounts) Login(context.Context, string, string) (apiclient.LoginResult, error) {
	return s.result, s.err
}

func (s *stubAccounts) CreateAccount(_ context.Context, account apiclient.Account) error {
	s.accounts = append(s.accounts, account)
	return s.err
}

type stubProfiles struct {
	stored  apiclient.Profile
	updates []apiclient.Profile
}

func (s *stubProfiles) Profile(context.Context) (apiclient.Profile, error) {
	return s.stored, nil
}

func (s *stubProfiles) UpdateProfile(_ context.Context, profile apiclient.Profile) error {
	s.updates = append(s.updates, profile)
	return nil
}

type recordingSaver struct {
	saved []session.Session
}

func (r *recordingSaver) Save(_ context.Context, current session.Session) error {
	r.saved = append(r.saved, current)
	return nil
}

type pagedSource struct {
	total   int64
	results []moments.Summary
	queries []moments.ListQuery
}

func (p *pagedSource) TotalMoments(context.Context) (int64, error) {
	return p.total, nil
}

func (p *pagedSource) ListMoments(_ context.Context, query moments.ListQuery) ([]moments.Summary, error) {
	p.queries = append(p.queries, query)
	return p.results, nil
}

func TestPerformLoginSavesSession(t *testing.T) {
	now := time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC)
	accounts := &stubAccounts{result: apiclient.LoginResult{AccessToken: "token-1", ExpiresIn: 60}}
	saver := &recordingSaver{}

	current, err := performLogin(context.Background(), accounts, saver, "cleo", "pw", now)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if current.Username != "cleo" || !current.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected session %+v", current)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("expected one saved session, got %d", len(saver.saved))
	}
}

func TestPerformLoginPropagatesFailure(t *testing.T) {
	accounts := &stubAccounts{err: &apiclient.StatusError{StatusCode: 401, StatusText: "Unauthorized"}}
	saver := &recordingSaver{}

	if _, err := performLogin(context.Background(), accounts, saver, "cleo", "bad", time.Now()); err == nil {
		t.Fatal("expected login failure")
	}
	if len(saver.saved) != 0 {
		t.Fatal("expected nothing saved after failure")
	}
}

func TestPerformRegisterChecksConfirmation(t *testing.T) {
	accounts := &stubAccounts{}
	err := performRegister(context.Background(), accounts, apiclient.Account{Username: "cleo", Password: "a"}, "b")
	if !errors.Is(err, errPasswordMismatch) {
		t.Fatalf("expected errPasswordMismatch, got %v", err)
	}
	if len(accounts.accounts) != 0 {
		t.Fatal("expected no account request")
	}
}

func TestListPageNavigatesAfterFirstRetrieval(t *testing.T) {
	results := make([]moments.Summary, 0, 20)
	for index := 0; index < 20; index++ {
		results = append(results, moments.Summary{ID: moments.MomentID("m"), Title: "t", Date: "2024-01-01"})
	}
	source := &pagedSource{total: 40, results: results}
	lists, err := listsync.NewController(listsync.Config{Source: source})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	snapshot, err := listPage(context.Background(), lists, 10, moments.SortDateDescending, "", 2)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if snapshot.Query.CurrentPage != 2 {
		t.Fatalf("expected page 2, got %d", snapshot.Query.CurrentPage)
	}
	if len(source.queries) != 2 || source.queries[1].CurrentPage != 2 {
		t.Fatalf("unexpected dispatched queries %+v", source.queries)
	}
}

func TestListPageRejectsUnknownPage(t *testing.T) {
	source := &pagedSource{results: []moments.Summary{{ID: "1", Title: "only", Date: "2024-01-01"}}}
	lists, err := listsync.NewController(listsync.Config{Source: source})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	if _, err := listPage(context.Background(), lists, 10, moments.SortDateAscending, "", 3); err == nil {
		t.Fatal("expected out-of-range page to be rejected")
	}
}

func TestRenderListShowsTotalAndRows(t *testing.T) {
	total := int64(12)
	snapshot := listsync.Snapshot{
		Query:        moments.ListQuery{PageSize: 10, CurrentPage: 1, SortBy: moments.SortDateAscending},
		MaxPages:     1,
		Moments:      []moments.Summary{{ID: "7", Title: "Picnic", Date: "2024-06-09"}},
		TotalMoments: &total,
	}
	var out bytes.Buffer

	if err := renderList(&out, snapshot); err != nil {
		t.Fatalf("render: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Picnic") || !strings.Contains(text, "9 Jun 2024") || !strings.Contains(text, "total moments: 12") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestRenderMomentDecodesImage(t *testing.T) {
	var out bytes.Buffer
	err := renderMoment(&out, moments.Moment{
		Title:         "Picnic",
		Date:          "2024-06-09",
		Description:   "Under the oak",
		Feelings:      []moments.Feeling{moments.FeelingSad, moments.FeelingHappy},
		ImageFilename: "oak.png",
		ImageData:     "48656c6c6f",
		ImageCaption:  "Oak",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Happy, ") || !strings.Contains(text, "Image: oak.png (png, 8 base64 chars)") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestRenderMomentRejectsMalformedImage(t *testing.T) {
	var out bytes.Buffer
	err := renderMoment(&out, moments.Moment{Title: "x", Date: "2024-06-09", ImageFilename: "a.png", ImageData: "zz"})
	if !errors.Is(err, moments.ErrMalformedImageData) {
		t.Fatalf("expected ErrMalformedImageData, got %v", err)
	}
}

func TestEditProfileWithoutChangesOnlyReads(t *testing.T) {
	profiles := &stubProfiles{stored: apiclient.Profile{FullName: "Cleo Park", BirthDate: "1979-05-01"}}

	profile, err := editProfile(context.Background(), profiles, profileChanges{})
	if err != nil {
		t.Fatalf("edit profile: %v", err)
	}
	if profile.FullName != "Cleo Park" || len(profiles.updates) != 0 {
		t.Fatalf("unexpected profile %+v with updates %+v", profile, profiles.updates)
	}
}

func TestEditProfileMergesNamedFields(t *testing.T) {
	profiles := &stubProfiles{stored: apiclient.Profile{FullName: "Cleo Park", BirthDate: "1979-05-01"}}
	name := " Cleo Park-Lee "

	profile, err := editProfile(context.Background(), profiles, profileChanges{fullName: &name})
	if err != nil {
		t.Fatalf("edit profile: %v", err)
	}
	expected := apiclient.Profile{FullName: "Cleo Park-Lee", BirthDate: "1979-05-01"}
	if profile != expected || len(profiles.updates) != 1 || profiles.updates[0] != expected {
		t.Fatalf("unexpected profile %+v with updates %+v", profile, profiles.updates)
	}

	bad := "May 1st"
	if _, err := editProfile(context.Background(), profiles, profileChanges{birthDate: &bad}); err == nil {
		t.Fatal("expected malformed birth date to be rejected")
	}
	if len(profiles.updates) != 1 {
		t.Fatal("expected no update for a malformed birth date")
	}
}
