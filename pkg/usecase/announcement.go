package usecase

import (
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
)

const (
	// DefaultAnnouncementTitle is the title of the announcement issue
	DefaultAnnouncementTitle = "New Branch Protections Added"

	// DefaultAnnouncementTemplate renders the announcement issue body from a
	// model.ProtectionReport
	DefaultAnnouncementTemplate = `***Automated Branch Protections Enforced***<br><br>` +
		`{{if .Sender}}@{{.Sender}}, the{{else}}The{{end}} following protections were added to the ` + "`{{.Branch}}`" + ` branch:<br>` +
		`<details><summary>Enforced Protections</summary><br>{{template "protections" .Protection}}</details>` +
		`***Message brought to you by Newman bot***` +
		`<details><summary>:robot:</summary><br>![Image of Newman](` + newmanImageURL + `)</details>`

	newmanImageURL = "https://media.tenor.com/images/b54ce11a318ffd1354b74ff53d0cb001/raw"

	protectionsTemplate = `{{define "protections"}}` +
		"* Required status checks: `{{list .RequiredStatusChecks.Contexts}}`<br>" +
		"* Enforce restrictions for Administrators: `{{yesno .EnforceAdmins}}`<br>" +
		"* Users that can dismiss Pull requests: `{{list .RequiredPullRequestReviews.DismissalRestrictions.Users}}`<br>" +
		"* Dismiss Pull request approvals after new commit: `{{yesno .RequiredPullRequestReviews.DismissStaleReviews}}`<br>" +
		"* Require code owner review: `{{yesno .RequiredPullRequestReviews.RequireCodeOwnerReviews}}`<br>" +
		"* Number of reviewers required to approve pull request: `{{.RequiredPullRequestReviews.RequiredApprovingReviewCount}}`<br>" +
		"* Restrict who can push to branch: `{{if .Restrictions}}Yes{{else}}No{{end}}`<br>" +
		"* Users allowed to push: `{{if .Restrictions}}{{list .Restrictions.Users}}{{else}}Anyone{{end}}`<br>" +
		`{{end}}`
)

var announcementFuncs = template.FuncMap{
	"yesno": func(v bool) string {
		if v {
			return "Yes"
		}
		return "No"
	},
	"list": func(items []string) string {
		if len(items) == 0 {
			return "None"
		}
		return strings.Join(items, ", ")
	},
}

// DefaultAnnouncement returns the announcement filed when no policy file overrides it
func DefaultAnnouncement() model.AnnouncementConfig {
	return model.AnnouncementConfig{
		Enabled:  true,
		Title:    DefaultAnnouncementTitle,
		Template: DefaultAnnouncementTemplate,
	}
}

type announcer struct {
	title string
	tmpl  *template.Template
}

func newAnnouncer(cfg model.AnnouncementConfig) (*announcer, error) {
	title := cfg.Title
	if title == "" {
		title = DefaultAnnouncementTitle
	}
	body := cfg.Template
	if body == "" {
		body = DefaultAnnouncementTemplate
	}

	tmpl, err := template.New("announcement").
		Funcs(announcementFuncs).
		Option("missingkey=error").
		Parse(protectionsTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse protections template", goerr.T(types.ErrTagConfig))
	}
	if _, err := tmpl.Parse(body); err != nil {
		return nil, goerr.Wrap(err, "failed to parse announcement template", goerr.T(types.ErrTagConfig))
	}

	return &announcer{title: title, tmpl: tmpl}, nil
}

func (a *announcer) render(report *model.ProtectionReport) (*model.IssuePayload, error) {
	var body strings.Builder
	if err := a.tmpl.Execute(&body, report); err != nil {
		return nil, goerr.Wrap(err, "failed to render announcement",
			goerr.V("repository", report.Repository),
			goerr.T(types.ErrTagConfig),
		)
	}

	return &model.IssuePayload{
		Title: a.title,
		Body:  body.String(),
	}, nil
}
