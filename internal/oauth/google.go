package oauth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"

	"social-service/config"
	models "social-service/model"
)

var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/user.birthday.read",
}

// Provider is an OAuth identity provider.
type Provider interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens and the account
	// profile.
	Exchange(ctx context.Context, code string) (*models.GoogleProfile, error)
}

// GoogleProvider talks to Google's OAuth, userinfo and People APIs.
type GoogleProvider struct {
	config *oauth2.Config
	// apiEndpoint overrides the Google API base URLs when set.
	apiEndpoint string
	now         func() time.Time
}

func NewGoogleProvider(cfg config.GoogleConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		now: time.Now,
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*models.GoogleProfile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(p.config.Client(ctx, token))}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}

	userinfo, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}
	info, err := userinfo.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google profile: %w", err)
	}

	peopleSvc, err := people.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create people client: %w", err)
	}
	person, err := peopleSvc.People.Get("people/me").PersonFields("birthdays").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch birthdays: %w", err)
	}

	profile := &models.GoogleProfile{
		Name:         info.Name,
		Email:        info.Email,
		Picture:      info.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if date := pickBirthday(person.Birthdays); date != nil {
		profile.Age = CalculateAge(int(date.Year), time.Month(date.Month), int(date.Day), p.now())
	}
	return profile, nil
}

// pickBirthday prefers the second entry when several are present; Google
// lists the account birthday after the profile one.
func pickBirthday(birthdays []*people.Birthday) *people.Date {
	if len(birthdays) == 0 {
		return nil
	}
	idx := 0
	if len(birthdays) > 1 {
		idx = 1
	}
	return birthdays[idx].Date
}

// CalculateAge returns full years between the birth date and now. A zero
// year (birthday shared without a year) yields 0.
func CalculateAge(year int, month time.Month, day int, now time.Time) int {
	if year <= 0 {
		return 0
	}
	age := now.Year() - year
	if now.Month() < month || (now.Month() == month && now.Day() < day) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
