package probe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/slotwatch/internal/repository"
	"github.com/user/slotwatch/pkg/utils"
)

// LoginStep brings a page session into the state a site expects, usually by
// signing in. It runs only after a navigation landed somewhere unexpected.
type LoginStep interface {
	Login(ctx context.Context, page repository.PageAccess, log *slog.Logger) error
}

// FormLogin fills a username/password form with stored credentials.
type FormLogin struct {
	URL           string
	CredentialID  string
	Credentials   repository.CredentialSource
	UserField     repository.Locator
	PasswordField repository.Locator
	Timings       Timings
}

func (f FormLogin) Login(ctx context.Context, page repository.PageAccess, log *slog.Logger) error {
	if err := page.Navigate(ctx, f.URL); err != nil {
		log.Warn("Login page navigation reported an error", "url", f.URL, "error", err)
	}
	current, err := page.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("read current url: %w", err)
	}
	if utils.NormalizeURL(current) != utils.NormalizeURL(f.URL) {
		log.Info("Not on login page, already logged in?", "url", current)
		return nil
	}
	if err := sleep(ctx, f.Timings.FormSettle); err != nil {
		return err
	}

	creds, err := f.Credentials.Read(ctx, f.CredentialID)
	if err != nil {
		return fmt.Errorf("read credentials %q: %w", f.CredentialID, err)
	}
	if err := fillField(ctx, page, f.UserField, creds.Username); err != nil {
		return err
	}
	password, err := firstElement(ctx, page, f.PasswordField)
	if err != nil {
		return err
	}
	if err := password.SendKeys(ctx, creds.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	if err := password.Submit(ctx); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	if err := sleep(ctx, f.Timings.SubmitSettle); err != nil {
		return err
	}

	if after, err := page.CurrentURL(ctx); err == nil {
		log.Info("Login attempted", "url", after)
	}
	return nil
}

// ZipConfig sets the delivery zip code on sites that key availability by
// location instead of by account.
type ZipConfig struct {
	URL      string
	ZipField repository.Locator
	// ConfiguredMarker is present once a zip code is already in effect.
	ConfiguredMarker repository.Locator
	ZipCode          string
	Timings          Timings
}

func (z ZipConfig) Login(ctx context.Context, page repository.PageAccess, log *slog.Logger) error {
	if err := page.Navigate(ctx, z.URL); err != nil {
		log.Warn("Config page navigation reported an error", "url", z.URL, "error", err)
	}
	current, err := page.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("read current url: %w", err)
	}
	if utils.NormalizeURL(current) != utils.NormalizeURL(z.URL) {
		log.Info("Not on config page, already configured?", "url", current)
		return nil
	}
	if err := sleep(ctx, z.Timings.FormSettle); err != nil {
		return err
	}

	fields, err := page.FindElements(ctx, z.ZipField)
	if err != nil {
		return fmt.Errorf("find zip field: %w", err)
	}
	if len(fields) == 0 {
		if z.ConfiguredMarker != "" {
			if markers, err := page.FindElements(ctx, z.ConfiguredMarker); err == nil && len(markers) > 0 {
				log.Info("Zip field missing but date selector present, still configured?")
				return nil
			}
		}
		return fmt.Errorf("%w: zip field %s not found", ErrStructureMismatch, z.ZipField)
	}
	if err := fields[0].SendKeys(ctx, z.ZipCode); err != nil {
		return fmt.Errorf("type zip code: %w", err)
	}
	if err := fields[0].Submit(ctx); err != nil {
		return fmt.Errorf("submit zip code: %w", err)
	}
	if err := sleep(ctx, z.Timings.SubmitSettle); err != nil {
		return err
	}

	if after, err := page.CurrentURL(ctx); err == nil {
		log.Info("Zip code configured", "url", after, "zip", z.ZipCode)
	}
	return nil
}

func firstElement(ctx context.Context, page repository.PageAccess, loc repository.Locator) (repository.Element, error) {
	els, err := page.FindElements(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s not found", ErrStructureMismatch, loc)
	}
	return els[0], nil
}

func fillField(ctx context.Context, page repository.PageAccess, loc repository.Locator, text string) error {
	el, err := firstElement(ctx, page, loc)
	if err != nil {
		return err
	}
	if err := el.SendKeys(ctx, text); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

// session loads pages for one probe, retrying through its LoginStep once.
type session struct {
	page           repository.PageAccess
	login          LoginStep
	timings        Timings
	requireCookies bool
	log            *slog.Logger
}

// load navigates to url and succeeds only if the browser ends up on one of
// the accepted pages, logging in once in between if needed.
func (s *session) load(ctx context.Context, url string, accepted utils.URLSet) error {
	s.navigate(ctx, url)
	if err := ctx.Err(); err != nil {
		return err
	}

	if ok, current := s.onExpectedPage(ctx, accepted); !ok {
		s.log.Info("Landed on unexpected page, retrying login", "url", current)
		if s.login != nil {
			if err := s.login.Login(ctx, s.page, s.log); err != nil {
				return fmt.Errorf("%w: %w", ErrLogin, err)
			}
		}
		if err := sleep(ctx, s.timings.LoginSettle); err != nil {
			return err
		}
		s.navigate(ctx, url)
	}

	if err := sleep(ctx, s.timings.PageSettle); err != nil {
		return err
	}
	if ok, current := s.onExpectedPage(ctx, accepted); !ok {
		return fmt.Errorf("%w: at %q after loading %s", ErrNavigationFailed, current, url)
	}
	return nil
}

func (s *session) navigate(ctx context.Context, url string) {
	if err := s.page.Navigate(ctx, url); err != nil {
		s.log.Warn("Navigation reported an error", "url", url, "error", err)
	}
}

func (s *session) onExpectedPage(ctx context.Context, accepted utils.URLSet) (bool, string) {
	current, err := s.page.CurrentURL(ctx)
	if err != nil {
		s.log.Warn("Failed to read current url", "error", err)
		return false, ""
	}
	if !accepted.Contains(current) {
		return false, current
	}
	if s.requireCookies {
		cookies, err := s.page.Cookies(ctx)
		if err != nil || len(cookies) == 0 {
			return false, current
		}
	}
	return true, current
}
