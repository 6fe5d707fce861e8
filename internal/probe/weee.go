package probe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/user/slotwatch/internal/entity"
	"github.com/user/slotwatch/internal/repository"
	"github.com/user/slotwatch/pkg/logger"
	"github.com/user/slotwatch/pkg/utils"
)

// WeeeSite describes a date-picker storefront keyed by zip code.
type WeeeSite struct {
	HomeURL          string
	AcceptedHomeURLs []string
	Config           LoginStep
	Timings          Timings

	DateSelector repository.Locator
	DateList     repository.Locator
	DateCell     repository.Locator

	UnavailableClass string
	BundleClass      string
	// ShowBundleBuy accepts dates that are only available as a bundle order.
	ShowBundleBuy bool
}

// WeeeProbe reads the first deliverable date from the date picker.
type WeeeProbe struct {
	name    string
	site    WeeeSite
	page    repository.PageAccess
	session *session
	home    utils.URLSet
	log     *slog.Logger
}

func NewWeeeProbe(name string, site WeeeSite, page repository.PageAccess) *WeeeProbe {
	log := logger.ForTarget(name)
	accepted := site.AcceptedHomeURLs
	if len(accepted) == 0 {
		accepted = []string{site.HomeURL}
	}
	return &WeeeProbe{
		name: name,
		site: site,
		page: page,
		session: &session{
			page:           page,
			login:          site.Config,
			timings:        site.Timings,
			requireCookies: true,
			log:            log,
		},
		home: utils.NewURLSet(accepted...),
		log:  log,
	}
}

func (p *WeeeProbe) Close() error {
	return p.page.Close()
}

func (p *WeeeProbe) Check(ctx context.Context) entity.ProbeOutcome {
	if err := p.session.load(ctx, p.site.HomeURL, p.home); err != nil {
		p.log.Error("Failed to load storefront, giving up", "error", err)
		return entity.ScrapeError(err)
	}

	selectors, err := p.page.FindElements(ctx, p.site.DateSelector)
	if err != nil {
		return entity.ScrapeError(fmt.Errorf("find date selector: %w", err))
	}
	if len(selectors) == 0 {
		p.log.Error("Cannot find date selector")
		return entity.ScrapeError(fmt.Errorf("%w: date selector missing", ErrStructureMismatch))
	}
	if len(selectors) > 1 {
		p.log.Warn("Non-unique date selector, using the first", "count", len(selectors))
	}
	if err := selectors[0].Click(ctx); err != nil {
		return entity.ScrapeError(fmt.Errorf("open date selector: %w", err))
	}
	if err := sleep(ctx, p.site.Timings.PickerSettle); err != nil {
		return entity.ScrapeError(err)
	}

	list, err := firstElement(ctx, p.page, p.site.DateList)
	if err != nil {
		return entity.ScrapeError(err)
	}
	cells, err := list.FindElements(ctx, p.site.DateCell)
	if err != nil {
		return entity.ScrapeError(fmt.Errorf("list date cells: %w", err))
	}

	cell, err := p.pickDate(ctx, cells)
	if err != nil {
		return entity.ScrapeError(err)
	}
	if cell == nil {
		return entity.Unavailable()
	}
	date, err := p.cellDate(ctx, cell)
	if err != nil {
		return entity.ScrapeError(err)
	}
	return entity.Available(date)
}

// cellDate reads the cell's data-date, falling back to its visible text.
func (p *WeeeProbe) cellDate(ctx context.Context, cell repository.Element) (string, error) {
	date, ok, err := cell.Attribute(ctx, "data-date")
	if err != nil {
		return "", fmt.Errorf("read date: %w", err)
	}
	if ok && strings.TrimSpace(date) != "" {
		return strings.TrimSpace(date), nil
	}
	text, err := cell.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("read date cell text: %w", err)
	}
	if text = strings.TrimSpace(text); text != "" {
		p.log.Warn("Date cell has no data-date, using its text", "text", text)
		return text, nil
	}
	return "", fmt.Errorf("%w: chosen date cell carries no date", ErrStructureMismatch)
}

// pickDate prefers a cell not marked unavailable, then falls back to any cell
// that links to an order page.
func (p *WeeeProbe) pickDate(ctx context.Context, cells []repository.Element) (repository.Element, error) {
	classes := make([][]string, len(cells))
	for i, c := range cells {
		class, _, err := c.Attribute(ctx, "class")
		if err != nil {
			return nil, fmt.Errorf("read date cell class: %w", err)
		}
		classes[i] = strings.Fields(class)
		if !slices.Contains(classes[i], p.site.UnavailableClass) {
			return c, nil
		}
	}

	for i, c := range cells {
		url, ok, err := c.Attribute(ctx, "data-url")
		if err != nil {
			return nil, fmt.Errorf("read date cell url: %w", err)
		}
		if !ok || url == "" {
			continue
		}
		if p.site.ShowBundleBuy || !slices.Contains(classes[i], p.site.BundleClass) {
			return c, nil
		}
	}
	return nil, nil
}
