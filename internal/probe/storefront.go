package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/slotwatch/internal/entity"
	"github.com/user/slotwatch/internal/repository"
	"github.com/user/slotwatch/pkg/logger"
	"github.com/user/slotwatch/pkg/utils"
)

// StorefrontProbe checks a storefront whose delivery window is shown as a
// label on the home page, with an optional detail page as fallback.
type StorefrontProbe struct {
	name    string
	site    Site
	page    repository.PageAccess
	session *session
	home    utils.URLSet
	log     *slog.Logger

	cookiesSet bool
}

// NewStorefrontProbe takes ownership of page; Close releases it.
func NewStorefrontProbe(name string, site Site, page repository.PageAccess) *StorefrontProbe {
	log := logger.ForTarget(name)
	return &StorefrontProbe{
		name: name,
		site: site,
		page: page,
		session: &session{
			page:    page,
			login:   site.Login,
			timings: site.Timings,
			log:     log,
		},
		home: utils.NewURLSet(site.acceptedHome()...),
		log:  log,
	}
}

func (p *StorefrontProbe) Close() error {
	return p.page.Close()
}

// Check runs the authenticated load, the primary label read and, when the
// label is inconclusive, the info page fallback.
func (p *StorefrontProbe) Check(ctx context.Context) entity.ProbeOutcome {
	if err := p.ensureCookies(ctx); err != nil {
		return entity.ScrapeError(err)
	}
	if err := p.session.load(ctx, p.site.HomeURL, p.home); err != nil {
		p.log.Error("Failed to load storefront, giving up", "error", err)
		return entity.ScrapeError(err)
	}

	// Held through the info page read, which depends on the selected store.
	handle, err := p.holdStore(ctx)
	if err != nil {
		return entity.ScrapeError(err)
	}
	defer handle.Release()

	outcome := p.classifyPrimary(ctx)
	if outcome.Kind != entity.OutcomeIndeterminate {
		return outcome
	}

	info := p.site.InfoPage
	if info == nil {
		return entity.ScrapeError(fmt.Errorf("%w: label inconclusive and no info page", ErrIndeterminate))
	}
	if err := p.session.load(ctx, info.URL, utils.NewURLSet(info.URL)); err != nil {
		p.log.Error("Failed to load delivery info page, giving up", "error", err)
		return entity.ScrapeError(err)
	}
	return p.classifyInfoPage(ctx, info)
}

func (p *StorefrontProbe) ensureCookies(ctx context.Context) error {
	if p.cookiesSet {
		return nil
	}
	for _, c := range p.site.StartupCookies {
		if err := p.page.AddCookie(ctx, c); err != nil {
			return fmt.Errorf("set cookie %s for %s: %w", c.Name, c.Domain, err)
		}
	}
	p.cookiesSet = true
	return nil
}

// holdStore acquires the account lock and selects the configured store. Sites
// without store selection get a nil handle, whose Release is a no-op.
func (p *StorefrontProbe) holdStore(ctx context.Context) (*LockHandle, error) {
	sel := p.site.StoreSelection
	if sel == nil {
		return nil, nil
	}
	handle, err := sel.Lock.Acquire(ctx)
	if err != nil {
		p.log.Error("Account lock not acquired", "error", err)
		if !errors.Is(err, ErrLockAcquisition) {
			err = fmt.Errorf("%w: %w", ErrLockAcquisition, err)
		}
		return nil, err
	}
	if err := p.selectStore(ctx, sel); err != nil {
		handle.Release()
		p.log.Error("Store selection failed", "store", sel.StoreLabel, "error", err)
		return nil, err
	}
	return handle, nil
}

func (p *StorefrontProbe) classifyPrimary(ctx context.Context) entity.ProbeOutcome {
	text, err := p.readLabel(ctx)
	if err != nil {
		p.log.Error("Failed to read delivery label", "error", err)
		return entity.ScrapeError(err)
	}
	return p.classifyLabel(text)
}

func (p *StorefrontProbe) selectStore(ctx context.Context, sel *StoreSelection) error {
	opener, err := firstElement(ctx, p.page, sel.OpenPicker)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreSelection, err)
	}
	if err := opener.Click(ctx); err != nil {
		return fmt.Errorf("%w: open store picker: %w", ErrStoreSelection, err)
	}
	if err := sleep(ctx, p.site.Timings.PickerSettle); err != nil {
		return err
	}

	options, err := p.page.FindElements(ctx, sel.StoreOption)
	if err != nil {
		return fmt.Errorf("%w: list stores: %w", ErrStoreSelection, err)
	}
	var chosen repository.Element
	for _, opt := range options {
		label, ok, err := opt.Attribute(ctx, sel.OptionAttribute)
		if err != nil {
			return fmt.Errorf("%w: read store option: %w", ErrStoreSelection, err)
		}
		if ok && label == sel.StoreLabel {
			chosen = opt
			break
		}
	}
	if chosen == nil {
		return fmt.Errorf("%w: %q not selectable among %d stores", ErrStoreSelection, sel.StoreLabel, len(options))
	}
	if err := chosen.Click(ctx); err != nil {
		return fmt.Errorf("%w: click %q: %w", ErrStoreSelection, sel.StoreLabel, err)
	}
	if err := sleep(ctx, p.site.Timings.SelectSettle); err != nil {
		return err
	}

	if sel.SelectedStore == "" {
		return nil
	}
	current, err := firstElement(ctx, p.page, sel.SelectedStore)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreSelection, err)
	}
	text, err := current.Text(ctx)
	if err != nil {
		return fmt.Errorf("%w: read selected store: %w", ErrStoreSelection, err)
	}
	if !strings.Contains(text, sel.StoreLabel) {
		return fmt.Errorf("%w: selected store shows %q, want %q", ErrStoreSelection, strings.TrimSpace(text), sel.StoreLabel)
	}
	return nil
}

func (p *StorefrontProbe) readLabel(ctx context.Context) (string, error) {
	buttons, err := p.page.FindElements(ctx, p.site.DeliveryButton)
	if err != nil {
		return "", fmt.Errorf("find delivery info: %w", err)
	}
	if len(buttons) == 0 {
		return "", fmt.Errorf("%w: no delivery info found", ErrStructureMismatch)
	}
	if len(buttons) > 1 {
		p.log.Warn("Non-unique delivery info element, using the first", "count", len(buttons))
	}

	el := buttons[0]
	if p.site.LabelLocator != "" {
		labels, err := el.FindElements(ctx, p.site.LabelLocator)
		if err != nil {
			return "", fmt.Errorf("find delivery label: %w", err)
		}
		if len(labels) == 0 {
			return "", fmt.Errorf("%w: delivery label %s missing", ErrStructureMismatch, p.site.LabelLocator)
		}
		el = labels[0]
	}

	text, err := el.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("read delivery label: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// classifyLabel treats any label outside the known sets as a delivery window.
func (p *StorefrontProbe) classifyLabel(text string) entity.ProbeOutcome {
	switch {
	case slices.Contains(p.site.UnavailableText, text):
		return entity.Unavailable()
	case slices.Contains(p.site.IndeterminateText, text):
		p.log.Info("Delivery label inconclusive", "label", text)
		return entity.Indeterminate()
	default:
		p.log.Debug("Treating delivery label as a window", "label", text)
		return entity.Available(strings.TrimPrefix(text, p.site.LabelPrefix))
	}
}

func (p *StorefrontProbe) classifyInfoPage(ctx context.Context, info *InfoPage) entity.ProbeOutcome {
	panels, err := p.page.FindElements(ctx, info.Panel)
	if err != nil {
		return entity.ScrapeError(fmt.Errorf("find delivery panel: %w", err))
	}
	if len(panels) == 0 {
		p.log.Error("No delivery info panel found")
		return entity.ScrapeError(fmt.Errorf("%w: no delivery info panel found", ErrStructureMismatch))
	}
	if len(panels) > 1 {
		p.log.Warn("Non-unique delivery info panel, using the first", "count", len(panels))
	}

	html, err := panels[0].InnerHTML(ctx)
	if err != nil {
		return entity.ScrapeError(fmt.Errorf("read delivery panel: %w", err))
	}
	if info.NoSlotsMarker != "" && strings.Contains(html, info.NoSlotsMarker) {
		return entity.Unavailable()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return entity.ScrapeError(fmt.Errorf("%w: parse delivery panel: %w", ErrStructureMismatch, err))
	}
	if info.NoSlotsMarker != "" && strings.Contains(doc.Text(), info.NoSlotsMarker) {
		return entity.Unavailable()
	}

	header := strings.TrimSpace(doc.Find(info.HeaderSelector).First().Text())
	detail := strings.TrimSpace(doc.Find(info.DetailSelector).First().Text())
	if header == "" && detail == "" {
		p.log.Error("Delivery panel has neither header nor detail")
		return entity.ScrapeError(fmt.Errorf("%w: delivery panel has no slot text", ErrStructureMismatch))
	}
	return entity.Available(strings.TrimSpace(header + " " + detail))
}
