package probe

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/slotwatch/internal/repository"
	"github.com/user/slotwatch/pkg/config"
)

const (
	instacartHomeFormat   = "https://www.instacart.com/store/%s/storefront"
	instacartInfoFormat   = "https://www.instacart.com/store/%s/info?tab=delivery"
	instacartButtonFormat = `a[href~="/%s/info?tab=delivery"]`
	costcoLoginPage       = "https://www.costco.com/logon-instacart"

	costcoHomePage = "https://sameday.costco.com/store/costco/storefront"
	costcoInfoPage = "https://sameday.costco.com/store/costco/info?tab=delivery"

	shiptHomePage  = "https://shop.shipt.com/"
	shiptLoginPage = "https://shop.shipt.com/login"

	weeeHomePage   = "https://www.sayweee.com/"
	weeeConfigPage = "https://www.sayweee.com/zh"
)

// instacartStores maps the storefront path to a display name.
var instacartStores = map[string]string{
	"sprouts":            "Sprouts",
	"hmart":              "H Mart",
	"safeway":            "Safeway",
	"mollie-stones":      "Mollie Stone's",
	"smart-final":        "Smart & Final",
	"raleys":             "Raley's",
	"lucky-supermarkets": "Lucky",
}

// shiptStores lists the stores by the label Shipt shows in its store picker.
var shiptStores = []string{"99 Ranch", "Target", "Safeway"}

var instacartPanel = &InfoPage{
	Panel:         `div[aria-label*="retailer info modal" i] div#react-tabs-1`,
	NoSlotsMarker: "No delivery times available",
	// The first child of a slot row is either the bold day header or a flex
	// row whose first cell holds the time window.
	HeaderSelector: "div.module-wrapper:nth-child(2) > div > div > div > div:first-child:not(:has(div))",
	DetailSelector: "div.module-wrapper:nth-child(2) > div > div > div > div:first-child:has(div) > div:first-child",
}

// PageFactory opens a new, isolated browser session for one target.
type PageFactory func(target string) (repository.PageAccess, error)

// Deps are the shared resources probes are built from.
type Deps struct {
	Pages       PageFactory
	Credentials repository.CredentialSource
	Locks       *LockRegistry
	Timings     Timings
}

// Build creates the probe for one configured target.
func Build(t config.TargetConfig, deps Deps) (repository.SiteProbe, error) {
	if deps.Locks == nil {
		deps.Locks = NewLockRegistry()
	}

	switch t.Kind {
	case config.KindInstacart:
		site, err := instacartSite(t, deps)
		if err != nil {
			return nil, err
		}
		return newStorefront(t, site, deps)
	case config.KindCostco:
		return newStorefront(t, costcoSite(t, deps), deps)
	case config.KindShipt:
		site, err := shiptSite(t, deps)
		if err != nil {
			return nil, err
		}
		return newStorefront(t, site, deps)
	case config.KindWeee:
		site, err := weeeSite(t, deps)
		if err != nil {
			return nil, err
		}
		page, err := deps.Pages(t.Name)
		if err != nil {
			return nil, fmt.Errorf("open page for %s: %w", t.Name, err)
		}
		return NewWeeeProbe(t.Name, site, page), nil
	default:
		return nil, fmt.Errorf("unknown target kind %q", t.Kind)
	}
}

func newStorefront(t config.TargetConfig, site Site, deps Deps) (repository.SiteProbe, error) {
	page, err := deps.Pages(t.Name)
	if err != nil {
		return nil, fmt.Errorf("open page for %s: %w", t.Name, err)
	}
	return NewStorefrontProbe(t.Name, site, page), nil
}

func instacartSite(t config.TargetConfig, deps Deps) (Site, error) {
	path := strings.ToLower(t.Store)
	display, ok := instacartStores[path]
	if !ok {
		return Site{}, fmt.Errorf("target %q: unknown instacart store %q", t.Name, t.Store)
	}
	slog.Debug("Configured Instacart store", "target", t.Name, "store", display)

	home := fmt.Sprintf(instacartHomeFormat, path)
	info := *instacartPanel
	info.URL = fmt.Sprintf(instacartInfoFormat, path)
	return Site{
		HomeURL: home,
		Login: FormLogin{
			URL:           costcoLoginPage,
			CredentialID:  credentialID(t, "instacart-google-oauth"),
			Credentials:   deps.Credentials,
			UserField:     repository.ByID("logonId"),
			PasswordField: repository.ByID("logonPassword"),
			Timings:       deps.Timings,
		},
		Timings:           deps.Timings,
		DeliveryButton:    repository.Locator(fmt.Sprintf(instacartButtonFormat, path)),
		LabelLocator:      "span",
		UnavailableText:   []string{"Not available"},
		IndeterminateText: []string{"See delivery times"},
		LabelPrefix:       "Arrives ",
		InfoPage:          &info,
	}, nil
}

func costcoSite(t config.TargetConfig, deps Deps) Site {
	info := *instacartPanel
	info.URL = costcoInfoPage

	site := Site{
		HomeURL:          costcoHomePage,
		AcceptedHomeURLs: []string{costcoHomePage, "https://sameday.costco.com/store/"},
		Login: FormLogin{
			URL:           costcoLoginPage,
			CredentialID:  credentialID(t, "costco"),
			Credentials:   deps.Credentials,
			UserField:     repository.ByID("logonId"),
			PasswordField: repository.ByID("logonPassword"),
			Timings:       deps.Timings,
		},
		Timings:           deps.Timings,
		DeliveryButton:    `a[href~="/costco/info?tab=delivery"]`,
		LabelLocator:      "span",
		UnavailableText:   []string{"Not available"},
		IndeterminateText: []string{"See delivery times"},
		LabelPrefix:       "Arrives ",
		InfoPage:          &info,
	}
	if t.ZipCode != "" {
		expires := time.Now().AddDate(1, 0, 0)
		site.StartupCookies = []repository.Cookie{
			{Name: "memberPrimaryPostal", Value: t.ZipCode, Domain: "costco.com", Path: "/", Expires: expires},
			{Name: "direct_retailer_zip_code", Value: t.ZipCode, Domain: "sameday.costco.com", Path: "/", Expires: expires},
		}
	}
	return site
}

func shiptSite(t config.TargetConfig, deps Deps) (Site, error) {
	var label string
	for _, s := range shiptStores {
		if strings.EqualFold(s, t.Store) {
			label = s
			break
		}
	}
	if label == "" {
		return Site{}, fmt.Errorf("target %q: unknown shipt store %q", t.Name, t.Store)
	}

	account := t.Account
	if account == "" {
		account = "shipt"
	}
	timings := deps.Timings
	loginTimings := timings
	if loginTimings.SubmitSettle > 0 {
		loginTimings.SubmitSettle = 8 * time.Second
	}
	// Shipt returns to the storefront by itself once the login form settles.
	timings.LoginSettle = 0

	return Site{
		HomeURL:          shiptHomePage,
		AcceptedHomeURLs: []string{shiptHomePage, strings.TrimSuffix(shiptHomePage, "/")},
		Login: FormLogin{
			URL:           shiptLoginPage,
			CredentialID:  credentialID(t, "shipt"),
			Credentials:   deps.Credentials,
			UserField:     repository.ByID("username"),
			PasswordField: repository.ByID("password"),
			Timings:       loginTimings,
		},
		Timings:         timings,
		DeliveryButton:  `div[data-test~="NextDeliveryWindow-text"]`,
		LabelLocator:    `[class*="body"]`,
		UnavailableText: []string{"Not available", "Check back soon"},
		StoreSelection: &StoreSelection{
			Lock:            deps.Locks.Get(account),
			OpenPicker:      `button[data-test~="ShoppingStoreSelect-storeView"]`,
			StoreOption:     `form[data-test~="ChooseStore-form"] div[data-test~="ChooseStore-store"]`,
			OptionAttribute: "aria-label",
			StoreLabel:      label,
			SelectedStore:   `button[data-test~="ShoppingStoreSelect-storeView"]`,
		},
	}, nil
}

func weeeSite(t config.TargetConfig, deps Deps) (WeeeSite, error) {
	if t.ZipCode == "" {
		return WeeeSite{}, fmt.Errorf("target %q: kind weee requires zip_code", t.Name)
	}
	timings := deps.Timings
	timings.LoginSettle = 0
	if timings.PickerSettle > 0 {
		timings.PickerSettle = 3 * time.Second
	}

	return WeeeSite{
		HomeURL:          weeeHomePage,
		AcceptedHomeURLs: []string{weeeHomePage, strings.TrimSuffix(weeeHomePage, "/")},
		Config: ZipConfig{
			URL:              weeeConfigPage,
			ZipField:         repository.ByID("zip_code"),
			ConfiguredMarker: repository.ByID("date_select_header"),
			ZipCode:          t.ZipCode,
			Timings:          deps.Timings,
		},
		Timings:          timings,
		DateSelector:     repository.ByID("date_select_header"),
		DateList:         repository.ByID("date_list"),
		DateCell:         ".week .date-cell",
		UnavailableClass: "unavailable",
		BundleClass:      "has-bundle",
		ShowBundleBuy:    t.ShowBundleBuy,
	}, nil
}

// credentialID lets targets sharing a retailer use different accounts.
func credentialID(t config.TargetConfig, fallback string) string {
	if t.Account != "" {
		return t.Account
	}
	return fallback
}
