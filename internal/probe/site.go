package probe

import "github.com/user/slotwatch/internal/repository"

// Site describes where a storefront shows its next delivery window and how
// to read it.
type Site struct {
	HomeURL string
	// AcceptedHomeURLs are the URLs that count as a successful home load.
	// HomeURL is used alone when empty.
	AcceptedHomeURLs []string
	Login            LoginStep
	Timings          Timings
	StartupCookies   []repository.Cookie

	DeliveryButton repository.Locator
	// LabelLocator narrows the button to the element carrying the label text.
	LabelLocator      repository.Locator
	UnavailableText   []string
	IndeterminateText []string
	LabelPrefix       string

	StoreSelection *StoreSelection
	InfoPage       *InfoPage
}

// StoreSelection switches a shared account to one store before reading the
// label. The account lock is held from selection until the label is read.
type StoreSelection struct {
	Lock       Locker
	OpenPicker repository.Locator
	// StoreOption matches every selectable store; the one whose
	// OptionAttribute equals StoreLabel is clicked.
	StoreOption     repository.Locator
	OptionAttribute string
	StoreLabel      string
	// SelectedStore shows the active store's name once selection has stuck.
	SelectedStore repository.Locator
}

// InfoPage is the fallback consulted when the primary label is inconclusive.
type InfoPage struct {
	URL           string
	Panel         repository.Locator
	NoSlotsMarker string
	// HeaderSelector and DetailSelector are evaluated against the panel's
	// inner HTML.
	HeaderSelector string
	DetailSelector string
}

func (s Site) acceptedHome() []string {
	if len(s.AcceptedHomeURLs) == 0 {
		return []string{s.HomeURL}
	}
	return s.AcceptedHomeURLs
}
