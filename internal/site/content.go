// Package site holds the static parts of the FinReveal pages: navigation,
// footer, page copy and the visitor's location.
package site

import (
	"fmt"
	"strings"
	"time"
)

// Link is one anchor on the page.
type Link struct {
	Label string
	Href  string
}

// External reports whether the link leaves the site.
func (l Link) External() bool {
	return strings.HasPrefix(l.Href, "http://") ||
		strings.HasPrefix(l.Href, "https://")
}

// LinkSection is a titled column of links in the footer.
type LinkSection struct {
	Title string
	Links []Link
}

// ContactDetails is the postal and electronic contact block.
type ContactDetails struct {
	Email   string
	Phone   string
	Address string
}

// Navbar is the header content.
type Navbar struct {
	Items []Link

	// DesktopActions sit right of the menu on wide screens.
	DesktopActions []Link

	// DrawerActions close the mobile drawer.
	DrawerActions []Link
}

// Footer is the page footer content.
type Footer struct {
	Blurb    string
	Social   []Link
	Sections []LinkSection
	Contact  ContactDetails
	Owner    string
}

// Copyright returns the copyright line for the year of now.
func (f Footer) Copyright(now time.Time) string {
	return fmt.Sprintf("© %d %s. All rights reserved.", now.Year(), f.Owner)
}

// ContactPath is the route of the contact page.
const ContactPath = "/contact"

// HomePath is the route of the landing page.
const HomePath = "/"

// StickyContact is the fixed button shown on every page.
var StickyContact = Link{Label: "Contact Us", Href: ContactPath}

const dataRevealSite = "https://www.datareveal.ai/index.html"

// DefaultNavbar returns the FinReveal header.
func DefaultNavbar() Navbar {
	return Navbar{
		Items: []Link{
			{Label: "Home", Href: HomePath},
			{Label: "Features", Href: "/#features"},
			{Label: "Pricing", Href: "/#pricing"},
			{Label: "About", Href: "/#about"},
			{Label: "Contact", Href: ContactPath},
		},
		DesktopActions: []Link{
			{Label: "Sign In", Href: ContactPath},
			{Label: "Create an Account", Href: ContactPath},
		},
		DrawerActions: []Link{
			{Label: "Sign In", Href: "/signin"},
			{Label: "Explore the Demo", Href: "/demo"},
		},
	}
}

// DefaultFooter returns the FinReveal footer.
func DefaultFooter() Footer {
	return Footer{
		Blurb: "FinReveal is a product of DREV, designed to simplify " +
			"financial insights and decision making for businesses of " +
			"all sizes.",
		Social: []Link{
			{Label: "Facebook", Href: "#"},
			{Label: "Twitter", Href: "#"},
			{
				Label: "LinkedIn",
				Href: "https://www.linkedin.com/company/datareveal/" +
					"posts/?feedView=all",
			},
			{
				Label: "YouTube",
				Href:  "https://www.youtube.com/@DataRevealai",
			},
		},
		Sections: []LinkSection{
			{
				Title: "Platform",
				Links: []Link{
					{Label: "Pricing", Href: "/#pricing"},
					{Label: "Privacy Policy", Href: "#"},
					{Label: "Terms of Service", Href: "#"},
				},
			},
			{
				Title: "Support",
				Links: []Link{
					{Label: "FAQs", Href: "#"},
					{Label: "Contact Us", Href: ContactPath},
					{Label: "Documentation", Href: "#"},
				},
			},
			{
				Title: "Company",
				Links: []Link{
					{Label: "Blog", Href: "#"},
					{Label: "Products", Href: dataRevealSite},
					{Label: "About Us", Href: dataRevealSite},
				},
			},
		},
		Contact: ContactDetails{
			Email:   "baladaks@datareveal.ai",
			Phone:   "+1-704-206-9793",
			Address: "4924, Durham Drive, Plano Texas, USA 75093",
		},
		Owner: "DREV",
	}
}
