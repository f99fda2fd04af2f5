package report

import "github.com/gradekit/site-grader/internal/audit"

// Guidance is the remediation copy rendered for a failed check in the pro
// report's detailed findings.
type Guidance struct {
	Title string
	Why   string
	Fix   string
}

var guidanceByKind = map[audit.CheckKind]Guidance{
	audit.CheckPageSpeed: {
		Title: "Page loads slowly",
		Why:   "Visitors abandon pages that take more than a few seconds to load, and search engines rank slow pages lower.",
		Fix:   "Compress images, enable caching on your host, and remove unused scripts and plugins.",
	},
	audit.CheckHTTPS: {
		Title: "Site is not served over HTTPS",
		Why:   "Browsers flag plain HTTP sites as not secure, which drives visitors away and hurts search ranking.",
		Fix:   "Install an SSL certificate (most hosts offer free ones) and redirect all HTTP traffic to HTTPS.",
	},
	audit.CheckTitleTag: {
		Title: "Missing page title",
		Why:   "The title tag is the headline search engines show for your site. Without it you lose clicks and ranking.",
		Fix:   "Add a descriptive title of 50-60 characters that names your business and what it does.",
	},
	audit.CheckMetaDescription: {
		Title: "Missing meta description",
		Why:   "The meta description is the snippet under your search result. Without one, search engines improvise.",
		Fix:   "Write a 150-160 character summary of the page that includes your main service and location.",
	},
	audit.CheckSingleH1: {
		Title: "Page needs exactly one main heading",
		Why:   "A single H1 tells search engines what the page is about. Zero or multiple H1s dilute that signal.",
		Fix:   "Use one H1 for the page's main message and H2/H3 tags for everything beneath it.",
	},
	audit.CheckImageAltText: {
		Title: "Images are missing alt text",
		Why:   "Alt text makes images readable to screen readers and search engines.",
		Fix:   "Add a short description to every meaningful image's alt attribute.",
	},
	audit.CheckSitemap: {
		Title: "No sitemap found",
		Why:   "A sitemap helps search engines find and index every page of your site.",
		Fix:   "Generate a sitemap.xml (most site builders do this automatically) and submit it in Google Search Console.",
	},
	audit.CheckCallToAction: {
		Title: "No clear call to action",
		Why:   "Visitors who are not told what to do next usually leave. A visible action button turns visits into leads.",
		Fix:   "Add a prominent button above the fold, such as Get a Quote, Book Now or Sign Up.",
	},
	audit.CheckFormPresence: {
		Title: "No lead capture form",
		Why:   "Without a form, interested visitors have no low-effort way to reach you before they move on.",
		Fix:   "Add a short contact or signup form; name and email is usually enough to start.",
	},
	audit.CheckTrustElements: {
		Title: "No trust signals",
		Why:   "Testimonials, reviews and security badges reassure first-time visitors that your business is legitimate.",
		Fix:   "Add two or three customer quotes with names, and badges for any certifications you hold.",
	},
	audit.CheckContactMethod: {
		Title: "No obvious way to get in touch",
		Why:   "Visitors who cannot find a phone number, email or contact page rarely go looking for one.",
		Fix:   "Put a phone number or email in the header or footer and link a dedicated contact page.",
	},
	audit.CheckLogoPresence: {
		Title: "No logo detected",
		Why:   "A visible logo anchors your brand and makes the site feel established.",
		Fix:   "Place your logo in the site header, linked to the home page.",
	},
	audit.CheckBrandConsistent: {
		Title: "Inconsistent styling",
		Why:   "Many ad-hoc colors and fonts make a site look unfinished and erode trust.",
		Fix:   "Settle on two or three brand colors and at most two fonts, then apply them through a single stylesheet.",
	},
	audit.CheckProDomain: {
		Title: "Site runs on a free hosting domain",
		Why:   "A free subdomain signals a temporary or hobby site to customers and search engines alike.",
		Fix:   "Register a custom domain for your business and point your site at it.",
	},
	audit.CheckVisualHierarchy: {
		Title: "Weak page structure",
		Why:   "Without clear headings, sections and navigation, visitors struggle to scan the page.",
		Fix:   "Organize content under a main heading with subheadings, and add a navigation menu.",
	},
	audit.CheckSocialLinks: {
		Title: "Few or no social media links",
		Why:   "Active social profiles are a trust signal and a second way for customers to find you.",
		Fix:   "Link at least two active profiles, ideally in the footer of every page.",
	},
	audit.CheckGoogleBusiness: {
		Title: "No Google Business signals",
		Why:   "A Google Business profile drives local search visibility and map results.",
		Fix:   "Claim your Google Business profile and link your map listing or reviews from the site.",
	},
	audit.CheckContentPresence: {
		Title: "No fresh content",
		Why:   "A blog or news section shows the business is active and gives search engines more pages to index.",
		Fix:   "Publish short updates or articles on a schedule, even monthly helps.",
	},
}

// GuidanceFor returns remediation copy for a check kind.
func GuidanceFor(kind audit.CheckKind) (Guidance, bool) {
	g, ok := guidanceByKind[kind]
	return g, ok
}
