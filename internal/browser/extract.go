// internal/browser/extract.go
package browser

import (
	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// refAttribute is the temporary marker attribute the extraction script stamps
// onto every candidate so actions can resolve back to the exact element even
// after the DOM shifts.
const refAttribute = "data-meander-ref"

// jsPageHelpers is shared between the full extraction and the lightweight
// change probe. Both must classify and label elements identically or the
// structural fingerprints they feed drift apart.
const jsPageHelpers = `
	const collapse = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const blockText = (el) => collapse(el.innerText).slice(0, 1200);

	const isVisible = (el) => {
		const st = window.getComputedStyle(el);
		if (st.visibility === 'hidden' || st.display === 'none' || st.opacity === '0') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};
	const isDisabled = (el) => el.disabled === true || el.getAttribute('aria-disabled') === 'true';

	const roleOf = (el) => {
		const r = (el.getAttribute('role') || '').toLowerCase();
		if (r === 'button') return 'button';
		if (r === 'link') return 'link';
		if (r === 'tab') return 'tab';
		if (r === 'menuitem' || r === 'menu') return 'menu';
		const tag = el.tagName.toLowerCase();
		if (tag === 'a') return el.getAttribute('href') ? 'link' : '';
		if (tag === 'button') return 'button';
		if (tag === 'select') return 'select';
		if (tag === 'textarea') return 'input';
		if (tag === 'input') {
			const t = (el.getAttribute('type') || 'text').toLowerCase();
			if (t === 'hidden') return '';
			if (t === 'submit' || t === 'button' || t === 'image') return 'button';
			if (t === 'checkbox' || t === 'radio') return 'checkbox';
			return 'input';
		}
		return 'other';
	};

	const labelOf = (el) => {
		const aria = collapse(el.getAttribute('aria-label'));
		if (aria) return aria;
		const text = collapse(el.innerText);
		if (text) return text.slice(0, 80);
		for (const attr of ['placeholder', 'value', 'title', 'alt', 'name']) {
			const v = collapse(el.getAttribute(attr));
			if (v) return v;
		}
		const href = el.getAttribute('href');
		if (href) return href;
		return el.tagName.toLowerCase();
	};

	const interactive = 'a[href], button, input, select, textarea, [onclick], [role=button], [role=link], [role=tab], [role=menuitem]';
`

// extractScript snapshots the page in a single evaluation: it retags every
// visible interactive element with a fresh ref, measures its visual weight,
// and collects the readable text blocks. Returns a pageDTO-shaped object.
const extractScript = `(() => {` + jsPageHelpers + `
	const prominenceOf = (el) => {
		const rect = el.getBoundingClientRect();
		const st = window.getComputedStyle(el);
		const area = Math.min(rect.width * rect.height, 40000);
		let p = 0.2 + 0.5 * (area / 40000);
		if (rect.top >= 0 && rect.top < window.innerHeight) p += 0.2;
		const weight = parseInt(st.fontWeight, 10) || 400;
		if (parseFloat(st.fontSize) >= 18 || weight >= 600) p += 0.1;
		if (el.closest('nav, header')) p += 0.1;
		if (el.closest('footer')) p -= 0.25;
		return Math.max(0.05, Math.min(1, p));
	};

	document.querySelectorAll('[data-meander-ref]').forEach((el) => el.removeAttribute('data-meander-ref'));

	const candidates = [];
	document.querySelectorAll(interactive).forEach((el) => {
		if (!isVisible(el) || isDisabled(el)) return;
		const role = roleOf(el);
		if (!role) return;
		const rect = el.getBoundingClientRect();
		const ref = 'mnd-' + candidates.length;
		el.setAttribute('data-meander-ref', ref);
		candidates.push({
			ref: ref,
			label: labelOf(el),
			role: role,
			prominence: prominenceOf(el),
			x: rect.left + rect.width / 2,
			y: rect.top + rect.height / 2,
			flowDepth: el.closest('form') ? 1 : 0,
			href: el.getAttribute('href') || ''
		});
	});

	const content = [];
	const push = (kind, el) => {
		const t = blockText(el);
		if (t) content.push({kind: kind, text: t});
	};
	document.querySelectorAll('h1, h2, h3, h4, h5, h6').forEach((el) => { if (isVisible(el)) push('heading', el); });
	document.querySelectorAll('p').forEach((el) => { if (isVisible(el)) push('paragraph', el); });
	document.querySelectorAll('ul, ol').forEach((el) => {
		if (!isVisible(el) || el.closest('nav')) return;
		const items = Array.from(el.querySelectorAll(':scope > li')).map((li) => collapse(li.innerText)).filter((t) => t);
		if (items.length) content.push({kind: 'list', text: items.join('; ').slice(0, 1200)});
	});
	document.querySelectorAll('nav').forEach((el) => { if (isVisible(el)) push('nav', el); });
	document.querySelectorAll('[role=alert], [role=alertdialog], .alert, .error').forEach((el) => { if (isVisible(el)) push('alert', el); });

	return {
		url: location.href,
		title: document.title,
		candidates: candidates,
		content: content
	};
})()`

// probeScript recomputes only what the structural fingerprint hashes, without
// retagging anything. Used after an action to tell whether the page moved.
const probeScript = `(() => {` + jsPageHelpers + `
	const candidates = [];
	document.querySelectorAll(interactive).forEach((el) => {
		if (!isVisible(el) || isDisabled(el)) return;
		const role = roleOf(el);
		if (!role) return;
		candidates.push({role: role, label: labelOf(el), href: el.getAttribute('href') || ''});
	});
	const headings = [];
	document.querySelectorAll('h1, h2, h3, h4, h5, h6').forEach((el) => {
		if (!isVisible(el)) return;
		const t = blockText(el);
		if (t) headings.push(t);
	});
	return {url: location.href, title: document.title, candidates: candidates, headings: headings};
})()`

// pageDTO is the raw shape the extraction script returns.
type pageDTO struct {
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	Candidates []candidateDTO `json:"candidates"`
	Content    []contentDTO   `json:"content"`
}

type candidateDTO struct {
	Ref        string  `json:"ref"`
	Label      string  `json:"label"`
	Role       string  `json:"role"`
	Prominence float64 `json:"prominence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FlowDepth  int     `json:"flowDepth"`
	Href       string  `json:"href"`
}

type contentDTO struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// probeDTO is the raw shape the change probe returns.
type probeDTO struct {
	URL        string              `json:"url"`
	Title      string              `json:"title"`
	Candidates []probeCandidateDTO `json:"candidates"`
	Headings   []string            `json:"headings"`
}

type probeCandidateDTO struct {
	Role  string `json:"role"`
	Label string `json:"label"`
	Href  string `json:"href"`
}

// toObservation converts a raw page snapshot into the engine's observation,
// normalizing roles and clamping prominence into its documented range.
func toObservation(dto pageDTO) schemas.Observation {
	obs := schemas.Observation{
		URL:        dto.URL,
		Title:      dto.Title,
		Candidates: make([]schemas.CandidateElement, 0, len(dto.Candidates)),
	}
	for _, c := range dto.Candidates {
		obs.Candidates = append(obs.Candidates, schemas.CandidateElement{
			Ref:        c.Ref,
			Label:      c.Label,
			Role:       parseRole(c.Role),
			Prominence: clampProminence(c.Prominence),
			Position:   schemas.Point{X: c.X, Y: c.Y},
			FlowDepth:  c.FlowDepth,
			Href:       c.Href,
		})
	}
	for _, b := range dto.Content {
		kind, ok := parseContentKind(b.Kind)
		if !ok || b.Text == "" {
			continue
		}
		obs.Content = append(obs.Content, schemas.ContentBlock{Kind: kind, Text: b.Text})
	}
	obs.Fingerprint = obs.StructuralFingerprint()
	return obs
}

// probeFingerprint hashes a probe snapshot the same way toObservation hashes
// a full one, so the two are directly comparable.
func probeFingerprint(dto probeDTO) string {
	obs := schemas.Observation{Title: dto.Title}
	for _, c := range dto.Candidates {
		obs.Candidates = append(obs.Candidates, schemas.CandidateElement{
			Role:  parseRole(c.Role),
			Label: c.Label,
			Href:  c.Href,
		})
	}
	for _, h := range dto.Headings {
		obs.Content = append(obs.Content, schemas.ContentBlock{Kind: schemas.ContentHeading, Text: h})
	}
	return obs.StructuralFingerprint()
}

func parseRole(s string) schemas.ElementRole {
	switch schemas.ElementRole(s) {
	case schemas.RoleLink, schemas.RoleButton, schemas.RoleInput, schemas.RoleSelect,
		schemas.RoleCheckbox, schemas.RoleTab, schemas.RoleMenu:
		return schemas.ElementRole(s)
	default:
		return schemas.RoleOther
	}
}

func parseContentKind(s string) (schemas.ContentKind, bool) {
	switch schemas.ContentKind(s) {
	case schemas.ContentHeading, schemas.ContentParagraph, schemas.ContentList,
		schemas.ContentNav, schemas.ContentAlert:
		return schemas.ContentKind(s), true
	default:
		return "", false
	}
}

func clampProminence(v float64) float64 {
	if v < 0.05 {
		return 0.05
	}
	if v > 1 {
		return 1
	}
	return v
}
