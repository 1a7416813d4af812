package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kyiv-estate/rentscout/internal/model"
)

var (
	warehouseFragmentRE = regexp.MustCompile(`(?i)([^\n\r]+?)\s+(\d+(?:\.\d+)?)m2\s*\(\s*([0-9.,]+)\$\s*\)\s*(?:\((https?://[^\s)]+)\))?`)
	afterColonRE        = regexp.MustCompile(`[:]\s*(.+)`)
	shoreRE             = regexp.MustCompile(`[Бб]ерег[:\s]*([^\n\r]+)`)
	heightRE            = regexp.MustCompile(`(?i)([\d.]+)\s*[mм]`)
	powerRE             = regexp.MustCompile(`([\d.,]+)`)
	whClassRE           = regexp.MustCompile(`(?i)клас[:\s]*([A-Za-zА-Яа-я0-9]+)`)
)

// warehouseMeta is the posting-level metadata scanned from the header lines.
type warehouseMeta struct {
	title      string
	address    string
	shoreLabel string
	metro      string
	height     float64
	power      string
	class      string
}

// metaScanLines caps how deep into a posting the metadata scan looks. Offer
// fragments further down are still matched over the whole text.
const metaScanLines = 12

func scanWarehouseMeta(text string) warehouseMeta {
	var meta warehouseMeta

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return meta
	}
	meta.title = lines[0]

	limit := len(lines)
	if limit > metaScanLines {
		limit = metaScanLines
	}
	for _, ln := range lines[1:limit] {
		low := strings.ToLower(ln)

		if strings.HasPrefix(ln, "📍") || strings.Contains(low, "адрес") {
			if m := afterColonRE.FindStringSubmatch(ln); m != nil {
				meta.address = strings.TrimSpace(m[1])
			} else {
				meta.address = strings.TrimSpace(strings.TrimPrefix(ln, "📍"))
			}
		}
		if strings.Contains(low, "берег") {
			if m := shoreRE.FindStringSubmatch(ln); m != nil {
				if fields := strings.Fields(m[1]); len(fields) > 0 {
					meta.shoreLabel = fields[0]
				}
			}
		}
		if strings.HasPrefix(ln, "Ⓜ️") || strings.HasPrefix(low, "м") {
			meta.metro = strings.TrimSpace(strings.TrimPrefix(ln, "Ⓜ️"))
		}
		if strings.Contains(low, "висота") {
			if m := heightRE.FindStringSubmatch(ln); m != nil {
				if h, err := strconv.ParseFloat(m[1], 64); err == nil {
					meta.height = h
				}
			}
		}
		if strings.Contains(low, "потужн") || strings.Contains(low, "квт") {
			if m := powerRE.FindStringSubmatch(ln); m != nil {
				meta.power = strings.ReplaceAll(m[1], ",", ".")
			}
		}
		if strings.Contains(low, "клас") {
			meta.class = firstGroup(whClassRE, ln)
		}
	}
	return meta
}

// normalizeShore maps a free-text shore label onto the closed Shore enum.
func normalizeShore(label string) model.Shore {
	low := strings.ToLower(label)
	switch {
	case strings.HasPrefix(low, "лів"):
		return model.ShoreLeft
	case strings.HasPrefix(low, "прав"):
		return model.ShoreRight
	default:
		return model.ShoreUnknown
	}
}

// Warehouses extracts every warehouse offer from one posting. Fragments look
// like "Секція А 800m2 (4,000$)" with an optional explicit detail URL in a
// trailing parenthesized group; that URL beats the span-proximity heuristic.
func (e Extractor) Warehouses(p model.Posting) []model.Offer {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil
	}
	meta := scanWarehouseMeta(text)

	displayName := meta.title
	if displayName == "" {
		displayName = meta.address
	}
	if displayName == "" {
		displayName = fmt.Sprintf("Склад %d", p.ID)
	}

	var offers []model.Offer
	for _, m := range warehouseFragmentRE.FindAllStringSubmatchIndex(text, -1) {
		desc := strings.TrimSpace(text[m[2]:m[3]])
		size, err := strconv.ParseFloat(text[m[4]:m[5]], 64)
		if err != nil || size <= 0 {
			continue
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(text[m[6]:m[7]], ",", ""), 64)
		if err != nil || price <= 0 {
			continue
		}
		ppm2 := round2(price / size)

		link := ""
		if m[8] >= 0 {
			link = text[m[8]:m[9]]
		}
		if link == "" {
			link = ResolveLink(text, p.Spans, m[0], e.ChannelBase, p.ID)
		}

		lines := []string{"<b>" + displayName + "</b>"}
		if meta.address != "" {
			lines = append(lines, "📍 "+meta.address)
		}
		if meta.metro != "" {
			lines = append(lines, "Ⓜ️ "+meta.metro)
		}
		if meta.shoreLabel != "" {
			lines = append(lines, "🚩 Берег: "+meta.shoreLabel)
		}
		if meta.class != "" {
			lines = append(lines, "🏗 Клас: "+meta.class)
		}
		if meta.height > 0 {
			lines = append(lines, "📏 Висота стелі: "+model.FormatNumber(meta.height)+" м")
		}
		if meta.power != "" {
			lines = append(lines, "⚡ Потужність: "+meta.power)
		}
		lines = append(lines,
			desc+", "+model.FormatNumber(size)+"м²",
			"💵 "+model.FormatAmount(price)+"$ ("+model.FormatNumber(ppm2)+"$/м²)",
		)

		offers = append(offers, model.Offer{
			Kind:           model.KindWarehouse,
			Identity:       p.ID,
			GroupName:      displayName,
			GroupSlug:      fallbackSlug(Slugify(displayName), p.ID),
			SizeM2:         size,
			PriceTotal:     price,
			PricePerM2:     ppm2,
			DisplayText:    strings.Join(lines, "\n"),
			Link:           link,
			Address:        meta.address,
			Shore:          normalizeShore(meta.shoreLabel),
			CeilingHeight:  meta.height,
			PowerRating:    meta.power,
			WarehouseClass: meta.class,
		})
	}
	return offers
}

// Extract dispatches on the listing kind.
func (e Extractor) Extract(kind model.Kind, p model.Posting) []model.Offer {
	if kind == model.KindWarehouse {
		return e.Warehouses(p)
	}
	return e.Offices(p)
}
