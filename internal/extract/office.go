package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kyiv-estate/rentscout/internal/model"
)

var (
	officeFragmentRE = regexp.MustCompile(`(?i)(\d+(?:-й|-й поверх| поверх|й поверх))\s+(\d+(?:\.\d+)?)m2\s*\((\d+(?:\.\d+)?)\$\)`)
	bcNameRE         = regexp.MustCompile(`Бізнес-(?:центр|парк)\s+([^\n\r]+)`)
	bcClassRE        = regexp.MustCompile(`(?i)Клас[:\s]*([A-Za-zА-Яа-я0-9]+)`)
	priceFormulaRE   = regexp.MustCompile(`(?i)ЦІНА[:\s]*([^\n\r]+)`)
	metroRE          = regexp.MustCompile(`Ⓜ️\s*([^\n\r]+)`)
)

// Offices extracts every per-unit office offer from one posting. Fragments
// look like "5-й поверх 150m2 (3000$)". Posting-level metadata (BC name,
// class, price formula, metro) is matched independently and attached to each
// offer; absent fields stay empty and their card lines are omitted.
func (e Extractor) Offices(p model.Posting) []model.Offer {
	text := stripBoilerplate(p.Text)
	if text == "" {
		return nil
	}

	name := "БЦ"
	if m := bcNameRE.FindStringSubmatch(text); m != nil {
		name = strings.TrimSpace(m[1])
	}
	class := firstGroup(bcClassRE, text)
	formula := firstGroup(priceFormulaRE, text)
	metro := firstGroup(metroRE, text)

	var offers []model.Offer
	for _, m := range officeFragmentRE.FindAllStringSubmatchIndex(text, -1) {
		floor := strings.TrimSpace(text[m[2]:m[3]])
		size, err := strconv.ParseFloat(text[m[4]:m[5]], 64)
		if err != nil || size <= 0 {
			continue
		}
		price, err := strconv.ParseFloat(text[m[6]:m[7]], 64)
		if err != nil || price <= 0 {
			continue
		}
		ppm2 := round2(price / size)

		link := ResolveLink(text, p.Spans, m[0], e.ChannelBase, p.ID)

		lines := []string{"<b>" + name + "</b>"}
		if class != "" {
			lines = append(lines, "Клас "+class)
		}
		if formula != "" {
			lines = append(lines, "ЦІНА: "+formula)
		}
		lines = append(lines,
			floor+", "+model.FormatNumber(size)+"м²",
			"💵 "+model.FormatAmount(price)+"$ ("+model.FormatNumber(ppm2)+"$/м²)",
		)
		if metro != "" {
			lines = append(lines, "Ⓜ️"+metro)
		}

		offers = append(offers, model.Offer{
			Kind:         model.KindOffice,
			Identity:     p.ID,
			GroupName:    name,
			GroupSlug:    fallbackSlug(Slugify(name), p.ID),
			SizeM2:       size,
			PriceTotal:   price,
			PricePerM2:   ppm2,
			DisplayText:  strings.Join(lines, "\n"),
			Link:         link,
			FloorLabel:   floor,
			BCClass:      class,
			Metro:        metro,
			PriceFormula: formula,
		})
	}
	return offers
}

func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
