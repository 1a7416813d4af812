// Package pipeline orchestrates a search: refresh the posting archive from
// the channel source, extract and filter offers, and serve paged cards with
// materialized collages.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kyiv-estate/rentscout/internal/archive"
	"github.com/kyiv-estate/rentscout/internal/calc"
	"github.com/kyiv-estate/rentscout/internal/extract"
	"github.com/kyiv-estate/rentscout/internal/filter"
	"github.com/kyiv-estate/rentscout/internal/model"
	"github.com/kyiv-estate/rentscout/internal/session"
)

var (
	ErrNoSession      = eris.New("pipeline: unknown session")
	ErrNoCard         = eris.New("pipeline: unknown card")
	ErrPageOutOfRange = eris.New("pipeline: page out of range")
)

// ChannelSource yields postings newer than sinceID, ascending.
type ChannelSource interface {
	Messages(ctx context.Context, channel string, sinceID int) ([]model.Posting, error)
}

// CollageCache materializes a collage for an offer group. nil means the
// group has no usable photos.
type CollageCache interface {
	Ensure(ctx context.Context, channel, groupSlug string, postingID int) []byte
}

// Options configures the Service.
type Options struct {
	ChannelBase      string // e.g. https://t.me
	OfficeChannel    string
	WarehouseChannel string
	PageSize         int
	ArchiveLimit     int // how many archived postings one search reads
}

// Service is the search orchestrator.
type Service struct {
	source   ChannelSource
	archive  archive.Store
	collages CollageCache
	sessions *session.Store
	opts     Options
}

// NewService wires the orchestrator together.
func NewService(src ChannelSource, arch archive.Store, collages CollageCache, sessions *session.Store, opts Options) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	if opts.ArchiveLimit <= 0 {
		opts.ArchiveLimit = 200
	}
	return &Service{source: src, archive: arch, collages: collages, sessions: sessions, opts: opts}
}

func (s *Service) channelFor(kind model.Kind) string {
	if kind == model.KindWarehouse {
		return s.opts.WarehouseChannel
	}
	return s.opts.OfficeChannel
}

// Search runs a full query and opens a session over the ranked results. The
// returned token addresses the session in later page and calculator calls.
// A search replaces whatever session the token's user had before.
func (s *Service) Search(ctx context.Context, params filter.Params) (string, int, error) {
	channel := s.channelFor(params.Kind)
	postings, err := s.refresh(ctx, channel)
	if err != nil {
		return "", 0, err
	}

	ex := extract.Extractor{ChannelBase: s.opts.ChannelBase + "/" + channel}
	var offers []model.Offer
	for _, p := range postings {
		offers = append(offers, ex.Extract(params.Kind, p)...)
	}
	offers = filter.Apply(offers, params)

	token := uuid.New().String()
	s.sessions.Replace(token, offers)

	zap.L().Info("pipeline: search",
		zap.String("kind", string(params.Kind)),
		zap.Int("postings", len(postings)),
		zap.Int("offers", len(offers)))
	return token, len(offers), nil
}

// refresh pulls postings the archive has not seen yet, persists them, and
// returns the archive's recent window. A source failure degrades to archived
// history instead of failing the search.
func (s *Service) refresh(ctx context.Context, channel string) ([]model.Posting, error) {
	latest, err := s.archive.LatestID(ctx, channel)
	if err != nil {
		return nil, err
	}

	fresh, err := s.source.Messages(ctx, channel, latest)
	if err != nil {
		zap.L().Warn("pipeline: channel fetch failed, serving archive",
			zap.String("channel", channel), zap.Error(err))
	} else if len(fresh) > 0 {
		if err := s.archive.SavePostings(ctx, fresh); err != nil {
			return nil, err
		}
	}

	return s.archive.Postings(ctx, channel, s.opts.ArchiveLimit)
}

// Card is one result card of a page.
type Card struct {
	ID        string `json:"id"`
	PostingID int    `json:"posting_id"`
	GroupSlug string `json:"group_slug"`
	Caption   string `json:"caption"`
	HasPhoto  bool   `json:"has_photo"`
}

// PageView is one rendered page of a session.
type PageView struct {
	Page        int    `json:"page"`
	TotalPages  int    `json:"total_pages"`
	TotalOffers int    `json:"total_offers"`
	HasPrev     bool   `json:"has_prev"`
	HasNext     bool   `json:"has_next"`
	Cards       []Card `json:"cards"`
}

// Page renders page n (zero-based) of the session. Collages for the page's
// offers are materialized concurrently, but cards always come back in ranked
// order. Offers without a collage degrade to text cards.
func (s *Service) Page(ctx context.Context, token string, n int) (PageView, error) {
	sess := s.sessions.Get(token)
	if sess == nil {
		return PageView{}, ErrNoSession
	}

	total := len(sess.Results)
	totalPages := (total + s.opts.PageSize - 1) / s.opts.PageSize
	if n < 0 || (n >= totalPages && n != 0) {
		return PageView{}, ErrPageOutOfRange
	}

	start := n * s.opts.PageSize
	end := min(start+s.opts.PageSize, total)
	offers := sess.Results[start:end]

	kind := model.KindOffice
	if len(offers) > 0 {
		kind = offers[0].Kind
	}
	channel := s.channelFor(kind)

	collages := make([][]byte, len(offers))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range offers {
		g.Go(func() error {
			collages[i] = s.collages.Ensure(gctx, channel, o.GroupSlug, o.Identity)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PageView{}, err
	}

	cards := make([]Card, len(offers))
	for i, o := range offers {
		mode := session.RenderText
		if collages[i] != nil {
			mode = session.RenderPhoto
		}
		card := Card{
			ID:        uuid.New().String(),
			PostingID: o.Identity,
			GroupSlug: o.GroupSlug,
			Caption:   o.DisplayText,
			HasPhoto:  mode == session.RenderPhoto,
		}
		s.sessions.PutCard(card.ID, session.CardRecord{Offer: o, Mode: mode})
		cards[i] = card
	}
	s.sessions.SetPage(token, n)

	return PageView{
		Page:        n,
		TotalPages:  totalPages,
		TotalOffers: total,
		HasPrev:     n > 0,
		HasNext:     n+1 < totalPages,
		Cards:       cards,
	}, nil
}

// Calculator appends the lease cost breakdown to a card's caption and
// returns the updated caption. Applying it twice is a no-op: the annotated
// caption from the first application comes back unchanged. When the card
// record is gone the offer is recovered from the session by posting id.
func (s *Service) Calculator(_ context.Context, token, cardID string, postingID int, now time.Time) (string, error) {
	rec := s.sessions.Card(cardID)
	if rec == nil {
		offer, ok := s.sessions.FindOffer(token, postingID)
		if !ok {
			return "", ErrNoCard
		}
		rec = &session.CardRecord{Offer: offer, Mode: session.RenderText}
		s.sessions.PutCard(cardID, *rec)
	}
	if rec.CalcApplied {
		return rec.Offer.DisplayText, nil
	}

	annotated := rec.Offer.DisplayText + calc.Block(calc.Lease(rec.Offer, now))
	updated := *rec
	updated.Offer.DisplayText = annotated
	updated.CalcApplied = true
	s.sessions.PutCard(cardID, updated)
	return annotated, nil
}

// Warm pre-materializes collages for every distinct offer group of a kind.
// Returns how many groups now have a collage.
func (s *Service) Warm(ctx context.Context, kind model.Kind) (int, error) {
	channel := s.channelFor(kind)
	postings, err := s.refresh(ctx, channel)
	if err != nil {
		return 0, err
	}

	ex := extract.Extractor{ChannelBase: s.opts.ChannelBase + "/" + channel}
	seen := make(map[string]int)
	for _, p := range postings {
		for _, o := range ex.Extract(kind, p) {
			if _, ok := seen[o.GroupSlug]; !ok {
				seen[o.GroupSlug] = o.Identity
			}
		}
	}

	warmed := 0
	for slug, postingID := range seen {
		if data := s.collages.Ensure(ctx, channel, slug, postingID); data != nil {
			warmed++
		}
	}
	zap.L().Info("pipeline: warmed collages",
		zap.String("kind", string(kind)), zap.Int("groups", len(seen)), zap.Int("warmed", warmed))
	return warmed, nil
}

// Offers runs extraction over the archive window without opening a session,
// for exports.
func (s *Service) Offers(ctx context.Context, params filter.Params) ([]model.Offer, error) {
	channel := s.channelFor(params.Kind)
	postings, err := s.refresh(ctx, channel)
	if err != nil {
		return nil, err
	}

	ex := extract.Extractor{ChannelBase: s.opts.ChannelBase + "/" + channel}
	var offers []model.Offer
	for _, p := range postings {
		offers = append(offers, ex.Extract(params.Kind, p)...)
	}
	return filter.Apply(offers, params), nil
}
