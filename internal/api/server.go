// Package api exposes the running world over HTTP: public read endpoints
// for dashboards and an admin surface for player commands.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vantagegames/magnate/internal/config"
	"github.com/vantagegames/magnate/internal/ecs"
	"github.com/vantagegames/magnate/internal/engine"
	"github.com/vantagegames/magnate/internal/persistence"
	"github.com/vantagegames/magnate/internal/sim"
)

// Server wires the engine and snapshot store into an HTTP handler.
type Server struct {
	cfg config.APIConfig
	log *slog.Logger
	eng *engine.Engine
	db  *persistence.DB
	mux *chi.Mux
}

// New builds the server and registers its routes.
func New(cfg config.APIConfig, logger *slog.Logger, eng *engine.Engine, db *persistence.DB) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg: cfg,
		log: logger,
		eng: eng,
		db:  db,
		mux: chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	limiter := NewRateLimiter(s.cfg.RatePerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Get("/status", s.handleStatus)
			r.Get("/cities", s.handleCities)
			r.Get("/companies", s.handleCompanies)
			r.Get("/companies/{id}", s.handleCompanyDetail)
			r.Get("/market", s.handleMarket)
			r.Get("/news", s.handleNews)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Post("/speed", s.handleSpeed)
			r.Post("/save", s.handleSave)
			r.Post("/companies/{id}/dividend", s.handleDividend)
			r.Post("/companies/{id}/loans", s.handleIssueLoan)
			r.Post("/companies/{id}/loans/{loan_id}/prepay", s.handlePrepayLoan)
			r.Post("/companies/{id}/bonds", s.handleIssueBond)
			r.Post("/companies/{id}/shares/issue", s.handleIssueShares)
			r.Post("/companies/{id}/shares/buyback", s.handleBuyback)
			r.Post("/buildings/{id}/price", s.handleSlotPrice)
			r.Post("/buildings/{id}/operational", s.handleOperational)
			r.Post("/buildings/{id}/supply", s.handleSupplyLink)
		})
	})
}

// adminMiddleware guards the command surface with a bearer key. With no
// key configured the whole surface stays disabled.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled")
			return
		}
		if bearerToken(r.Header.Get("Authorization")) != s.cfg.AdminKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var out any
	s.eng.WithRead(func(world *sim.World) {
		out = map[string]any{
			"tick":        world.Tick,
			"day":         world.Day(),
			"date":        world.Date().Format("2006-01-02"),
			"cycle_phase": world.CyclePhase(),
			"recession":   world.Recession(),
			"boom":        world.Boom(),
			"fuel_price":  world.FuelPrice,
			"rate_bps":    world.CentralRateBps(),
			"speed":       s.eng.Speed,
			"companies":   len(world.CompanyList),
			"cities":      len(world.CityList),
			"buildings":   world.Buildings.Len(),
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	type cityView struct {
		Entity           ecs.Entity `json:"entity"`
		Name             string     `json:"name"`
		Population       int        `json:"population"`
		PurchasingPower  float64    `json:"purchasing_power"`
		Unemployment     float64    `json:"unemployment"`
		Sentiment        float64    `json:"sentiment"`
		InterestBps      float64    `json:"interest_bps"`
		DemandMultiplier float64    `json:"demand_multiplier"`
	}
	var out []cityView
	s.eng.WithRead(func(world *sim.World) {
		for _, e := range world.CityList {
			c := world.Cities.Get(e)
			if c == nil {
				continue
			}
			out = append(out, cityView{
				Entity:           e,
				Name:             c.Name,
				Population:       c.Population,
				PurchasingPower:  c.PurchasingPower,
				Unemployment:     c.Unemployment,
				Sentiment:        c.Sentiment,
				InterestBps:      c.InterestBps,
				DemandMultiplier: c.DemandMult,
			})
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"cities": out})
}

func (s *Server) handleCompanies(w http.ResponseWriter, _ *http.Request) {
	type companyView struct {
		Entity     ecs.Entity `json:"entity"`
		Name       string     `json:"name"`
		Symbol     string     `json:"symbol"`
		IsAI       bool       `json:"is_ai"`
		Reputation float64    `json:"reputation"`
		MarketCap  float64    `json:"market_cap"`
		Price      float64    `json:"share_price"`
		Buildings  int        `json:"buildings"`
	}
	var out []companyView
	s.eng.WithRead(func(world *sim.World) {
		for _, e := range world.CompanyList {
			co := world.Companies.Get(e)
			st := world.Stocks.Get(e)
			if co == nil || st == nil {
				continue
			}
			out = append(out, companyView{
				Entity:     e,
				Name:       co.Name,
				Symbol:     co.Symbol,
				IsAI:       co.IsAI,
				Reputation: co.Reputation,
				MarketCap:  co.MarketCap,
				Price:      st.Price,
				Buildings:  len(world.BuildingsOf(e)),
			})
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"companies": out})
}

func (s *Server) handleCompanyDetail(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}

	var (
		out     map[string]any
		lookErr error
	)
	s.eng.WithRead(func(world *sim.World) {
		co := world.Companies.Get(e)
		if co == nil {
			lookErr = sim.ErrNotACompany
			return
		}
		summary, err := world.Summary(e)
		if err != nil {
			lookErr = err
			return
		}
		st := world.Stocks.Get(e)
		ledger := world.Ledger(e)

		type brandView struct {
			Product   int     `json:"product"`
			Awareness float64 `json:"awareness"`
			Loyalty   float64 `json:"loyalty"`
			Share     float64 `json:"market_share"`
		}
		var brands []brandView
		for _, key := range world.BrandKeys() {
			if key.Company != e {
				continue
			}
			b := world.Brands[key]
			brands = append(brands, brandView{
				Product:   key.Product,
				Awareness: b.Awareness,
				Loyalty:   b.Loyalty,
				Share:     b.MarketShare,
			})
		}

		out = map[string]any{
			"entity":     e,
			"name":       co.Name,
			"symbol":     co.Symbol,
			"is_ai":      co.IsAI,
			"reputation": co.Reputation,
			"finances":   summary,
			"stock":      st,
			"loans":      ledger.Loans,
			"bonds":      ledger.Bonds,
			"brands":     brands,
			"buildings":  world.BuildingsOf(e),
			"tech_alert": world.HasAlert(e),
		}
	})
	if lookErr != nil {
		writeDomainError(w, lookErr)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarket(w http.ResponseWriter, _ *http.Request) {
	var rows []sim.MarketRow
	s.eng.WithRead(func(world *sim.World) {
		rows = append(rows, world.Rows...)
	})
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleNews(w http.ResponseWriter, _ *http.Request) {
	var items []sim.NewsItem
	s.eng.WithRead(func(world *sim.World) {
		items = append(items, world.News...)
	})
	writeJSON(w, http.StatusOK, map[string]any{"news": items})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Speed float64 `json:"speed"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Speed < 0 || in.Speed > 1000 {
		writeError(w, http.StatusBadRequest, "speed must be within 0-1000")
		return
	}
	s.eng.Speed = in.Speed
	s.log.Info("simulation speed changed", "speed", in.Speed)
	writeJSON(w, http.StatusOK, map[string]any{"speed": in.Speed})
}

func (s *Server) handleSave(w http.ResponseWriter, _ *http.Request) {
	var err error
	s.eng.WithRead(func(world *sim.World) {
		err = s.db.SaveWorld(world)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDividend(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	var in struct {
		Bps float64 `json:"bps"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.eng.WithWrite(func(world *sim.World) error {
		return world.SetDividend(e, in.Bps)
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleIssueLoan(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	var in struct {
		Principal float64 `json:"principal"`
		Months    int     `json:"months"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var loan *sim.Loan
	if err := s.eng.WithWrite(func(world *sim.World) error {
		var err error
		loan, err = world.IssueLoan(e, in.Principal, in.Months)
		return err
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) handlePrepayLoan(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	loanID, err := strconv.Atoi(chi.URLParam(r, "loan_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	var in struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.eng.WithWrite(func(world *sim.World) error {
		return world.PrepayLoan(e, loanID, in.Amount)
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleIssueBond(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	var in struct {
		Face   float64 `json:"face"`
		Months int     `json:"months"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var bond *sim.Bond
	if err := s.eng.WithWrite(func(world *sim.World) error {
		var err error
		bond, err = world.IssueCorporateBond(e, in.Face, in.Months)
		return err
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bond)
}

func (s *Server) handleIssueShares(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	var in struct {
		Shares float64 `json:"shares"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var proceeds float64
	if err := s.eng.WithWrite(func(world *sim.World) error {
		var err error
		proceeds, err = world.IssueShares(e, in.Shares)
		return err
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proceeds": proceeds})
}

func (s *Server) handleBuyback(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	var in struct {
		Shares float64 `json:"shares"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.eng.WithWrite(func(world *sim.World) error {
		return world.BuybackShares(e, in.Shares)
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSlotPrice(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid building id")
		return
	}
	var in struct {
		Slot      int     `json:"slot"`
		ProductID int     `json:"product_id"`
		Price     float64 `json:"price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.eng.WithWrite(func(world *sim.World) error {
		return world.SetSlotPrice(e, in.Slot, in.ProductID, in.Price)
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleOperational(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid building id")
		return
	}
	var in struct {
		On bool `json:"on"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.eng.WithWrite(func(world *sim.World) error {
		return world.SetOperational(e, in.On)
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSupplyLink(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid building id")
		return
	}
	var in struct {
		Slot      int        `json:"slot"`
		Source    ecs.Entity `json:"source"`
		ProductID int        `json:"product_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.eng.WithWrite(func(world *sim.World) error {
		return world.LinkSupply(e, in.Slot, in.Source, in.ProductID)
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrNoSuchEntity),
		errors.Is(err, sim.ErrNotACompany),
		errors.Is(err, sim.ErrNoSuchLoan):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sim.ErrStrikeActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, sim.ErrInsufficientCash),
		errors.Is(err, sim.ErrOverCreditLimit),
		errors.Is(err, sim.ErrOverLeverage),
		errors.Is(err, sim.ErrRatingTooLow),
		errors.Is(err, sim.ErrNotRetail):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func entityParam(r *http.Request, name string) (ecs.Entity, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil {
		return 0, err
	}
	return ecs.Entity(id), nil
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
