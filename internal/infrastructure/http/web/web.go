// Package web serves the server-rendered pages: landing, sign-in, pricing and
// the dashboard. Pages call the JSON API from the browser for mutations.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/pkg/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	layoutFile  = "templates/layout.html"
	defaultNext = "/dashboard"
)

// redirectParam matches the parameter the route guard sets on login redirects
const redirectParam = "redirectTo"

var pageNames = []string{"landing", "login", "signup", "pricing", "dashboard", "error"}

// PageData is passed to every template
type PageData struct {
	AppName  string
	Title    string
	SignedIn bool
	Realtime bool
	Next     string
	Data     interface{}
}

// ErrorPage is the data of the error template
type ErrorPage struct {
	Status  int
	Message string
}

// Pages renders the web UI
type Pages struct {
	pages         map[string]*template.Template
	appName       string
	realtime      bool
	users         inbound.UserService
	subscriptions inbound.SubscriptionService
	logger        *zap.Logger
}

// Options configures Pages
type Options struct {
	AppName  string
	Realtime bool
}

// NewPages parses the embedded templates
func NewPages(users inbound.UserService, subscriptions inbound.SubscriptionService, opts Options, logger *zap.Logger) (*Pages, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if opts.AppName == "" {
		opts.AppName = "Nourish"
	}
	return &Pages{
		pages:         pages,
		appName:       opts.AppName,
		realtime:      opts.Realtime,
		users:         users,
		subscriptions: subscriptions,
		logger:        logger.Named("web"),
	}, nil
}

// Routes mounts the pages and static assets
func (p *Pages) Routes(r chi.Router) {
	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", cacheStatic(http.FileServer(http.FS(static)))))

	r.Get("/", p.Landing)
	r.Get("/login", p.Login)
	r.Get("/signup", p.Signup)
	r.Get("/pricing", p.Pricing)
	r.Get("/dashboard", p.Dashboard)
}

// Landing renders the home page
func (p *Pages) Landing(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "landing", p.page(r, "Anti-inflammatory meal planning", nil))
}

// Login renders the sign-in form
func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	data := p.page(r, "Sign in", nil)
	data.Next = safeNext(r.URL.Query().Get(redirectParam))
	p.render(w, r, http.StatusOK, "login", data)
}

// Signup renders the registration form
func (p *Pages) Signup(w http.ResponseWriter, r *http.Request) {
	data := p.page(r, "Create your account", nil)
	data.Next = safeNext(r.URL.Query().Get(redirectParam))
	p.render(w, r, http.StatusOK, "signup", data)
}

// Pricing lists the plans
func (p *Pages) Pricing(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "pricing", p.page(r, "Pricing", p.subscriptions.Plans(r.Context())))
}

// Dashboard renders the signed-in user's overview
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/login?"+redirectParam+"="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
		return
	}

	dashboard, err := p.users.Dashboard(r.Context(), identity.UserID)
	if err != nil {
		p.renderError(w, r, errors.Wrap(err, "Failed to load your dashboard"))
		return
	}
	p.render(w, r, http.StatusOK, "dashboard", p.page(r, "Dashboard", dashboard))
}

func (p *Pages) page(r *http.Request, title string, data interface{}) PageData {
	_, signedIn := middleware.IdentityFrom(r.Context())
	return PageData{
		AppName:  p.appName,
		Title:    title,
		SignedIn: signedIn,
		Realtime: p.realtime,
		Data:     data,
	}
}

// render executes into a buffer first so a template failure never produces a
// half-written page
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	tmpl, ok := p.pages[name]
	if !ok {
		p.logger.Error("Unknown page", zap.String("page", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.Error("Failed to execute template",
			zap.String("page", name),
			zap.String("request_id", middleware.RequestID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *Pages) renderError(w http.ResponseWriter, r *http.Request, appErr *errors.AppError) {
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		p.logger.Error("Page failed", zap.String("path", r.URL.Path), zap.Error(appErr))
	}
	data := p.page(r, http.StatusText(status), ErrorPage{Status: status, Message: appErr.Message})
	p.render(w, r, status, "error", data)
}

// safeNext keeps post-login redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return defaultNext
	}
	return next
}

func cacheStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

// parseTemplates builds one template set per page, each combining the
// layout with the page's "content" block
func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout").Funcs(funcMap()).ParseFS(templatesFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout: %w", err)
		}
		if _, err := clone.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = clone
	}
	return pages, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"capitalize": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"kcal": func(v float64) string {
			return fmt.Sprintf("%.0f kcal", v)
		},
		"grams": func(v float64) string {
			return fmt.Sprintf("%.0f g", v)
		},
		"price": func(cents int64) string {
			return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
		},
		"percent": func(v *float64) string {
			if v == nil {
				return "-"
			}
			return fmt.Sprintf("%.0f%%", *v*100)
		},
		"weekDays": func() []string {
			days := make([]string, len(shared.Week))
			for i, d := range shared.Week {
				days[i] = string(d)
			}
			return days
		},
		"mealSlots": func() []string {
			slots := make([]string, len(recipe.AllMealTypes))
			for i, m := range recipe.AllMealTypes {
				slots[i] = string(m)
			}
			return slots
		},
		"meal": func(meals map[string]map[string]inbound.PlannedMealDTO, day, slot string) *inbound.PlannedMealDTO {
			m, ok := meals[day][slot]
			if !ok {
				return nil
			}
			return &m
		},
	}
}
